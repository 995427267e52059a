// Package ratelimit enforces sliding-window capacity limits against a model
// backend. Two independent windows are tracked: request count and token
// volume, mirroring the two capacity dimensions backends enforce (RPM, TPM).
package ratelimit

import (
	"context"
	"sync"
	"time"

	chatModels "coinsage/internal/domain/models/chat"
)

// Clock abstracts time for testability. The production clock sleeps with
// context awareness so a cancelled conversation stops waiting immediately.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type entry struct {
	at     time.Time
	weight int
}

// window is one sliding window. Entries older than the span are evicted
// lazily before every check. Access is serialized by mu; the wait itself
// happens outside the lock so one slow sleeper never blocks unrelated
// capacity checks.
type window struct {
	mu      sync.Mutex
	limit   int // <=0 means disabled
	span    time.Duration
	entries []entry
}

func (w *window) evictLocked(now time.Time) {
	cutoff := now.Add(-w.span)
	i := 0
	for i < len(w.entries) && !w.entries[i].at.After(cutoff) {
		i++
	}
	if i > 0 {
		w.entries = append(w.entries[:0], w.entries[i:]...)
	}
}

// requestWait returns how long a caller must wait for a free request slot.
// The oldest surviving entry determines the earliest available slot.
func (w *window) requestWait(now time.Time) time.Duration {
	if w.limit <= 0 {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.evictLocked(now)
	if len(w.entries) < w.limit {
		return 0
	}
	return w.entries[0].at.Add(w.span).Sub(now)
}

// tokenWait returns how long a caller must wait before weight more tokens
// fit. Entries are walked oldest-first, accumulating freed weight until the
// new request fits; the wait runs until that entry's expiry.
func (w *window) tokenWait(now time.Time, weight int) time.Duration {
	if w.limit <= 0 {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.evictLocked(now)

	total := 0
	for _, e := range w.entries {
		total += e.weight
	}
	if total+weight <= w.limit {
		return 0
	}

	freed := 0
	for _, e := range w.entries {
		freed += e.weight
		if total-freed+weight <= w.limit {
			return e.at.Add(w.span).Sub(now)
		}
	}
	// Even an empty window cannot fit this request; wait for the newest
	// entry to expire and let the oversized request through alone.
	if len(w.entries) == 0 {
		return 0
	}
	return w.entries[len(w.entries)-1].at.Add(w.span).Sub(now)
}

func (w *window) record(now time.Time, weight int) {
	if w.limit <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, entry{at: now, weight: weight})
}

// Limiter gates outgoing backend calls against both sliding windows. One
// Limiter instance is shared process-wide (or per backend credential): the
// limits it tracks belong to the backend account, not to any single
// conversation, so all in-flight conversations contend on it.
type Limiter struct {
	requests *window
	tokens   *window
	clock    Clock
}

// New creates a limiter from the policy's RPM/TPM parameters. A limit of
// zero disables that window.
func New(policy chatModels.BudgetPolicy) *Limiter {
	return NewWithClock(policy, systemClock{})
}

// NewWithClock creates a limiter with an injected clock.
func NewWithClock(policy chatModels.BudgetPolicy, clock Clock) *Limiter {
	return &Limiter{
		requests: &window{limit: policy.RPMLimit, span: policy.RPMWindow},
		tokens:   &window{limit: policy.TPMLimit, span: policy.TPMWindow},
		clock:    clock,
	}
}

// Wait blocks cooperatively until both windows have room for one request of
// estimatedTokens weight. Wait does not record usage; callers record after
// the call completes so the actual reported weight can be used (see Record).
// Waits are computed under the lock, slept outside it, then re-checked,
// since other callers may have claimed the freed capacity in the meantime.
func (l *Limiter) Wait(ctx context.Context, estimatedTokens int) error {
	for {
		now := l.clock.Now()
		wait := l.requests.requestWait(now)
		if tw := l.tokens.tokenWait(now, estimatedTokens); tw > wait {
			wait = tw
		}
		if wait <= 0 {
			return nil
		}
		if err := l.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Record adds one request and its token weight to the windows. Call it
// after the backend call with reported usage when available, otherwise with
// the pre-call estimate.
func (l *Limiter) Record(tokens int) {
	now := l.clock.Now()
	l.requests.record(now, 1)
	l.tokens.record(now, tokens)
}
