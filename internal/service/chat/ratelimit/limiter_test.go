package ratelimit

import (
	"context"
	"testing"
	"time"

	chatModels "coinsage/internal/domain/models/chat"
)

// fakeClock advances instantly on Sleep so window tests run without real
// waiting and with deterministic timestamps.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func policyWith(rpm, tpm int, window time.Duration) chatModels.BudgetPolicy {
	p := chatModels.DefaultBudgetPolicy()
	p.RPMLimit = rpm
	p.RPMWindow = window
	p.TPMLimit = tpm
	p.TPMWindow = window
	return p
}

func TestLimiter_DisabledLimitsNeverWait(t *testing.T) {
	clock := newFakeClock()
	limiter := NewWithClock(policyWith(0, 0, time.Minute), clock)

	for i := 0; i < 100; i++ {
		if err := limiter.Wait(context.Background(), 1_000_000); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
		limiter.Record(1_000_000)
	}

	if len(clock.sleeps) != 0 {
		t.Errorf("expected no sleeps with disabled limits, got %d", len(clock.sleeps))
	}
}

func TestLimiter_RequestWindowBlocksThirdCall(t *testing.T) {
	// Concrete scenario: rpm_limit=2, window=60s, three calls at t=0.
	// The third call must wait until t~60s.
	clock := newFakeClock()
	start := clock.Now()
	limiter := NewWithClock(policyWith(2, 0, time.Minute), clock)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := limiter.Wait(ctx, 10); err != nil {
			t.Fatalf("call %d: Wait failed: %v", i, err)
		}
		limiter.Record(10)
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("first two calls should not wait, slept %v", clock.sleeps)
	}

	if err := limiter.Wait(ctx, 10); err != nil {
		t.Fatalf("third call: Wait failed: %v", err)
	}
	limiter.Record(10)

	if got := clock.Now().Sub(start); got < time.Minute {
		t.Errorf("third call proceeded at t=%v, want >= 60s", got)
	}
}

func TestLimiter_RequestWindowConvergence(t *testing.T) {
	// Burst of M > N calls: no window of length span may ever hold more
	// than N recorded requests.
	const n = 3
	const m = 10
	span := 30 * time.Second

	clock := newFakeClock()
	limiter := NewWithClock(policyWith(n, 0, span), clock)
	ctx := context.Background()

	var recorded []time.Time
	for i := 0; i < m; i++ {
		if err := limiter.Wait(ctx, 1); err != nil {
			t.Fatalf("call %d: Wait failed: %v", i, err)
		}
		limiter.Record(1)
		recorded = append(recorded, clock.Now())
	}

	for i := range recorded {
		count := 0
		for j := range recorded {
			d := recorded[j].Sub(recorded[i])
			if d >= 0 && d < span {
				count++
			}
		}
		if count > n {
			t.Errorf("window starting at call %d holds %d requests, limit %d", i, count, n)
		}
	}
}

func TestLimiter_TokenWindowWaitsForOldestWeight(t *testing.T) {
	clock := newFakeClock()
	start := clock.Now()
	limiter := NewWithClock(policyWith(0, 100, time.Minute), clock)
	ctx := context.Background()

	// Fill the token window: 60 + 40 = 100.
	if err := limiter.Wait(ctx, 60); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	limiter.Record(60)
	if err := limiter.Wait(ctx, 40); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	limiter.Record(40)

	// 50 more tokens need the first entry (weight 60) to expire.
	if err := limiter.Wait(ctx, 50); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	limiter.Record(50)

	if got := clock.Now().Sub(start); got < time.Minute {
		t.Errorf("token wait released at t=%v, want >= window span", got)
	}
}

func TestLimiter_OversizedRequestPassesAlone(t *testing.T) {
	// A single request above the whole token limit must not deadlock: it
	// waits for the window to drain, then goes through alone.
	clock := newFakeClock()
	limiter := NewWithClock(policyWith(0, 100, time.Minute), clock)
	ctx := context.Background()

	limiter.Record(100)
	if err := limiter.Wait(ctx, 500); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if len(clock.sleeps) == 0 {
		t.Error("oversized request should have waited for the window to drain")
	}
}

func TestLimiter_WaitRespectsContext(t *testing.T) {
	limiter := New(policyWith(1, 0, time.Minute))
	ctx := context.Background()

	if err := limiter.Wait(ctx, 1); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	limiter.Record(1)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := limiter.Wait(cancelled, 1); err == nil {
		t.Error("expected context error from Wait on cancelled context")
	}
}
