package chat

import (
	"context"
	"log/slog"
	"time"

	"coinsage/internal/config"
	"coinsage/internal/domain"
	chatModels "coinsage/internal/domain/models/chat"
	chatSvc "coinsage/internal/domain/services/chat"
	"coinsage/internal/service/chat/ratelimit"
)

// Invoker issues calls to the model backend, applying message shaping, rate
// limiter gating, and a bounded shrink-and-retry loop on capacity errors.
// Capacity errors are transient and self-inflicted-avoidable, so the
// request shrinks and retries; every other failure is fatal for the call.
type Invoker struct {
	backend   chatSvc.Backend
	limiter   *ratelimit.Limiter
	estimator TokenEstimator
	logger    *slog.Logger

	// sleep is the backoff sleep between retries; injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewInvoker creates an invocation controller. The limiter is shared
// process-wide (or per backend credential); it is injected, never owned.
func NewInvoker(backend chatSvc.Backend, limiter *ratelimit.Limiter, estimator TokenEstimator, logger *slog.Logger) *Invoker {
	if estimator == nil {
		estimator = HeuristicEstimator{}
	}
	return &Invoker{
		backend:   backend,
		limiter:   limiter,
		estimator: estimator,
		logger:    logger,
		sleep:     sleepCtx,
	}
}

// InvokeOptions carries the per-call knobs the conversation layer sets.
type InvokeOptions struct {
	Temperature float64
	// Functions advertises callable capability; nil disables function
	// calling for this invocation.
	Functions []chatSvc.FunctionSchema
}

// Invoke runs one shape-throttle-send cycle with capacity retries. On a
// capacity signal it shrinks the response cap by 20% (floored), backs off
// exponentially, and retries up to policy.RetryMaxAttempts; exhaustion
// yields *domain.CapacityError. Any other backend failure yields
// *domain.BackendError immediately.
func (iv *Invoker) Invoke(ctx context.Context, messages []chatModels.Turn, policy chatModels.BudgetPolicy, opts InvokeOptions) (*chatSvc.SendResponse, error) {
	responseCap := policy.ResponseMaxTokens
	attempts := policy.RetryMaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		shaped := ShapeMessages(messages, policy)
		estimate := iv.estimator.Estimate(shaped, responseCap)

		if err := iv.limiter.Wait(ctx, estimate); err != nil {
			return nil, err
		}

		resp, err := iv.backend.Send(ctx, &chatSvc.SendRequest{
			Messages:    shaped,
			Temperature: opts.Temperature,
			MaxTokens:   responseCap,
			Functions:   opts.Functions,
		})
		if err == nil {
			iv.limiter.Record(usedTokens(resp.Usage, estimate))
			return resp, nil
		}

		if !domain.IsCapacitySignal(err) {
			return nil, &domain.BackendError{Err: err}
		}
		lastErr = err

		// A rejected request still consumed a request slot upstream.
		iv.limiter.Record(0)

		if attempt == attempts {
			break
		}

		responseCap = shrinkResponseCap(responseCap)
		delay := policy.RetryBaseDelay << (attempt - 1)
		iv.logger.Warn("capacity signal from backend, retrying",
			"attempt", attempt,
			"backoff", delay,
			"response_cap", responseCap,
			"error", err,
		)
		if err := iv.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, &domain.CapacityError{Attempts: attempts, Err: lastErr}
}

// InvokeStream opens a streaming call. Throttling and shaping are identical
// to Invoke, but there is no retry once the stream is open: a mid-stream
// failure surfaces immediately to the caller.
func (iv *Invoker) InvokeStream(ctx context.Context, messages []chatModels.Turn, policy chatModels.BudgetPolicy, opts InvokeOptions) (<-chan chatSvc.StreamEvent, error) {
	shaped := ShapeMessages(messages, policy)
	estimate := iv.estimator.Estimate(shaped, policy.ResponseMaxTokens)

	if err := iv.limiter.Wait(ctx, estimate); err != nil {
		return nil, err
	}

	events, err := iv.backend.Stream(ctx, &chatSvc.SendRequest{
		Messages:    shaped,
		Temperature: opts.Temperature,
		MaxTokens:   policy.ResponseMaxTokens,
	})
	if err != nil {
		if domain.IsCapacitySignal(err) {
			return nil, &domain.CapacityError{Attempts: 1, Err: err}
		}
		return nil, &domain.BackendError{Err: err}
	}

	// Streams report no usage; the pre-call estimate stands.
	iv.limiter.Record(estimate)
	return events, nil
}

// BackendName reports the name of the configured backend.
func (iv *Invoker) BackendName() string {
	return iv.backend.Name()
}

// shrinkResponseCap reduces the cap by 20%, floored so a response always
// has room to say something.
func shrinkResponseCap(current int) int {
	shrunk := current * 80 / 100
	if shrunk < config.MinResponseTokens {
		return config.MinResponseTokens
	}
	return shrunk
}

func usedTokens(usage *chatModels.Usage, estimate int) int {
	if usage != nil && usage.TotalTokens > 0 {
		return usage.TotalTokens
	}
	return estimate
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
