package ai

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/supptracker/insights-backend/internal/insights"
)

// retryExplainer wraps an Explainer with bounded retry. Only transient
// failures (connection errors, timeouts, 5xx, rate limits) are retried;
// invalid input and schema-validation failures fail immediately because
// repeating the identical request cannot help.
type retryExplainer struct {
	inner       Explainer
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger

	// sleep is swapped out in tests so retry timing is asserted without
	// real waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryExplainer wraps inner with up to maxAttempts total attempts and
// exponential backoff starting at baseDelay. maxAttempts <= 1 disables
// retries; the wrapper then adds only per-call log correlation.
func NewRetryExplainer(inner Explainer, maxAttempts int, baseDelay time.Duration, logger *slog.Logger) Explainer {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	return &retryExplainer{
		inner:       inner,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		logger:      logger,
		sleep:       sleepCtx,
	}
}

// ExplainRisk delegates to the wrapped Explainer, retrying transient
// failures with exponential backoff and jitter. Every attempt for one
// logical call shares a request id so log lines can be correlated.
func (r *retryExplainer) ExplainRisk(ctx context.Context, stack []insights.StackEntry, scores insights.RiskScores) (insights.RiskExplanation, error) {
	requestID := uuid.New()

	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		result, err := r.inner.ExplainRisk(ctx, stack, scores)
		if err == nil {
			if attempt > 1 {
				r.logger.Info("ai: explanation succeeded after retry",
					"request_id", requestID,
					"attempt", attempt,
				)
			}
			return result, nil
		}
		lastErr = err

		if !retryable(err) || attempt == r.maxAttempts {
			break
		}

		delay := r.backoff(attempt)
		r.logger.Warn("ai: transient failure, retrying",
			"request_id", requestID,
			"attempt", attempt,
			"max_attempts", r.maxAttempts,
			"delay", delay,
			"rate_limited", isRateLimited(err),
			"error", err,
		)

		if err := r.sleep(ctx, delay); err != nil {
			// Caller gave up while we were backing off.
			return insights.RiskExplanation{}, &UnavailableError{Provider: "retry", Err: err}
		}
	}

	return insights.RiskExplanation{}, lastErr
}

// backoff returns baseDelay * 2^(attempt-1) with up to 25% positive jitter,
// so concurrent failing callers do not hammer the provider in lockstep.
func (r *retryExplainer) backoff(attempt int) time.Duration {
	d := r.baseDelay << (attempt - 1)
	jitter := time.Duration(rand.Int63n(int64(d)/4 + 1))
	return d + jitter
}

// retryable reports whether err is a transient provider failure.
func retryable(err error) bool {
	if errors.Is(err, insights.ErrInvalidInput) {
		return false
	}
	var ue *UnavailableError
	if errors.As(err, &ue) {
		return ue.Transient
	}
	return false
}

// isRateLimited reports whether err carries the rate-limit flag.
func isRateLimited(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue) && ue.RateLimited
}

// sleepCtx waits for d or until ctx is cancelled, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
