package ai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/supptracker/insights-backend/internal/insights"
)

// countingExplainer fails a fixed number of times, then succeeds.
type countingExplainer struct {
	failures int
	err      error
	result   insights.RiskExplanation
	calls    int
}

func (c *countingExplainer) ExplainRisk(_ context.Context, _ []insights.StackEntry, _ insights.RiskScores) (insights.RiskExplanation, error) {
	c.calls++
	if c.calls <= c.failures {
		return insights.RiskExplanation{}, c.err
	}
	return c.result, nil
}

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRetry builds a retryExplainer whose sleep records requested delays
// instead of waiting.
func newTestRetry(inner Explainer, maxAttempts int, slept *[]time.Duration) *retryExplainer {
	r := NewRetryExplainer(inner, maxAttempts, 100*time.Millisecond, noopLogger()).(*retryExplainer)
	r.sleep = func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
	return r
}

func retryStack() []insights.StackEntry {
	return []insights.StackEntry{{Name: "Vitamin D3"}}
}

func TestRetryExplainer_TransientFailureThenSuccess(t *testing.T) {
	inner := &countingExplainer{
		failures: 2,
		err:      &UnavailableError{Provider: "openai", Transient: true, Err: errors.New("502")},
		result:   insights.RiskExplanation{UserFriendlySummary: "eventually fine"},
	}

	var slept []time.Duration
	r := newTestRetry(inner, 3, &slept)

	result, err := r.ExplainRisk(context.Background(), retryStack(), insights.RiskScores{Severity: 0.1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.UserFriendlySummary != "eventually fine" {
		t.Errorf("unexpected result: %q", result.UserFriendlySummary)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", inner.calls)
	}
	if len(slept) != 2 {
		t.Fatalf("expected 2 backoff sleeps, got %d", len(slept))
	}
	// Exponential base: 100ms then 200ms, each with up to 25% jitter.
	if slept[0] < 100*time.Millisecond || slept[0] > 125*time.Millisecond {
		t.Errorf("first delay out of range: %v", slept[0])
	}
	if slept[1] < 200*time.Millisecond || slept[1] > 250*time.Millisecond {
		t.Errorf("second delay out of range: %v", slept[1])
	}
}

func TestRetryExplainer_ExhaustsAttempts(t *testing.T) {
	wantErr := &UnavailableError{Provider: "openai", Transient: true, RateLimited: true, Err: errors.New("429")}
	inner := &countingExplainer{failures: 10, err: wantErr}

	var slept []time.Duration
	r := newTestRetry(inner, 3, &slept)

	_, err := r.ExplainRisk(context.Background(), retryStack(), insights.RiskScores{Severity: 0.1})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	var ue *UnavailableError
	if !errors.As(err, &ue) || !ue.RateLimited {
		t.Errorf("expected rate-limited UnavailableError, got: %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", inner.calls)
	}
}

func TestRetryExplainer_NonTransientNotRetried(t *testing.T) {
	inner := &countingExplainer{
		failures: 10,
		err:      &UnavailableError{Provider: "openai", Err: errors.New("schema validation failed")},
	}

	var slept []time.Duration
	r := newTestRetry(inner, 3, &slept)

	_, err := r.ExplainRisk(context.Background(), retryStack(), insights.RiskScores{Severity: 0.1})
	if err == nil {
		t.Fatal("expected error")
	}
	if inner.calls != 1 {
		t.Errorf("non-transient failure should not be retried, got %d attempts", inner.calls)
	}
	if len(slept) != 0 {
		t.Errorf("expected no sleeps, got %v", slept)
	}
}

func TestRetryExplainer_InvalidInputNotRetried(t *testing.T) {
	inner := &countingExplainer{
		failures: 10,
		err:      &insights.InputError{Reason: "stack must contain at least one supplement"},
	}

	var slept []time.Duration
	r := newTestRetry(inner, 3, &slept)

	_, err := r.ExplainRisk(context.Background(), nil, insights.RiskScores{Severity: 0.1})
	if !errors.Is(err, insights.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("invalid input should not be retried, got %d attempts", inner.calls)
	}
}

func TestRetryExplainer_CancelledDuringBackoff(t *testing.T) {
	inner := &countingExplainer{
		failures: 10,
		err:      &UnavailableError{Provider: "openai", Transient: true, Err: errors.New("timeout")},
	}

	r := NewRetryExplainer(inner, 3, time.Hour, noopLogger()).(*retryExplainer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := r.ExplainRisk(ctx, retryStack(), insights.RiskScores{Severity: 0.1})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancelled backoff should return immediately, took %v", elapsed)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 attempt before cancellation, got %d", inner.calls)
	}
}

func TestRetryExplainer_SingleAttemptFloor(t *testing.T) {
	inner := &countingExplainer{result: insights.RiskExplanation{UserFriendlySummary: "ok"}}

	// Zero and negative attempt counts degrade to one attempt, not zero.
	r := NewRetryExplainer(inner, 0, time.Millisecond, noopLogger())

	result, err := r.ExplainRisk(context.Background(), retryStack(), insights.RiskScores{Severity: 0.1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.UserFriendlySummary != "ok" {
		t.Errorf("unexpected result: %q", result.UserFriendlySummary)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 attempt, got %d", inner.calls)
	}
}
