package ai_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/supptracker/insights-backend/internal/ai"
	"github.com/supptracker/insights-backend/internal/insights"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

type stubExplainer struct {
	result insights.RiskExplanation
	err    error
	calls  int
}

func (s *stubExplainer) ExplainRisk(_ context.Context, stack []insights.StackEntry, scores insights.RiskScores) (insights.RiskExplanation, error) {
	s.calls++
	return s.result, s.err
}

// discardLogger returns a *slog.Logger that silently drops all log output.
// Use this instead of nil — fallback.go calls f.logger.Warn() which panics
// on nil.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStack() []insights.StackEntry {
	return []insights.StackEntry{{Name: "Zinc Picolinate"}, {Name: "Calcium"}}
}

func testScores() insights.RiskScores {
	return insights.RiskScores{Severity: 0.8}
}

// ─── FallbackExplainer ────────────────────────────────────────────────────────

func TestFallbackExplainer_PrimarySucceeds_SecondaryNotCalled(t *testing.T) {
	primary := &stubExplainer{
		result: insights.RiskExplanation{
			RiskLevel:           insights.LevelHigh,
			UserFriendlySummary: "Primary summary",
			ConfidenceScore:     0.9,
		},
	}
	secondary := &stubExplainer{
		result: insights.RiskExplanation{UserFriendlySummary: "Secondary summary"},
	}

	explainer := ai.NewFallbackExplainer(primary, secondary, discardLogger())

	result, err := explainer.ExplainRisk(context.Background(), testStack(), testScores())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.UserFriendlySummary != "Primary summary" {
		t.Errorf("expected primary result, got: %q", result.UserFriendlySummary)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary should not be called, got %d calls", secondary.calls)
	}
	if primary.calls != 1 {
		t.Errorf("primary should be called once, got %d calls", primary.calls)
	}
}

func TestFallbackExplainer_PrimaryFails_SecondaryUsed(t *testing.T) {
	primary := &stubExplainer{err: &ai.UnavailableError{Provider: "openai", Transient: true, Err: errors.New("timeout")}}
	secondary := &stubExplainer{
		result: insights.RiskExplanation{
			RiskLevel:           insights.LevelModerate,
			UserFriendlySummary: "Secondary summary",
			ConfidenceScore:     0.7,
		},
	}

	explainer := ai.NewFallbackExplainer(primary, secondary, discardLogger())

	result, err := explainer.ExplainRisk(context.Background(), testStack(), testScores())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.UserFriendlySummary != "Secondary summary" {
		t.Errorf("expected secondary result, got: %q", result.UserFriendlySummary)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Errorf("expected one call each, got primary=%d secondary=%d", primary.calls, secondary.calls)
	}
}

func TestFallbackExplainer_InvalidInput_NotRetriedOnSecondary(t *testing.T) {
	primary := &stubExplainer{err: &insights.InputError{Reason: "stack must contain at least one supplement"}}
	secondary := &stubExplainer{}

	explainer := ai.NewFallbackExplainer(primary, secondary, discardLogger())

	_, err := explainer.ExplainRisk(context.Background(), nil, testScores())
	if !errors.Is(err, insights.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got: %v", err)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary should not see caller-fault input, got %d calls", secondary.calls)
	}
}

func TestFallbackExplainer_BothFail_ReturnsError(t *testing.T) {
	primary := &stubExplainer{err: errors.New("primary error")}
	secondary := &stubExplainer{err: errors.New("secondary error")}

	explainer := ai.NewFallbackExplainer(primary, secondary, discardLogger())

	_, err := explainer.ExplainRisk(context.Background(), testStack(), testScores())
	if err == nil {
		t.Fatal("expected error when both explainers fail")
	}
}

func TestFallbackExplainer_NilPrimary_UsesSecondaryDirectly(t *testing.T) {
	secondary := &stubExplainer{
		result: insights.RiskExplanation{UserFriendlySummary: "Only secondary"},
	}

	explainer := ai.NewFallbackExplainer(nil, secondary, discardLogger())

	result, err := explainer.ExplainRisk(context.Background(), testStack(), testScores())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.UserFriendlySummary != "Only secondary" {
		t.Errorf("expected secondary result, got: %q", result.UserFriendlySummary)
	}
	if secondary.calls != 1 {
		t.Errorf("expected 1 secondary call, got %d", secondary.calls)
	}
}

func TestFallbackExplainer_NilSecondary_PrimaryErrorBubbles(t *testing.T) {
	primaryErr := &ai.UnavailableError{Provider: "openai", Err: errors.New("blew up")}
	primary := &stubExplainer{err: primaryErr}

	explainer := ai.NewFallbackExplainer(primary, nil, discardLogger())

	_, err := explainer.ExplainRisk(context.Background(), testStack(), testScores())
	if err == nil {
		t.Fatal("expected error")
	}
	var ue *ai.UnavailableError
	if !errors.As(err, &ue) {
		t.Errorf("expected *UnavailableError in chain, got: %v", err)
	}
}
