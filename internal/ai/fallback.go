package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/supptracker/insights-backend/internal/insights"
)

// fallbackExplainer wraps two Explainer implementations. It calls the
// primary first; if that fails for a provider-side reason it logs the
// failure and tries the secondary. This gives you OpenAI as the default
// with Anthropic as the safety net (or vice versa — the choice is made
// in main.go).
type fallbackExplainer struct {
	primary   Explainer
	secondary Explainer
	logger    *slog.Logger
}

// NewFallbackExplainer returns an Explainer that calls primary and, on
// provider failure, falls back to secondary. Either argument may be nil —
// if primary is nil it goes straight to secondary; if secondary is nil and
// primary fails, the primary error is returned directly.
func NewFallbackExplainer(primary, secondary Explainer, logger *slog.Logger) Explainer {
	return &fallbackExplainer{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

// ExplainRisk tries the primary Explainer. Invalid input is the caller's
// fault and is never retried against the secondary — the same input would
// fail the same way and would burn a request doing it.
func (f *fallbackExplainer) ExplainRisk(ctx context.Context, stack []insights.StackEntry, scores insights.RiskScores) (insights.RiskExplanation, error) {
	if f.primary != nil {
		result, err := f.primary.ExplainRisk(ctx, stack, scores)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, insights.ErrInvalidInput) {
			return insights.RiskExplanation{}, err
		}
		f.logger.Warn("ai: primary explainer failed, trying secondary",
			"error", err,
			"stack_size", len(stack),
		)
		if f.secondary == nil {
			return insights.RiskExplanation{}, fmt.Errorf("ai: primary failed and no secondary configured: %w", err)
		}
	}

	return f.secondary.ExplainRisk(ctx, stack, scores)
}
