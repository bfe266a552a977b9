// Package ai defines the interface for AI-generated supplement risk
// explanations and provides OpenAI-backed (structured outputs) and
// Anthropic-backed implementations, plus fallback and retry decorators.
package ai

import (
	"context"

	"github.com/supptracker/insights-backend/internal/insights"
)

// Explainer is the interface the HTTP layer uses to request a risk
// explanation. The concrete implementations live in openai.go and
// anthropic.go. Tests inject a stub that returns canned responses.
type Explainer interface {
	// ExplainRisk serialises the stack and scores into a prompt, calls the
	// provider with the RiskExplanation schema constraint, and returns the
	// decoded, validated result.
	//
	// Implementations must be safe to call concurrently and must validate
	// input before any network I/O: an empty stack or out-of-range severity
	// fails with insights.ErrInvalidInput without an outbound request.
	// Provider failures — network errors, non-2xx responses, timeouts, and
	// payloads that do not conform to the schema — return *UnavailableError.
	ExplainRisk(ctx context.Context, stack []insights.StackEntry, scores insights.RiskScores) (insights.RiskExplanation, error)
}
