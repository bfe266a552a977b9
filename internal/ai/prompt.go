package ai

import (
	"fmt"
	"sort"
	"strings"

	"github.com/supptracker/insights-backend/internal/insights"
)

// systemPrompt sets the model's role. The output shape itself is enforced
// by the provider's structured-output mode (OpenAI) or by the schema block
// appended in anthropic.go — this text only covers tone and grounding.
const systemPrompt = `You are a supplement safety expert. Analyze the user's stack and provide clear risk explanations based on the provided scores. Be direct and actionable. Ground every warning in the compounds and scores you were given — do not invent interactions that the scores do not support. The affected_compounds list must only contain names from the user's stack, spelled exactly as given.`

// buildPrompt serialises the stack and scores into the user message.
func buildPrompt(stack []insights.StackEntry, scores insights.RiskScores) string {
	var sb strings.Builder

	sb.WriteString("User's Current Stack:\n")
	for _, entry := range stack {
		dosage := entry.Dosage
		if dosage == "" {
			dosage = "N/A"
		}
		timing := entry.Timing
		if timing == "" {
			timing = "unspecified"
		}
		fmt.Fprintf(&sb, "- %s: %s (%s)\n", entry.Name, dosage, timing)
	}

	sb.WriteString("\nRisk Assessment Scores:\n")
	fmt.Fprintf(&sb, "severity: %.2f\n", scores.Severity)
	for _, key := range sortedKeys(scores.Factors) {
		fmt.Fprintf(&sb, "%s: %.2f\n", key, scores.Factors[key])
	}

	sb.WriteString("\nProvide a clear, actionable risk explanation for this supplement combination.\n")
	return sb.String()
}

// sortedKeys returns the factor names in lexical order so the prompt is
// deterministic for a given input — map iteration order is not.
func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
