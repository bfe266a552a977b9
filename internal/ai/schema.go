package ai

// This file holds the JSON schema sent to OpenAI's structured-output mode.
// It must stay in lockstep with insights.RiskExplanation — the local
// Validate call is the backstop for any drift.

// jsonSchema is the OpenAI json_schema response_format wrapper.
type jsonSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

// explanationSchema mirrors insights.RiskExplanation. With strict mode the
// provider guarantees: no extra fields, all required fields present,
// risk_level from the enum. Numeric range constraints are not enforced by
// strict mode, so confidence_score bounds are restated in the description
// and checked locally after decode.
var explanationSchema = jsonSchema{
	Name:   "risk_explanation",
	Strict: true,
	Schema: map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required": []string{
			"risk_level",
			"user_friendly_summary",
			"warnings",
			"next_steps",
			"affected_compounds",
			"confidence_score",
		},
		"properties": map[string]any{
			"risk_level": map[string]any{
				"type": "string",
				"enum": []string{"low", "moderate", "high", "critical"},
			},
			"user_friendly_summary": map[string]any{
				"type":        "string",
				"description": "Plain-language summary of the overall risk for a non-expert reader.",
			},
			"warnings": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Discrete cautions, one per entry. Empty when the stack is low risk.",
			},
			"next_steps": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Actionable recommendations, one per entry.",
			},
			"affected_compounds": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Supplement names from the user's stack involved in the identified risks, spelled exactly as given.",
			},
			"confidence_score": map[string]any{
				"type":        "number",
				"description": "Self-reported certainty in this explanation, between 0.0 and 1.0 inclusive.",
			},
		},
	},
}
