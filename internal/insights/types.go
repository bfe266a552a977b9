// Package insights defines the domain types for supplement risk
// explanations: the user's stack, the precomputed risk scores, and the
// structured explanation returned by the AI layer. It also owns validation
// of both the caller's input and the decoded provider output.
//
// Dependency rule: insights imports nothing from internal/. The ai and api
// packages both depend on it; it depends on neither.
package insights

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// ─── TYPES ────────────────────────────────────────────────────────────────────

// StackEntry is a single supplement in the user's current stack.
// Dosage and Timing are free text and may be empty — the prompt builder
// substitutes placeholders so the model never sees a bare colon.
type StackEntry struct {
	Name   string `json:"name"`
	Dosage string `json:"dosage,omitempty"`
	Timing string `json:"timing,omitempty"`
}

// RiskScores carries the output of the caller's own interaction engine.
// Severity is the overall danger fraction in [0, 1]; Factors holds optional
// named sub-scores (e.g. cumulative_load, timing_conflicts) that are passed
// through to the model verbatim for grounding.
type RiskScores struct {
	Severity float64            `json:"severity" validate:"gte=0,lte=1"`
	Factors  map[string]float64 `json:"factors,omitempty"`
}

// RiskLevel is the four-bucket classification the model must pick from.
// String values deliberately match the JSON schema enum so they can be
// decoded without conversion.
type RiskLevel string

const (
	LevelLow      RiskLevel = "low"
	LevelModerate RiskLevel = "moderate"
	LevelHigh     RiskLevel = "high"
	LevelCritical RiskLevel = "critical"
)

// Valid reports whether l is one of the four known levels.
func (l RiskLevel) Valid() bool {
	switch l {
	case LevelLow, LevelModerate, LevelHigh, LevelCritical:
		return true
	}
	return false
}

// RiskExplanation is the structured explanation returned to callers.
// Its shape is enforced twice: once upstream by the provider's structured
// output mode, and once locally by Validate before the value leaves the
// ai package. Warnings and NextSteps preserve the model's ordering.
type RiskExplanation struct {
	RiskLevel           RiskLevel `json:"risk_level" validate:"required,oneof=low moderate high critical"`
	UserFriendlySummary string    `json:"user_friendly_summary" validate:"required"`
	Warnings            []string  `json:"warnings"`
	NextSteps           []string  `json:"next_steps"`
	AffectedCompounds   []string  `json:"affected_compounds"`
	ConfidenceScore     float64   `json:"confidence_score" validate:"gte=0,lte=1"`
}

// ─── VALIDATION ───────────────────────────────────────────────────────────────

// validate is shared by all Validate* functions. validator.Validate is
// safe for concurrent use and caches struct metadata, so one instance
// for the package is the right lifecycle.
var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateInput checks the caller-supplied stack and scores. It is called
// by every Explainer implementation before any network I/O so that bad
// input never costs an outbound request. All failures wrap ErrInvalidInput.
func ValidateInput(stack []StackEntry, scores RiskScores) error {
	if len(stack) == 0 {
		return &InputError{Reason: "stack must contain at least one supplement"}
	}
	for i, entry := range stack {
		if strings.TrimSpace(entry.Name) == "" {
			return &InputError{Reason: "stack entry is missing a name", Index: i}
		}
	}
	if err := validate.Struct(scores); err != nil {
		return &InputError{Reason: "severity must be a fraction in [0, 1]"}
	}
	return nil
}

// Validate checks a decoded RiskExplanation against the declared shape:
// risk_level in the enumerated set, non-empty summary, confidence_score
// in [0, 1]. It does not inspect AffectedCompounds — see FilterCompounds.
func (e *RiskExplanation) Validate() error {
	return validate.Struct(e)
}

// FilterCompounds restricts AffectedCompounds to names actually present in
// the input stack, preserving the model's ordering and the stack's original
// casing. Models occasionally echo a shortened or re-cased name; anything
// that does not match a stack entry (case-insensitively) is dropped rather
// than surfaced to the user as a compound they never entered.
func (e *RiskExplanation) FilterCompounds(stack []StackEntry) {
	if len(e.AffectedCompounds) == 0 {
		return
	}
	known := make(map[string]string, len(stack))
	for _, entry := range stack {
		known[strings.ToLower(strings.TrimSpace(entry.Name))] = entry.Name
	}
	kept := e.AffectedCompounds[:0]
	for _, c := range e.AffectedCompounds {
		if canonical, ok := known[strings.ToLower(strings.TrimSpace(c))]; ok {
			kept = append(kept, canonical)
		}
	}
	e.AffectedCompounds = kept
}
