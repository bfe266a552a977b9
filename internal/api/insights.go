package api

import (
	"errors"
	"net/http"

	"github.com/supptracker/insights-backend/internal/ai"
	"github.com/supptracker/insights-backend/internal/insights"
)

// ─── POST /api/insights/explain-risk ─────────────────────────────────────────

// riskScoresInput is the wire shape for risk_scores. Severity is a pointer
// so a body that omits it entirely is distinguishable from a legitimate
// severity of 0.0 — the former is a 400, the latter a valid low-risk input.
type riskScoresInput struct {
	Severity *float64           `json:"severity"`
	Factors  map[string]float64 `json:"factors,omitempty"`
}

type explainRiskRequest struct {
	Stack      []insights.StackEntry `json:"stack"`
	RiskScores riskScoresInput       `json:"risk_scores"`
}

// handleExplainRisk generates an AI-powered risk explanation for the
// user's supplement stack. The response body is the RiskExplanation JSON
// object; failures never leak through as fake explanations — an upstream
// outage is a 503 with an explicit "unavailable" message, which the
// frontend must present as "no explanation available", not "no risk".
func (s *Server) handleExplainRisk(w http.ResponseWriter, r *http.Request) {
	var req explainRiskRequest
	if !decode(w, r, &req) {
		return
	}

	if len(req.Stack) == 0 {
		respondErr(w, http.StatusBadRequest, "stack must contain at least one supplement")
		return
	}
	if req.RiskScores.Severity == nil {
		respondErr(w, http.StatusBadRequest, "risk_scores.severity is required")
		return
	}

	scores := insights.RiskScores{
		Severity: *req.RiskScores.Severity,
		Factors:  req.RiskScores.Factors,
	}

	explanation, err := s.explainer.ExplainRisk(r.Context(), req.Stack, scores)
	if err != nil {
		s.respondExplainErr(w, r, err)
		return
	}

	respond(w, http.StatusOK, explanation)
}

// respondExplainErr maps explainer failures onto HTTP statuses:
// caller-fault input → 400, provider failure → 503, anything else → 500.
func (s *Server) respondExplainErr(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, insights.ErrInvalidInput) {
		respondErr(w, http.StatusBadRequest, err.Error())
		return
	}

	var unavailable *ai.UnavailableError
	if errors.As(err, &unavailable) {
		s.logger.Error("explanation unavailable",
			"provider", unavailable.Provider,
			"rate_limited", unavailable.RateLimited,
			"error", err,
			logField(r),
		)
		respondErr(w, http.StatusServiceUnavailable, "risk explanation is currently unavailable, please try again later")
		return
	}

	s.respondInternalErr(w, r, err)
}
