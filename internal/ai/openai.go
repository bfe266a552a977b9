package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/supptracker/insights-backend/internal/insights"
)

const openAIEndpoint = "https://api.openai.com/v1/chat/completions"

// explainTemperature is fixed and low: this is a factual-explanation task
// where reproducibility matters more than variation.
const explainTemperature = 0.1

// openAIClient is the concrete Explainer backed by the OpenAI Chat
// Completions API with structured outputs (json_schema, strict mode).
type openAIClient struct {
	apiKey     string
	model      string
	baseURL    string // overridden in tests; openAIEndpoint otherwise
	httpClient *http.Client
}

// NewOpenAIClient returns an Explainer that calls the OpenAI API.
//   - apiKey:  your OPENAI_API_KEY
//   - model:   e.g. "gpt-4.1-mini"
//   - timeout: hard cap on each outbound call; a slower response is
//     treated as unavailable, not waited out
func NewOpenAIClient(apiKey, model string, timeout time.Duration) Explainer {
	return &openAIClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: openAIEndpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ─── OPENAI API SHAPES ───────────────────────────────────────────────────────

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	MaxTokens      int             `json:"max_tokens"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// responseFormat carries the structured-output constraint. With
// Type "json_schema" and Strict set on the schema, the API refuses to
// return anything that does not conform — no free-text parsing needed.
type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// ─── IMPLEMENTATION ───────────────────────────────────────────────────────────

// ExplainRisk validates the input, calls the OpenAI API with the
// RiskExplanation schema constraint, and returns the decoded result.
func (c *openAIClient) ExplainRisk(ctx context.Context, stack []insights.StackEntry, scores insights.RiskScores) (insights.RiskExplanation, error) {
	if err := insights.ValidateInput(stack, scores); err != nil {
		return insights.RiskExplanation{}, err
	}

	reqBody := openAIRequest{
		Model:          c.model,
		MaxTokens:      1024,
		Temperature:    explainTemperature,
		ResponseFormat: &responseFormat{Type: "json_schema", JSONSchema: &explanationSchema},
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(stack, scores)},
		},
	}

	raw, err := c.call(ctx, reqBody)
	if err != nil {
		return insights.RiskExplanation{}, err
	}

	return decodeExplanation("openai", raw, stack)
}

// call sends one request to the chat completions endpoint and returns the
// message content of the first choice.
func (c *openAIClient) call(ctx context.Context, reqBody openAIRequest) (string, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("openai: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts, DNS failures, refused connections — all transient.
		return "", &UnavailableError{Provider: "openai", Transient: true, Err: fmt.Errorf("http request: %w", err)}
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB cap
	if err != nil {
		return "", &UnavailableError{Provider: "openai", Transient: true, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", c.statusError(resp.StatusCode, respBytes)
	}

	var parsed openAIResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", &UnavailableError{Provider: "openai", Err: fmt.Errorf("unmarshal response: %w", err)}
	}

	if parsed.Error != nil {
		return "", &UnavailableError{Provider: "openai", Err: fmt.Errorf("API error %s: %s", parsed.Error.Type, parsed.Error.Message)}
	}

	if len(parsed.Choices) == 0 {
		return "", &UnavailableError{Provider: "openai", Err: fmt.Errorf("no choices in response")}
	}

	choice := parsed.Choices[0]
	if choice.Message.Refusal != "" {
		return "", &UnavailableError{Provider: "openai", Err: fmt.Errorf("model refused: %.200s", choice.Message.Refusal)}
	}

	return choice.Message.Content, nil
}

// statusError classifies a non-200 response. 429 is rate limiting; 5xx is
// a provider-side fault worth retrying; everything else (401, 400, ...) is
// terminal for this request.
func (c *openAIClient) statusError(status int, body []byte) error {
	e := &UnavailableError{
		Provider: "openai",
		Err:      fmt.Errorf("unexpected status %d: %.200s", status, string(body)),
	}
	switch {
	case status == http.StatusTooManyRequests:
		e.RateLimited = true
		e.Transient = true
	case status >= 500:
		e.Transient = true
	}
	return e
}

// ─── SHARED DECODE PATH ───────────────────────────────────────────────────────

// decodeExplanation turns raw model output into a validated RiskExplanation.
// Both provider clients funnel through here so the schema contract is
// enforced identically: unknown fields rejected, enum and bounds checked,
// affected compounds restricted to the input stack.
func decodeExplanation(provider, raw string, stack []insights.StackEntry) (insights.RiskExplanation, error) {
	// Strip any accidental markdown fences the model may have added.
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var explanation insights.RiskExplanation
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&explanation); err != nil {
		return insights.RiskExplanation{}, &UnavailableError{
			Provider: provider,
			Err:      fmt.Errorf("parse explanation JSON: %w (raw: %.200s)", err, raw),
		}
	}

	if err := explanation.Validate(); err != nil {
		return insights.RiskExplanation{}, &UnavailableError{
			Provider: provider,
			Err:      fmt.Errorf("explanation failed schema validation: %w", err),
		}
	}

	explanation.FilterCompounds(stack)
	return explanation, nil
}
