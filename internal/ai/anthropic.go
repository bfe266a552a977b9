package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/supptracker/insights-backend/internal/insights"
)

const anthropicEndpoint = "https://api.anthropic.com/v1/messages"

// anthropicClient is the concrete Explainer backed by the Anthropic
// Messages API. Anthropic has no strict structured-output mode, so the
// schema contract is stated in the prompt and enforced entirely by the
// local decode/validate path — which is why both clients share it.
type anthropicClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewAnthropicClient returns an Explainer that calls the Anthropic API.
// Typically wired as the fallback behind the OpenAI client.
func NewAnthropicClient(apiKey, model string, timeout time.Duration) Explainer {
	return &anthropicClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: anthropicEndpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ─── ANTHROPIC API SHAPES ────────────────────────────────────────────────────

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// anthropicSchemaPrompt appends the required JSON shape to the system
// prompt, since there is no response_format equivalent to lean on.
const anthropicSchemaPrompt = `

Respond ONLY with valid JSON matching this exact schema, no markdown fences, no preamble, no extra fields:
{
  "risk_level": "low" | "moderate" | "high" | "critical",
  "user_friendly_summary": "...",
  "warnings": ["..."],
  "next_steps": ["..."],
  "affected_compounds": ["..."],
  "confidence_score": 0.0
}
confidence_score must be between 0.0 and 1.0 inclusive.`

// ─── IMPLEMENTATION ───────────────────────────────────────────────────────────

// ExplainRisk validates the input, calls the Anthropic API, and returns the
// decoded result.
func (c *anthropicClient) ExplainRisk(ctx context.Context, stack []insights.StackEntry, scores insights.RiskScores) (insights.RiskExplanation, error) {
	if err := insights.ValidateInput(stack, scores); err != nil {
		return insights.RiskExplanation{}, err
	}

	reqBody := anthropicRequest{
		Model:       c.model,
		MaxTokens:   1024,
		Temperature: explainTemperature,
		System:      systemPrompt + anthropicSchemaPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: buildPrompt(stack, scores)},
		},
	}

	raw, err := c.call(ctx, reqBody)
	if err != nil {
		return insights.RiskExplanation{}, err
	}

	return decodeExplanation("anthropic", raw, stack)
}

// call sends one request to the Anthropic Messages API and returns the
// text content of the first content block.
func (c *anthropicClient) call(ctx context.Context, reqBody anthropicRequest) (string, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("anthropic: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("anthropic: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &UnavailableError{Provider: "anthropic", Transient: true, Err: fmt.Errorf("http request: %w", err)}
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &UnavailableError{Provider: "anthropic", Transient: true, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		e := &UnavailableError{
			Provider: "anthropic",
			Err:      fmt.Errorf("unexpected status %d: %.200s", resp.StatusCode, string(respBytes)),
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			e.RateLimited = true
			e.Transient = true
		case resp.StatusCode >= 500:
			e.Transient = true
		}
		return "", e
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", &UnavailableError{Provider: "anthropic", Err: fmt.Errorf("unmarshal response: %w", err)}
	}

	if parsed.Error != nil {
		return "", &UnavailableError{Provider: "anthropic", Err: fmt.Errorf("API error %s: %s", parsed.Error.Type, parsed.Error.Message)}
	}

	for _, block := range parsed.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}

	return "", &UnavailableError{Provider: "anthropic", Err: fmt.Errorf("no text content in response")}
}
