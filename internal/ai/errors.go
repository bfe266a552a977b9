package ai

import "fmt"

// UnavailableError means the provider was reached (or reachable) but no
// valid explanation could be produced: network failure, non-2xx status,
// timeout, or a payload that failed schema validation. Handlers translate
// it to 503 — "explanation is currently unavailable" — which must never be
// conflated with a low-risk result.
type UnavailableError struct {
	// Provider names the client that failed ("openai", "anthropic").
	Provider string

	// RateLimited marks quota/429 failures. The return shape is identical;
	// the flag exists only so logging and the retry decorator can treat
	// rate limits as transient.
	RateLimited bool

	// Transient marks failures worth retrying: connection errors, timeouts,
	// 5xx responses. Schema-validation failures are not transient — the
	// same prompt is likely to fail the same way.
	Transient bool

	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: explanation unavailable: %v", e.Provider, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }
