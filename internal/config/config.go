// Package config loads and validates all environment variables at startup.
// Every other package receives typed values — nothing reads os.Getenv
// directly. A missing provider credential is a fatal configuration error
// here, never a per-request failure later.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the fully-parsed application configuration.
type Config struct {
	// ── Server ────────────────────────────────────────────────────────────────
	Port string // default "8080"
	Env  string // "development" | "staging" | "production"

	// ── OpenAI ────────────────────────────────────────────────────────────────
	// Primary provider. Structured outputs guarantee the explanation shape.
	OpenAIAPIKey string
	OpenAIModel  string // default "gpt-4.1-mini"

	// ── Anthropic ─────────────────────────────────────────────────────────────
	// Optional. When set, Anthropic is used as the fallback if the OpenAI
	// call fails. If ANTHROPIC_API_KEY is empty, no fallback is configured.
	AnthropicAPIKey string
	AnthropicModel  string // default "claude-sonnet-4-5"

	// ── AI call behaviour ─────────────────────────────────────────────────────
	AITimeout      time.Duration // per outbound call; default 30s
	AIMaxRetries   int           // total attempts per provider; default 2
	AIRetryDelay   time.Duration // initial backoff; default 500ms
	RequestTimeout time.Duration // whole-request HTTP deadline; default 45s
}

// Load reads all environment variables and returns a validated Config.
// It automatically loads a .env file from the working directory when
// present (godotenv never overrides variables already set, so real env
// vars from Docker / your shell always win).
func Load() (*Config, error) {
	_ = godotenv.Load() // missing .env is fine

	c := &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4.1-mini"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5"),
		AITimeout:       getEnvAsDuration("AI_TIMEOUT", 30*time.Second),
		AIMaxRetries:    getEnvAsInt("AI_MAX_RETRIES", 2),
		AIRetryDelay:    getEnvAsDuration("AI_RETRY_DELAY", 500*time.Millisecond),
		RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 45*time.Second),
	}

	return c, c.validate()
}

func (c *Config) validate() error {
	var errs []error

	// At least one AI provider must be configured.
	if c.OpenAIAPIKey == "" && c.AnthropicAPIKey == "" {
		errs = append(errs, fmt.Errorf("at least one of OPENAI_API_KEY or ANTHROPIC_API_KEY must be set"))
	}

	if c.AITimeout <= 0 {
		errs = append(errs, fmt.Errorf("AI_TIMEOUT must be positive"))
	}
	if c.AIMaxRetries < 1 {
		errs = append(errs, fmt.Errorf("AI_MAX_RETRIES must be at least 1"))
	}

	return errors.Join(errs...)
}

// ─── HELPERS ─────────────────────────────────────────────────────────────────

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	// Plain integers are treated as seconds, or minutes when the variable
	// name says so.
	if value, err := strconv.Atoi(valueStr); err == nil {
		if strings.Contains(key, "MINUTES") {
			return time.Duration(value) * time.Minute
		}
		return time.Duration(value) * time.Second
	}
	// Fall back to Go duration syntax: "30s", "500ms", "1m", etc.
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	return defaultValue
}
