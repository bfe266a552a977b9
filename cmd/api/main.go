package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/supptracker/insights-backend/internal/ai"
	"github.com/supptracker/insights-backend/internal/api"
	"github.com/supptracker/insights-backend/internal/config"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded", "env", cfg.Env, "port", cfg.Port)

	// ── AI ────────────────────────────────────────────────────────────────────
	// OpenAI is primary (structured outputs guarantee the response shape).
	// Anthropic is the fallback when ANTHROPIC_API_KEY is also set. In
	// production, set both keys for maximum resilience.
	var explainer ai.Explainer
	switch {
	case cfg.OpenAIAPIKey != "" && cfg.AnthropicAPIKey != "":
		primary := ai.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.AITimeout)
		secondary := ai.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AITimeout)
		explainer = ai.NewFallbackExplainer(primary, secondary, logger)
		logger.Info("ai: using OpenAI with Anthropic fallback")
	case cfg.OpenAIAPIKey != "":
		explainer = ai.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.AITimeout)
		logger.Info("ai: using OpenAI only")
	default:
		explainer = ai.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AITimeout)
		logger.Info("ai: using Anthropic only")
	}

	// Bounded retry for transient failures (timeouts, 5xx, rate limits).
	explainer = ai.NewRetryExplainer(explainer, cfg.AIMaxRetries, cfg.AIRetryDelay, logger)

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.NewServer(explainer, cfg, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 15*time.Second, // outlive the handler deadline
		IdleTimeout:  120 * time.Second,
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	// Root context cancelled by OS signal; in-flight explanation calls are
	// abandoned via their request contexts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until either a signal arrives or the server dies unexpectedly.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	// Give in-flight requests up to 20 seconds to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}
