package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/Veraticus/mailflow/internal/common"
	"github.com/Veraticus/mailflow/internal/service"
)

// GuardConfig configures a GuardedClient.
type GuardConfig struct {
	Logger     *slog.Logger
	Provider   string
	Timeout    time.Duration // Per attempt; zero disables the deadline
	RetryDelay time.Duration
	MaxRetries int
	RateLimit  int // Requests per minute; zero or less disables limiting
}

// GuardedClient wraps a Client with rate limiting, a per-attempt timeout and
// retries of retryable provider errors. Every failure it returns is, or wraps,
// a *common.ProviderError.
type GuardedClient struct {
	client    Client
	limiter   *rate.Limiter
	logger    *slog.Logger
	provider  string
	timeout   time.Duration
	retryOpts service.RetryOptions
}

// Guard wraps client according to cfg.
func Guard(client Client, cfg GuardConfig) *GuardedClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(float64(cfg.RateLimit) / 60.0)
	}

	provider := cfg.Provider
	if provider == "" {
		provider = "llm"
	}

	return &GuardedClient{
		client:   client,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
		provider: provider,
		timeout:  cfg.Timeout,
		retryOpts: service.RetryOptions{
			MaxAttempts:  max(cfg.MaxRetries, 1),
			InitialDelay: cfg.RetryDelay,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// Complete implements Client.
func (g *GuardedClient) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	start := time.Now()
	var text string

	err := common.WithRetry(ctx, func() error {
		if err := g.limiter.Wait(ctx); err != nil {
			return &common.ProviderError{Provider: g.provider, Err: fmt.Errorf("rate limiter: %w", err)}
		}

		callCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}

		out, err := g.client.Complete(callCtx, prompt, temperature, maxTokens)
		if err != nil {
			g.logger.Debug("completion attempt failed", "provider", g.provider, "error", err)
			return g.asProviderError(err)
		}
		text = out
		return nil
	}, g.retryOpts)

	CompletionDuration.WithLabelValues(g.provider).Observe(time.Since(start).Seconds())
	if err != nil {
		CompletionsTotal.WithLabelValues(g.provider, "error").Inc()
		return "", g.asProviderError(err)
	}

	CompletionsTotal.WithLabelValues(g.provider, "success").Inc()
	return text, nil
}

func (g *GuardedClient) asProviderError(err error) error {
	var providerErr *common.ProviderError
	if errors.As(err, &providerErr) {
		return err
	}
	return &common.ProviderError{Provider: g.provider, Err: err}
}
