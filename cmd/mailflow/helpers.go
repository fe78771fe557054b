package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/mailflow/internal/common"
	"github.com/Veraticus/mailflow/internal/config"
	"github.com/Veraticus/mailflow/internal/engine"
	"github.com/Veraticus/mailflow/internal/llm"
	"github.com/Veraticus/mailflow/internal/prompts"
	"github.com/Veraticus/mailflow/internal/service"
	"github.com/Veraticus/mailflow/internal/storage"
)

var providerKeyEnv = map[string]string{
	llm.ProviderOpenAI:    "OPENAI_API_KEY",
	llm.ProviderAnthropic: "ANTHROPIC_API_KEY",
	llm.ProviderGemini:    "GEMINI_API_KEY",
}

// initStorage opens the configured database, runs migrations and seeds the
// default prompt templates.
func initStorage(ctx context.Context) (service.Storage, error) {
	store, err := storage.NewSQLiteStorage(config.ExpandPath(viper.GetString("database.path")))
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	promptFile := config.ExpandPath(viper.GetString("prompts.file"))
	if _, err := prompts.NewService(store).EnsureDefaults(ctx, promptFile); err != nil {
		_ = store.Close()
		return nil, err
	}

	return store, nil
}

// llmConfig reads provider settings. The API key falls back to the
// provider's conventional environment variable.
func llmConfig() llm.Config {
	cfg := llm.Config{
		Provider:   strings.ToLower(viper.GetString("llm.provider")),
		APIKey:     viper.GetString("llm.api_key"),
		Model:      viper.GetString("llm.model"),
		BaseURL:    viper.GetString("llm.base_url"),
		Timeout:    viper.GetDuration("llm.timeout"),
		RetryDelay: viper.GetDuration("llm.retry_delay"),
		MaxRetries: viper.GetInt("llm.max_retries"),
		RateLimit:  viper.GetInt("llm.rate_limit"),
	}
	if cfg.APIKey == "" {
		if env, ok := providerKeyEnv[cfg.Provider]; ok {
			cfg.APIKey = os.Getenv(env)
		}
	}
	return cfg
}

// createLLMClient builds the configured provider client behind rate
// limiting, timeouts and retries.
func createLLMClient() (llm.Client, error) {
	cfg := llmConfig()

	client, err := llm.NewClient(cfg)
	if err != nil {
		if errors.Is(err, common.ErrMissingConfig) {
			return nil, &common.UserError{
				Err:         err,
				UserMessage: fmt.Sprintf("No API key for %s. Set llm.api_key or %s", cfg.Provider, providerKeyEnv[cfg.Provider]),
			}
		}
		return nil, err
	}

	slog.Debug("Created LLM client", "provider", cfg.Provider, "model", cfg.Model)

	return llm.Guard(client, llm.GuardConfig{
		Logger:     slog.Default(),
		Provider:   cfg.Provider,
		Timeout:    cfg.Timeout,
		RetryDelay: cfg.RetryDelay,
		MaxRetries: cfg.MaxRetries,
		RateLimit:  cfg.RateLimit,
	}), nil
}

// newProcessor wires the pipeline to store and the configured provider.
func newProcessor(store service.Storage) (*engine.Processor, error) {
	client, err := createLLMClient()
	if err != nil {
		return nil, err
	}
	return engine.New(store, llm.NewExtractor(client, slog.Default()), prompts.NewService(store), slog.Default()), nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, &common.UserError{UserMessage: fmt.Sprintf("invalid id %q", arg), Err: common.ErrValidation}
	}
	return id, nil
}

func closeStore(store service.Storage) {
	if err := store.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}
