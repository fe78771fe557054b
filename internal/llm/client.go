package llm

import (
	"context"
	"errors"
	"time"

	"github.com/Veraticus/mailflow/internal/common"
)

// Client defines the interface for LLM providers.
type Client interface {
	// Complete sends prompt to the provider and returns the trimmed response text.
	Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

// Config holds provider selection and tuning, chosen once at startup.
type Config struct {
	Provider   string
	APIKey     string
	Model      string
	BaseURL    string // Overrides the provider endpoint, mainly for tests and self-hosted models
	Timeout    time.Duration
	RetryDelay time.Duration
	MaxRetries int
	RateLimit  int // Requests per minute
}

// Sampling settings for each kind of request.
const (
	CategorizeTemperature = 0.3
	CategorizeMaxTokens   = 50
	StructuredTemperature = 0.3
	StructuredMaxTokens   = 1500
	ReplyTemperature      = 0.7
	ChatTemperature       = 0.7
	ChatMaxTokens         = 1500
	ComposeTemperature    = 0.7
	ComposeMaxTokens      = 1000
)

// SystemPrompt is sent as the system message by providers that support one.
const SystemPrompt = "You are a helpful email assistant that processes emails and helps users manage their inbox efficiently."

// Ping sends a trivial prompt to check that the provider answers.
func Ping(ctx context.Context, client Client) (string, error) {
	text, err := client.Complete(ctx, "Say 'hello'", 0.5, 10)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", &common.ProviderError{Err: errors.New("empty response")}
	}
	return text, nil
}
