package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/mailflow/internal/common"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{name: "openai", config: Config{Provider: "openai", APIKey: "k"}},
		{name: "anthropic mixed case", config: Config{Provider: "Anthropic", APIKey: "k"}},
		{name: "gemini", config: Config{Provider: "gemini", APIKey: "k"}},
		{name: "ollama needs no key", config: Config{Provider: "ollama"}},
		{name: "openai missing key", config: Config{Provider: "openai"}, wantErr: common.ErrMissingConfig},
		{name: "gemini missing key", config: Config{Provider: "gemini"}, wantErr: common.ErrMissingConfig},
		{name: "unknown provider", config: Config{Provider: "palm", APIKey: "k"}, wantErr: common.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.config)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestOpenAIClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		body := decodeBody(t, r)
		assert.Equal(t, "gpt-test", body["model"])
		assert.InDelta(t, 0.3, body["temperature"], 0.001)
		assert.InDelta(t, 50, body["max_tokens"], 0.001)
		messages, ok := body["messages"].([]any)
		require.True(t, ok)
		assert.Len(t, messages, 2)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Spam \n"}}]}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{Provider: "openai", APIKey: "test-key", Model: "gpt-test", BaseURL: server.URL})
	require.NoError(t, err)

	got, err := client.Complete(context.Background(), "categorize", 0.3, 50)
	require.NoError(t, err)
	assert.Equal(t, "Spam", got)
}

func TestOpenAIClient_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{Provider: "openai", APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "x", 0.3, 10)
	var providerErr *common.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, ProviderOpenAI, providerErr.Provider)
}

func TestAnthropicClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		body := decodeBody(t, r)
		assert.InDelta(t, 1500, body["max_tokens"], 0.001)

		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"tasks\": []}"}],"stop_reason":"end_turn"}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{Provider: "anthropic", APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	got, err := client.Complete(context.Background(), "extract", 0.3, 1500)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tasks": []}`, got)
}

func TestGeminiClient_Complete(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "text parts",
			response: `{"candidates":[{"content":{"parts":[{"text":"To-Do"}]},"finishReason":"STOP"}]}`,
			want:     "To-Do",
		},
		{
			name:     "safety block",
			response: `{"candidates":[{"content":{},"finishReason":"SAFETY"}]}`,
			want:     geminiSafetyBlocked,
		},
		{
			name:     "recitation block",
			response: `{"candidates":[{"content":{},"finishReason":"RECITATION"}]}`,
			want:     geminiRecitationBlocked,
		},
		{
			name:     "prompt blocked without candidates",
			response: `{"promptFeedback":{"blockReason":"SAFETY"}}`,
			want:     geminiSafetyBlocked,
		},
		{
			name:     "no candidates",
			response: `{}`,
			want:     geminiNoResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
				assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
				_, _ = w.Write([]byte(tt.response))
			}))
			defer server.Close()

			client, err := NewClient(Config{Provider: "gemini", APIKey: "test-key", Model: "gemini-test", BaseURL: server.URL})
			require.NoError(t, err)

			got, err := client.Complete(context.Background(), "prompt", 0.3, 50)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGeminiBlockedText_NormalizesAsRefusal(t *testing.T) {
	_, err := Normalize(geminiSafetyBlocked)
	require.ErrorIs(t, err, common.ErrProviderRefused)
}

func TestOllamaClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		body := decodeBody(t, r)
		assert.Equal(t, false, body["stream"])
		assert.Equal(t, "llama3", body["model"])
		_, _ = w.Write([]byte(`{"response":" Newsletter ","done":true}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{Provider: "ollama", BaseURL: server.URL})
	require.NoError(t, err)

	got, err := client.Complete(context.Background(), "prompt", 0.3, 50)
	require.NoError(t, err)
	assert.Equal(t, "Newsletter", got)
}

func TestProviderErrorStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, retryable: true},
		{name: "server error", status: http.StatusBadGateway, retryable: true},
		{name: "bad request", status: http.StatusBadRequest, retryable: false},
		{name: "unauthorized", status: http.StatusUnauthorized, retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
			}))
			defer server.Close()

			client, err := NewClient(Config{Provider: "anthropic", APIKey: "k", BaseURL: server.URL})
			require.NoError(t, err)

			_, err = client.Complete(context.Background(), "prompt", 0.3, 10)
			var providerErr *common.ProviderError
			require.ErrorAs(t, err, &providerErr)
			assert.Equal(t, tt.status, providerErr.StatusCode)
			assert.Equal(t, tt.retryable, providerErr.Retryable())
			assert.Equal(t, tt.status == http.StatusTooManyRequests, errors.Is(err, common.ErrRateLimit))
			assert.Contains(t, err.Error(), "nope")
		})
	}
}
