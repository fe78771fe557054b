package llm

import (
	"context"
	"net/http"
	"strings"
)

const ollamaBaseURL = "http://localhost:11434"

// ollamaClient implements the Client interface for a local Ollama server.
type ollamaClient struct {
	httpClient *http.Client
	model      string
	baseURL    string
}

func newOllamaClient(cfg Config) (Client, error) {
	model := cfg.Model
	if model == "" {
		model = "llama3"
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = ollamaBaseURL
	}

	return &ollamaClient{
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(cfg.Timeout),
	}, nil
}

// Complete sends a non-streaming generate request to Ollama.
func (c *ollamaClient) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	requestBody := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": temperature,
			"num_predict": maxTokens,
		},
	}

	var response struct {
		Response string `json:"response"`
		Done     bool   `json:"done"`
	}
	if err := postJSON(ctx, c.httpClient, ProviderOllama, c.baseURL+"/api/generate", nil, requestBody, &response); err != nil {
		return "", err
	}

	return strings.TrimSpace(response.Response), nil
}
