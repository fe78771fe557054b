package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Veraticus/mailflow/internal/common"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Texts returned in place of a completion when Gemini produced no content.
const (
	geminiSafetyBlocked     = RefusalSentinel + " Response blocked by safety filters. Try adjusting the prompt or use less sensitive test data."
	geminiRecitationBlocked = RefusalSentinel + " Response blocked due to recitation concerns. Try rephrasing the prompt."
	geminiNoResponse        = RefusalSentinel + " No response generated. The model may have encountered an issue."
)

// geminiClient implements the Client interface for the Gemini generateContent API.
type geminiClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

func newGeminiClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key is required", common.ErrMissingConfig)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = geminiBaseURL
	}

	return &geminiClient{
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(cfg.Timeout),
	}, nil
}

// Complete sends a generateContent request to Gemini. A response without any
// parts is reported as text starting with RefusalSentinel rather than an error.
func (c *geminiClient) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	requestBody := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": map[string]any{
			"temperature":     temperature,
			"maxOutputTokens": maxTokens,
		},
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	headers := map[string]string{"x-goog-api-key": c.apiKey}

	var response geminiResponse
	if err := postJSON(ctx, c.httpClient, ProviderGemini, endpoint, headers, requestBody, &response); err != nil {
		return "", err
	}

	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return geminiBlockedText(response), nil
	}

	var text strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return strings.TrimSpace(text.String()), nil
}

func geminiBlockedText(response geminiResponse) string {
	reason := response.PromptFeedback.BlockReason
	if len(response.Candidates) > 0 {
		reason = response.Candidates[0].FinishReason
	}
	switch reason {
	case "SAFETY":
		return geminiSafetyBlocked
	case "RECITATION":
		return geminiRecitationBlocked
	default:
		return geminiNoResponse
	}
}

// geminiResponse represents the Gemini API response structure.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Role  string `json:"role"`
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}
