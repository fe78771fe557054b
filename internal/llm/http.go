package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/mailflow/internal/common"
)

// maxErrorBody bounds how much of an error response ends up in an error message.
const maxErrorBody = 512

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// postJSON sends requestBody to url and decodes a 200 response into out.
// Every failure is reported as a *common.ProviderError.
func postJSON(ctx context.Context, httpClient *http.Client, provider, url string, headers map[string]string, requestBody, out any) error {
	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return &common.ProviderError{Provider: provider, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return &common.ProviderError{Provider: provider, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		// http.Client reports its own timeout as a net error; fold it into
		// DeadlineExceeded so it is treated like a context deadline.
		var timeoutErr interface{ Timeout() bool }
		if errors.As(err, &timeoutErr) && timeoutErr.Timeout() && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
		}
		return &common.ProviderError{Provider: provider, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &common.ProviderError{Provider: provider, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody] + "..."
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return &common.ProviderError{Provider: provider, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %s", common.ErrRateLimit, msg)}
		}
		return &common.ProviderError{Provider: provider, StatusCode: resp.StatusCode, Err: fmt.Errorf("API error: %s", msg)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &common.ProviderError{Provider: provider, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	return nil
}
