package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/mailflow/internal/service"
)

func TestProviderError_Retryable(t *testing.T) {
	tests := []struct {
		err  *ProviderError
		name string
		want bool
	}{
		{name: "rate limited", err: &ProviderError{StatusCode: http.StatusTooManyRequests}, want: true},
		{name: "server error", err: &ProviderError{StatusCode: http.StatusBadGateway}, want: true},
		{name: "timeout", err: &ProviderError{Err: fmt.Errorf("call: %w", context.DeadlineExceeded)}, want: true},
		{name: "bad request", err: &ProviderError{StatusCode: http.StatusBadRequest}, want: false},
		{name: "canceled", err: &ProviderError{Err: context.Canceled}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Retryable())
			assert.Equal(t, tt.want, IsRetryable(fmt.Errorf("wrapped: %w", tt.err)))
		})
	}
}

func TestExtractionError_Cause(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want ExtractionCause
	}{
		{name: "refused", err: fmt.Errorf("%w: blocked", ErrProviderRefused), want: CauseRefused},
		{name: "malformed", err: &MalformedOutputError{Preview: "nope"}, want: CauseMalformed},
		{name: "provider", err: &ProviderError{Provider: "openai", StatusCode: 500}, want: CauseProvider},
		{name: "other", err: errors.New("boom"), want: CauseUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &ExtractionError{Field: "category", Err: tt.err}
			assert.Equal(t, tt.want, err.Cause())
			assert.ErrorIs(t, err, tt.err)
			assert.Contains(t, err.Error(), "category extraction failed")
		})
	}
}

func TestUserError(t *testing.T) {
	err := &UserError{UserMessage: "No API key", Err: ErrMissingConfig}
	assert.Equal(t, "No API key: missing configuration", err.Error())
	assert.ErrorIs(t, err, ErrMissingConfig)
	assert.Equal(t, "plain", (&UserError{UserMessage: "plain"}).Error())
}

func TestWithRetry(t *testing.T) {
	fast := service.RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}

	t.Run("succeeds after retryable failures", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			if calls < 3 {
				return &ProviderError{Provider: "openai", StatusCode: http.StatusBadGateway, Err: errors.New("flaky")}
			}
			return nil
		}, fast)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("non-retryable returned unchanged", func(t *testing.T) {
		permanent := errors.New("permanent")
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			return permanent
		}, fast)
		assert.Equal(t, permanent, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("exhausted attempts", func(t *testing.T) {
		cause := &ProviderError{StatusCode: http.StatusServiceUnavailable}
		err := WithRetry(context.Background(), func() error { return cause }, fast)
		assert.ErrorIs(t, err, ErrMaxRetries)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("rate limit waits the maximum delay", func(t *testing.T) {
		opts := service.RetryOptions{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 50 * time.Millisecond}
		rateLimited := &ProviderError{Provider: "openai", StatusCode: http.StatusTooManyRequests, Err: ErrRateLimit}
		calls := 0
		start := time.Now()
		err := WithRetry(context.Background(), func() error {
			calls++
			if calls == 1 {
				return rateLimited
			}
			return nil
		}, opts)
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		assert.GreaterOrEqual(t, time.Since(start), opts.MaxDelay)
	})

	t.Run("canceled while waiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		err := WithRetry(ctx, func() error {
			cancel()
			return ErrRateLimit
		}, service.RetryOptions{MaxAttempts: 3, InitialDelay: time.Hour, MaxDelay: time.Hour})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetupLogger(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var buf bytes.Buffer
	require.NoError(t, SetupLogger(&buf, slog.LevelInfo, "json"))
	LogInfo("batch finished", Fields{"run_id": "abc"})
	LogError(errors.New("boom"), "import failed", Fields{"path": "x.eml"})
	LogDebug("hidden at info", Fields{"k": "v"})

	out := buf.String()
	assert.Contains(t, out, `"msg":"batch finished"`)
	assert.Contains(t, out, `"run_id":"abc"`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"level":"ERROR"`)
	assert.NotContains(t, out, "hidden at info")

	assert.ErrorIs(t, SetupLogger(&buf, slog.LevelInfo, "xml"), ErrInvalidConfig)
}
