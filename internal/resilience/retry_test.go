package resilience

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestDoVal_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	val, err := DoVal(context.Background(), fastConfig(3), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", NewTransientError(errors.New("flaky"), 503)
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, 3, calls)
}

func TestDoVal_PermanentErrorNotRetried(t *testing.T) {
	calls := 0
	_, err := DoVal(context.Background(), fastConfig(3), func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("not found")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoVal_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := DoVal(context.Background(), fastConfig(3), func(ctx context.Context) (string, error) {
		calls++
		return "", NewTransientError(errors.New("still flaky"), 500)
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoVal_ContextCancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := DoVal(ctx, fastConfig(5), func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, NewTransientError(errors.New("flaky"), 500)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("no such table")))

	assert.True(t, IsTransient(NewTransientError(errors.New("x"), 503)))
	assert.True(t, IsTransient(syscall.ECONNRESET))
	assert.True(t, IsTransient(errors.New("read tcp: i/o timeout")))
	assert.True(t, IsTransient(errors.New("421 Service not available")))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "code %d", code)
	}
	for _, code := range []int{200, 204, 400, 401, 403, 404} {
		assert.False(t, IsTransientHTTPStatus(code), "code %d", code)
	}
}
