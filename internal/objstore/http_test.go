package objstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ftplog-ingest/internal/resilience"
)

func fastRetry(attempts int) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestHTTPStore_FetchText(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/logs/feed.json", r.URL.Path)
		w.Write([]byte(`{"UserName":"alice"}`))
	}))
	defer ts.Close()

	s := NewHTTPStore(HTTPOptions{Retry: fastRetry(3)})
	content, err := s.FetchText(context.Background(), ts.URL, "logs/feed.json")
	require.NoError(t, err)
	assert.Equal(t, `{"UserName":"alice"}`, content)
}

func TestHTTPStore_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	s := NewHTTPStore(HTTPOptions{Retry: fastRetry(3)})
	content, err := s.FetchText(context.Background(), ts.URL, "logs/feed.json")
	require.NoError(t, err)
	assert.Equal(t, "ok", content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPStore_NoRetryOnNotFound(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	s := NewHTTPStore(HTTPOptions{Retry: fastRetry(3)})
	_, err := s.FetchText(context.Background(), ts.URL, "logs/gone.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	// 404 is permanent, not transient.
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPStore_DecodesCharset(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=iso-8859-1")
		// "café" in Latin-1.
		w.Write([]byte{'c', 'a', 'f', 0xE9})
	}))
	defer ts.Close()

	s := NewHTTPStore(HTTPOptions{Retry: fastRetry(1)})
	content, err := s.FetchText(context.Background(), ts.URL, "logs/latin.json")
	require.NoError(t, err)
	assert.Equal(t, "café", content)
}

func TestHTTPStore_URI(t *testing.T) {
	s := NewHTTPStore(HTTPOptions{})
	assert.Equal(t, "https://logs.example.com/logs/feed.json", s.URI("logs.example.com", "logs/feed.json"))
	assert.Equal(t, "http://127.0.0.1:8080/logs/feed.json", s.URI("http://127.0.0.1:8080/", "logs/feed.json"))
}

func TestDecodeCharset_PassThrough(t *testing.T) {
	out, err := decodeCharset([]byte("plain"), "")
	require.NoError(t, err)
	assert.Equal(t, "plain", out)

	out, err = decodeCharset([]byte("utf8"), "application/json; charset=UTF-8")
	require.NoError(t, err)
	assert.Equal(t, "utf8", out)
}
