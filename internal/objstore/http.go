package objstore

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"

	"github.com/sells-group/ftplog-ingest/internal/resilience"
)

// HTTPOptions configures the HTTP object store.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration
	Retry     resilience.RetryConfig
	// RateLimit caps requests per second against the bucket host.
	// Zero means no limiting.
	RateLimit float64
}

// HTTPStore fetches objects over HTTP(S). The bucket is a host or base
// URL; the object is a path beneath it.
type HTTPStore struct {
	client  *http.Client
	opts    HTTPOptions
	limiter *rate.Limiter
}

// NewHTTPStore creates an HTTP-backed object store with retry and rate
// limiting.
func NewHTTPStore(opts HTTPOptions) *HTTPStore {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "ftplog-ingest/1.0"
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPStore{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:    opts,
		limiter: limiter,
	}
}

// FetchText fetches the object and returns its content as UTF-8 text,
// transcoding from the response charset when one is declared.
func (s *HTTPStore) FetchText(ctx context.Context, bucket, object string) (string, error) {
	rawURL := s.URI(bucket, object)

	retry := s.opts.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("http", "fetch "+rawURL)
	}

	return resilience.DoVal(ctx, retry, func(ctx context.Context) (string, error) {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return "", eris.Wrap(err, "http: rate limiter wait")
			}
		}
		return s.fetchOnce(ctx, rawURL)
	})
}

func (s *HTTPStore) fetchOnce(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "http: create request")
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "http: get %s", rawURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("http: unexpected status %d from %s", resp.StatusCode, rawURL)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return "", resilience.NewTransientError(err, resp.StatusCode)
		}
		return "", err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resilience.NewTransientError(eris.Wrapf(err, "http: read body from %s", rawURL), 0)
	}

	return decodeCharset(body, resp.Header.Get("Content-Type"))
}

// URI returns the canonical object URL used as the ledger key.
func (s *HTTPStore) URI(bucket, object string) string {
	base := bucket
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	return strings.TrimSuffix(base, "/") + "/" + object
}

// decodeCharset transcodes body to UTF-8 according to the Content-Type
// charset parameter. Absent or UTF-8 charsets pass through unchanged.
func decodeCharset(body []byte, contentType string) (string, error) {
	if contentType == "" {
		return string(body), nil
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return string(body), nil
	}
	charset := params["charset"]
	if charset == "" || strings.EqualFold(charset, "utf-8") {
		return string(body), nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return "", eris.Wrapf(err, "http: unknown charset %q", charset)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", eris.Wrapf(err, "http: decode charset %q", charset)
	}
	return string(decoded), nil
}
