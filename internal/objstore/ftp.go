package objstore

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ftplog-ingest/internal/resilience"
)

// FTPOptions configures the FTP object store.
type FTPOptions struct {
	Timeout time.Duration
	Retry   resilience.RetryConfig
	// User and Password default to anonymous login.
	User     string
	Password string
}

// FTPStore fetches objects from an FTP server. The bucket is the server
// host (with optional port); the object is the remote path.
type FTPStore struct {
	opts FTPOptions
}

// NewFTPStore creates an FTP-backed object store.
func NewFTPStore(opts FTPOptions) *FTPStore {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.User == "" {
		opts.User = "anonymous"
		opts.Password = "anonymous@"
	}
	return &FTPStore{opts: opts}
}

// FetchText connects, retrieves the remote file, and returns its content.
// Each attempt uses a fresh control connection; transient FTP failures
// are retried.
func (s *FTPStore) FetchText(ctx context.Context, bucket, object string) (string, error) {
	host := bucket
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "21")
	}

	retry := s.opts.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("ftp", "fetch "+s.URI(bucket, object))
	}

	return resilience.DoVal(ctx, retry, func(ctx context.Context) (string, error) {
		return s.fetchOnce(ctx, host, object)
	})
}

func (s *FTPStore) fetchOnce(ctx context.Context, host, path string) (string, error) {
	zap.L().Debug("ftp: connecting", zap.String("host", host), zap.String("path", path))

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(s.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return "", eris.Wrap(err, "ftp: dial")
	}
	defer conn.Quit() //nolint:errcheck

	if err := conn.Login(s.opts.User, s.opts.Password); err != nil {
		return "", eris.Wrap(err, "ftp: login")
	}

	resp, err := conn.Retr(path)
	if err != nil {
		return "", eris.Wrapf(err, "ftp: retrieve %s", path)
	}
	defer resp.Close() //nolint:errcheck

	data, err := io.ReadAll(resp)
	if err != nil {
		return "", resilience.NewTransientError(eris.Wrapf(err, "ftp: read %s", path), 0)
	}
	return string(data), nil
}

// URI returns the canonical object identity used as the ledger key.
func (s *FTPStore) URI(bucket, object string) string {
	return "ftp://" + bucket + "/" + object
}
