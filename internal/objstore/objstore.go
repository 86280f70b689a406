// Package objstore provides drivers for fetching raw log objects from a
// bucket-like source: local filesystem, HTTP, or FTP. Every driver
// satisfies ingest.ObjectStore.
package objstore

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ftplog-ingest/internal/config"
	"github.com/sells-group/ftplog-ingest/internal/ingest"
	"github.com/sells-group/ftplog-ingest/internal/resilience"
)

// New creates the object store driver named by the configuration.
func New(cfg config.ObjectStoreConfig) (ingest.ObjectStore, error) {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	retry := resilience.DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retry.MaxAttempts = cfg.MaxRetries
	}

	switch cfg.Driver {
	case "fs", "":
		return NewFSStore(cfg.Root), nil
	case "http":
		return NewHTTPStore(HTTPOptions{
			Timeout:   timeout,
			Retry:     retry,
			RateLimit: cfg.RateLimit,
		}), nil
	case "ftp":
		return NewFTPStore(FTPOptions{
			Timeout: timeout,
			Retry:   retry,
		}), nil
	default:
		return nil, eris.Errorf("objstore: unknown driver %q", cfg.Driver)
	}
}
