package store

import (
	"context"
	"time"

	"github.com/sells-group/ftplog-ingest/internal/ingest"
)

// MonitoringRow is one pipeline_monitoring snapshot row, written by the
// scheduled SQL transform and read by the monitoring check.
type MonitoringRow struct {
	CheckTime time.Time `json:"check_time"`
	Status    string    `json:"status"`
	Details   string    `json:"details"`
}

// LedgerStats aggregates processed-files outcomes within a lookback
// window, for monitoring.
type LedgerStats struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Partial int `json:"partial"`
	Failed  int `json:"failed"`
}

// Store is the persistence interface for the ingestion pipeline. It
// covers the structured and archive sinks, the processed-files ledger,
// and the monitoring snapshot. Implementations exist for Postgres and
// SQLite; the Postgres driver is the production target.
//
// The Insert*, AlreadyProcessed, Record, and RecordFailure methods
// satisfy the ingest.Sink and ingest.Ledger interfaces.
type Store interface {
	// Sink
	InsertBase(ctx context.Context, table string, rows []ingest.BaseRow) error
	InsertArchive(ctx context.Context, table string, rows []ingest.ArchiveRow) error

	// Ledger
	AlreadyProcessed(ctx context.Context, sourceURI string) (bool, error)
	Record(ctx context.Context, e ingest.LedgerEntry) (bool, error)
	RecordFailure(ctx context.Context, sourceURI, originatingFile, errMsg string) error
	ListLedger(ctx context.Context, limit int) ([]ingest.LedgerEntry, error)
	CollectLedgerStats(ctx context.Context, since time.Time) (*LedgerStats, error)

	// Monitoring
	LatestMonitoring(ctx context.Context) (*MonitoringRow, error)

	// ExecScript runs a separately-maintained multi-statement SQL script
	// (the scheduled bulk ETL) against the store.
	ExecScript(ctx context.Context, sql string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
