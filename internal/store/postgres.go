package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/ftplog-ingest/internal/db"
	"github.com/sells-group/ftplog-ingest/internal/ingest"
)

// Tables names the tables the store creates and the ledger writes to.
// The base and archive tables used for inserts are chosen per call so
// ingest profiles can target different tables over one connection.
type Tables struct {
	Base    string
	Archive string
	Ledger  string
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	tables  Tables
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, tables Tables, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, tables: tables, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests and by
// subsystems that manage their own pool lifecycle.
func NewPostgresFromPool(pool db.Pool, tables Tables) *PostgresStore {
	return &PostgresStore{pool: pool, tables: tables}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS %[1]s (
	load_time         TIMESTAMPTZ NOT NULL,
	source_event_time TIMESTAMPTZ NOT NULL,
	originating_file_id TEXT NOT NULL,
	source_uri        TEXT NOT NULL,
	action            TEXT,
	byte_count        BIGINT,
	customer_id       BIGINT,
	event_time        TIMESTAMPTZ,
	filename          TEXT,
	hash_code         BIGINT,
	fingerprint       TEXT NOT NULL,
	ip_address        TEXT,
	partner_name      TEXT,
	session_id        TEXT,
	source            TEXT,
	user_name         TEXT,
	server_response   TEXT,
	raw_data          TEXT
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_fingerprint ON %[1]s(fingerprint);
CREATE INDEX IF NOT EXISTS idx_%[1]s_source_uri ON %[1]s(source_uri);

CREATE TABLE IF NOT EXISTS %[2]s (
	raw_line_text     TEXT NOT NULL,
	archived_time     TIMESTAMPTZ NOT NULL,
	process_date      TIMESTAMPTZ NOT NULL,
	originating_file_id TEXT NOT NULL,
	source_uri        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_%[2]s_source_uri ON %[2]s(source_uri);

CREATE TABLE IF NOT EXISTS %[3]s (
	source_uri          TEXT NOT NULL,
	originating_file_id TEXT NOT NULL,
	processed_time      TIMESTAMPTZ NOT NULL,
	rows_loaded         INTEGER NOT NULL DEFAULT 0,
	rows_expected       INTEGER NOT NULL DEFAULT 0,
	parse_error_count   INTEGER NOT NULL DEFAULT 0,
	status              TEXT NOT NULL,
	error_message       TEXT,
	processing_duration DOUBLE PRECISION NOT NULL DEFAULT 0,
	CONSTRAINT %[3]s_source_uri_key UNIQUE (source_uri)
);

CREATE TABLE IF NOT EXISTS pipeline_monitoring (
	check_time TIMESTAMPTZ NOT NULL,
	status     TEXT NOT NULL,
	details    TEXT
);

CREATE INDEX IF NOT EXISTS idx_pipeline_monitoring_check_time ON pipeline_monitoring(check_time);
`

// Migrate creates the base, archive, ledger, and monitoring tables. The
// ledger carries a UNIQUE constraint on source_uri: insert-if-absent on
// that key is the idempotency mechanism.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	sql := fmt.Sprintf(postgresMigration, s.tables.Base, s.tables.Archive, s.tables.Ledger)
	if _, err := s.pool.Exec(ctx, sql); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

var baseColumns = []string{
	"load_time", "source_event_time", "originating_file_id", "source_uri",
	"action", "byte_count", "customer_id", "event_time", "filename",
	"hash_code", "fingerprint", "ip_address", "partner_name", "session_id",
	"source", "user_name", "server_response", "raw_data",
}

var archiveColumns = []string{
	"raw_line_text", "archived_time", "process_date", "originating_file_id", "source_uri",
}

func baseValues(r ingest.BaseRow) []any {
	return []any{
		r.LoadTime, r.SourceEventTime, r.OriginatingFile, r.SourceURI,
		r.Action, r.ByteCount, r.CustomerID, r.EventTime, r.Filename,
		r.HashCode, r.Fingerprint, r.IPAddress, r.PartnerName, r.SessionID,
		r.Source, r.UserName, r.ServerResponse, r.RawData,
	}
}

func archiveValues(r ingest.ArchiveRow) []any {
	return []any{r.RawLine, r.ArchivedTime, r.ProcessDate, r.OriginatingFile, r.SourceURI}
}

// InsertBase bulk-inserts structured rows via the COPY protocol.
func (s *PostgresStore) InsertBase(ctx context.Context, table string, rows []ingest.BaseRow) error {
	if len(rows) == 0 {
		return nil
	}
	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = baseValues(r)
	}
	_, err := db.CopyFrom(ctx, s.pool, table, baseColumns, values)
	return err
}

// InsertArchive bulk-inserts raw-line rows via the COPY protocol.
func (s *PostgresStore) InsertArchive(ctx context.Context, table string, rows []ingest.ArchiveRow) error {
	if len(rows) == 0 {
		return nil
	}
	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = archiveValues(r)
	}
	_, err := db.CopyFrom(ctx, s.pool, table, archiveColumns, values)
	return err
}

// AlreadyProcessed reports whether a ledger entry exists for the URI.
func (s *PostgresStore) AlreadyProcessed(ctx context.Context, sourceURI string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT 1 FROM %s WHERE source_uri = $1 LIMIT 1`, s.tables.Ledger),
		sourceURI,
	).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, eris.Wrapf(err, "ledger: check %s", sourceURI)
	}
	return true, nil
}

// Record inserts the entry unless one already exists for its source_uri.
// The UNIQUE constraint, not the earlier point lookup, is what makes the
// operation race-safe; zero rows affected means a concurrent invocation
// recorded the file first.
func (s *PostgresStore) Record(ctx context.Context, e ingest.LedgerEntry) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s
			(source_uri, originating_file_id, processed_time, rows_loaded, rows_expected,
			 parse_error_count, status, error_message, processing_duration)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (source_uri) DO NOTHING`, s.tables.Ledger),
		e.SourceURI, e.OriginatingFile, e.ProcessedTime, e.RowsLoaded, e.RowsExpected,
		e.ParseErrors, string(e.Status), nullableText(e.ErrorMessage), e.Duration.Seconds(),
	)
	if err != nil {
		return false, eris.Wrapf(err, "ledger: record %s", e.SourceURI)
	}
	return tag.RowsAffected() > 0, nil
}

// RecordFailure writes a degraded FAILED entry with zero counts. Callers
// on the load failure path log and discard the returned error so the
// original failure is never masked.
func (s *PostgresStore) RecordFailure(ctx context.Context, sourceURI, originatingFile, errMsg string) error {
	_, err := s.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s
			(source_uri, originating_file_id, processed_time, rows_loaded, rows_expected,
			 parse_error_count, status, error_message, processing_duration)
		 VALUES ($1, $2, $3, 0, 0, 0, $4, $5, 0)
		 ON CONFLICT (source_uri) DO NOTHING`, s.tables.Ledger),
		sourceURI, originatingFile, time.Now().UTC(), string(ingest.StatusFailed), errMsg,
	)
	if err != nil {
		return eris.Wrapf(err, "ledger: record failure %s", sourceURI)
	}
	return nil
}

// ListLedger returns the most recent ledger entries.
func (s *PostgresStore) ListLedger(ctx context.Context, limit int) ([]ingest.LedgerEntry, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT source_uri, originating_file_id, processed_time, rows_loaded,
			rows_expected, parse_error_count, status, error_message, processing_duration
		 FROM %s ORDER BY processed_time DESC LIMIT $1`, s.tables.Ledger),
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: list")
	}
	defer rows.Close()

	var entries []ingest.LedgerEntry
	for rows.Next() {
		var (
			e       ingest.LedgerEntry
			status  string
			errMsg  *string
			seconds float64
		)
		if err := rows.Scan(&e.SourceURI, &e.OriginatingFile, &e.ProcessedTime, &e.RowsLoaded,
			&e.RowsExpected, &e.ParseErrors, &status, &errMsg, &seconds); err != nil {
			return nil, eris.Wrap(err, "ledger: scan entry")
		}
		e.Status = ingest.Status(status)
		if errMsg != nil {
			e.ErrorMessage = *errMsg
		}
		e.Duration = time.Duration(seconds * float64(time.Second))
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CollectLedgerStats aggregates outcomes since the given cutoff.
func (s *PostgresStore) CollectLedgerStats(ctx context.Context, since time.Time) (*LedgerStats, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT status, COUNT(*) FROM %s WHERE processed_time >= $1 GROUP BY status`, s.tables.Ledger),
		since,
	)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: stats")
	}
	defer rows.Close()

	stats := &LedgerStats{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, eris.Wrap(err, "ledger: scan stats")
		}
		stats.Total += count
		switch ingest.Status(status) {
		case ingest.StatusSuccess:
			stats.Success += count
		case ingest.StatusPartial:
			stats.Partial += count
		case ingest.StatusFailed:
			stats.Failed += count
		}
	}
	return stats, rows.Err()
}

// LatestMonitoring returns the newest pipeline_monitoring row, or nil
// when the table is empty.
func (s *PostgresStore) LatestMonitoring(ctx context.Context) (*MonitoringRow, error) {
	var row MonitoringRow
	var details *string
	err := s.pool.QueryRow(ctx,
		`SELECT check_time, status, details FROM pipeline_monitoring ORDER BY check_time DESC LIMIT 1`,
	).Scan(&row.CheckTime, &row.Status, &details)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "monitoring: latest row")
	}
	if details != nil {
		row.Details = *details
	}
	return &row, nil
}

// ExecScript runs a multi-statement SQL script in one round trip.
func (s *PostgresStore) ExecScript(ctx context.Context, sql string) error {
	if _, err := s.pool.Exec(ctx, sql); err != nil {
		return eris.Wrap(err, "postgres: exec script")
	}
	return nil
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
