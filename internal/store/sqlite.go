package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/ftplog-ingest/internal/ingest"
)

// SQLiteStore implements Store using modernc.org/sqlite. It exists for
// local development and tests; Postgres is the production target.
type SQLiteStore struct {
	db     *sql.DB
	tables Tables
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string, tables Tables) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, tables: tables}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS %[1]s (
	load_time         DATETIME NOT NULL,
	source_event_time DATETIME NOT NULL,
	originating_file_id TEXT NOT NULL,
	source_uri        TEXT NOT NULL,
	action            TEXT,
	byte_count        INTEGER,
	customer_id       INTEGER,
	event_time        DATETIME,
	filename          TEXT,
	hash_code         INTEGER,
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
	archived_time     DATETIME NOT NULL,
	process_date      DATETIME NOT NULL,
	originating_file_id TEXT NOT NULL,
	source_uri        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_%[2]s_source_uri ON %[2]s(source_uri);

CREATE TABLE IF NOT EXISTS %[3]s (
	source_uri          TEXT NOT NULL UNIQUE,
	originating_file_id TEXT NOT NULL,
	processed_time      DATETIME NOT NULL,
	rows_loaded         INTEGER NOT NULL DEFAULT 0,
	rows_expected       INTEGER NOT NULL DEFAULT 0,
	parse_error_count   INTEGER NOT NULL DEFAULT 0,
	status              TEXT NOT NULL,
	error_message       TEXT,
	processing_duration REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS pipeline_monitoring (
	check_time DATETIME NOT NULL,
	status     TEXT NOT NULL,
	details    TEXT
);

CREATE INDEX IF NOT EXISTS idx_pipeline_monitoring_check_time ON pipeline_monitoring(check_time);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	script := fmt.Sprintf(sqliteMigration, s.tables.Base, s.tables.Archive, s.tables.Ledger)
	_, err := s.db.ExecContext(ctx, script)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertBase inserts structured rows inside a single transaction.
func (s *SQLiteStore) InsertBase(ctx context.Context, table string, rows []ingest.BaseRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s
			(load_time, source_event_time, originating_file_id, source_uri, action,
			 byte_count, customer_id, event_time, filename, hash_code, fingerprint,
			 ip_address, partner_name, session_id, source, user_name, server_response, raw_data)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, table))
	if err != nil {
		return eris.Wrapf(err, "sqlite: prepare insert into %s", table)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, baseValues(r)...); err != nil {
			return eris.Wrapf(err, "sqlite: insert into %s", table)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

// InsertArchive inserts raw-line rows inside a single transaction.
func (s *SQLiteStore) InsertArchive(ctx context.Context, table string, rows []ingest.ArchiveRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (raw_line_text, archived_time, process_date, originating_file_id, source_uri)
		 VALUES (?, ?, ?, ?, ?)`, table))
	if err != nil {
		return eris.Wrapf(err, "sqlite: prepare insert into %s", table)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, archiveValues(r)...); err != nil {
			return eris.Wrapf(err, "sqlite: insert into %s", table)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (s *SQLiteStore) AlreadyProcessed(ctx context.Context, sourceURI string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT 1 FROM %s WHERE source_uri = ? LIMIT 1`, s.tables.Ledger),
		sourceURI,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "ledger: check %s", sourceURI)
	}
	return true, nil
}

func (s *SQLiteStore) Record(ctx context.Context, e ingest.LedgerEntry) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT OR IGNORE INTO %s
			(source_uri, originating_file_id, processed_time, rows_loaded, rows_expected,
			 parse_error_count, status, error_message, processing_duration)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.tables.Ledger),
		e.SourceURI, e.OriginatingFile, e.ProcessedTime, e.RowsLoaded, e.RowsExpected,
		e.ParseErrors, string(e.Status), nullableText(e.ErrorMessage), e.Duration.Seconds(),
	)
	if err != nil {
		return false, eris.Wrapf(err, "ledger: record %s", e.SourceURI)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "ledger: rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) RecordFailure(ctx context.Context, sourceURI, originatingFile, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT OR IGNORE INTO %s
			(source_uri, originating_file_id, processed_time, rows_loaded, rows_expected,
			 parse_error_count, status, error_message, processing_duration)
		 VALUES (?, ?, ?, 0, 0, 0, ?, ?, 0)`, s.tables.Ledger),
		sourceURI, originatingFile, time.Now().UTC(), string(ingest.StatusFailed), errMsg,
	)
	return eris.Wrapf(err, "ledger: record failure %s", sourceURI)
}

func (s *SQLiteStore) ListLedger(ctx context.Context, limit int) ([]ingest.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT source_uri, originating_file_id, processed_time, rows_loaded,
			rows_expected, parse_error_count, status, error_message, processing_duration
		 FROM %s ORDER BY processed_time DESC LIMIT ?`, s.tables.Ledger),
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
			errMsg  sql.NullString
			seconds float64
		)
		if err := rows.Scan(&e.SourceURI, &e.OriginatingFile, &e.ProcessedTime, &e.RowsLoaded,
			&e.RowsExpected, &e.ParseErrors, &status, &errMsg, &seconds); err != nil {
			return nil, eris.Wrap(err, "ledger: scan entry")
		}
		e.Status = ingest.Status(status)
		e.ErrorMessage = errMsg.String
		e.Duration = time.Duration(seconds * float64(time.Second))
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "ledger: list iterate")
}

func (s *SQLiteStore) CollectLedgerStats(ctx context.Context, since time.Time) (*LedgerStats, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT status, COUNT(*) FROM %s WHERE processed_time >= ? GROUP BY status`, s.tables.Ledger),
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
	return stats, eris.Wrap(rows.Err(), "ledger: stats iterate")
}

func (s *SQLiteStore) LatestMonitoring(ctx context.Context) (*MonitoringRow, error) {
	var row MonitoringRow
	var details sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT check_time, status, details FROM pipeline_monitoring ORDER BY check_time DESC LIMIT 1`,
	).Scan(&row.CheckTime, &row.Status, &details)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: latest row")
	}
	row.Details = details.String
	return &row, nil
}

func (s *SQLiteStore) ExecScript(ctx context.Context, script string) error {
	_, err := s.db.ExecContext(ctx, script)
	return eris.Wrap(err, "sqlite: exec script")
}
