package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ftplog-ingest/internal/ingest"
)

var testTables = Tables{Base: "base_ftplog", Archive: "archive_ftplog", Ledger: "processed_files"}

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return NewPostgresFromPool(pool, testTables), pool
}

func strPtr(s string) *string { return &s }

func TestPostgres_InsertBase(t *testing.T) {
	st, pool := newMockStore(t)

	pool.ExpectCopyFrom(pgx.Identifier{"base_ftplog"}, baseColumns).WillReturnResult(2)

	now := time.Now().UTC()
	rows := []ingest.BaseRow{
		{LoadTime: now, SourceEventTime: now, OriginatingFile: "f", SourceURI: "u", Fingerprint: "aa", UserName: strPtr("alice")},
		{LoadTime: now, SourceEventTime: now, OriginatingFile: "f", SourceURI: "u", Fingerprint: "bb"},
	}
	require.NoError(t, st.InsertBase(context.Background(), "base_ftplog", rows))
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestPostgres_InsertBase_EmptyIsNoop(t *testing.T) {
	st, pool := newMockStore(t)
	require.NoError(t, st.InsertBase(context.Background(), "base_ftplog", nil))
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestPostgres_InsertArchive(t *testing.T) {
	st, pool := newMockStore(t)

	pool.ExpectCopyFrom(pgx.Identifier{"archive_ftplog"}, archiveColumns).WillReturnResult(1)

	now := time.Now().UTC()
	rows := []ingest.ArchiveRow{
		{RawLine: `{"a":1}`, ArchivedTime: now, ProcessDate: now, OriginatingFile: "f", SourceURI: "u"},
	}
	require.NoError(t, st.InsertArchive(context.Background(), "archive_ftplog", rows))
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestPostgres_AlreadyProcessed(t *testing.T) {
	st, pool := newMockStore(t)

	pool.ExpectQuery("SELECT 1 FROM processed_files").
		WithArgs("gs://b/logs/f.json").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

	done, err := st.AlreadyProcessed(context.Background(), "gs://b/logs/f.json")
	require.NoError(t, err)
	assert.True(t, done)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestPostgres_AlreadyProcessed_NoRows(t *testing.T) {
	st, pool := newMockStore(t)

	pool.ExpectQuery("SELECT 1 FROM processed_files").
		WithArgs("gs://b/logs/new.json").
		WillReturnError(pgx.ErrNoRows)

	done, err := st.AlreadyProcessed(context.Background(), "gs://b/logs/new.json")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestPostgres_Record(t *testing.T) {
	st, pool := newMockStore(t)

	e := ingest.LedgerEntry{
		SourceURI:       "gs://b/logs/f.json",
		OriginatingFile: "f",
		ProcessedTime:   time.Now().UTC(),
		RowsLoaded:      10,
		RowsExpected:    10,
		Status:          ingest.StatusSuccess,
		Duration:        1500 * time.Millisecond,
	}

	pool.ExpectExec("INSERT INTO processed_files").
		WithArgs(e.SourceURI, e.OriginatingFile, e.ProcessedTime, 10, 10, 0,
			"SUCCESS", (*string)(nil), 1.5).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	inserted, err := st.Record(context.Background(), e)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestPostgres_Record_ConflictMeansAlreadyRecorded(t *testing.T) {
	st, pool := newMockStore(t)

	// ON CONFLICT DO NOTHING: zero rows affected is the signal that a
	// concurrent invocation recorded the file first.
	pool.ExpectExec("INSERT INTO processed_files").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err := st.Record(context.Background(), ingest.LedgerEntry{SourceURI: "u", Status: ingest.StatusSuccess})
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestPostgres_RecordFailure(t *testing.T) {
	st, pool := newMockStore(t)

	pool.ExpectExec("INSERT INTO processed_files").
		WithArgs("u", "f", pgxmock.AnyArg(), "FAILED", "boom").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, st.RecordFailure(context.Background(), "u", "f", "boom"))
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestPostgres_RecordFailure_Error(t *testing.T) {
	st, pool := newMockStore(t)

	pool.ExpectExec("INSERT INTO processed_files").
		WillReturnError(errors.New("connection lost"))

	err := st.RecordFailure(context.Background(), "u", "f", "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record failure")
}

func TestPostgres_ListLedger(t *testing.T) {
	st, pool := newMockStore(t)

	now := time.Now().UTC()
	pool.ExpectQuery("SELECT source_uri, originating_file_id").
		WithArgs(5).
		WillReturnRows(pgxmock.NewRows([]string{
			"source_uri", "originating_file_id", "processed_time", "rows_loaded",
			"rows_expected", "parse_error_count", "status", "error_message", "processing_duration",
		}).
			AddRow("u1", "f1", now, 10, 10, 0, "SUCCESS", (*string)(nil), 0.5).
			AddRow("u2", "f2", now, 3, 9, 6, "PARTIAL", strPtr("parsed 3 of 9 rows"), 1.25))

	entries, err := st.ListLedger(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, ingest.StatusSuccess, entries[0].Status)
	assert.Empty(t, entries[0].ErrorMessage)
	assert.Equal(t, 500*time.Millisecond, entries[0].Duration)

	assert.Equal(t, ingest.StatusPartial, entries[1].Status)
	assert.Equal(t, "parsed 3 of 9 rows", entries[1].ErrorMessage)
}

func TestPostgres_CollectLedgerStats(t *testing.T) {
	st, pool := newMockStore(t)

	since := time.Now().UTC().Add(-24 * time.Hour)
	pool.ExpectQuery("SELECT status, COUNT").
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("SUCCESS", 17).
			AddRow("PARTIAL", 2).
			AddRow("FAILED", 1))

	stats, err := st.CollectLedgerStats(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, 20, stats.Total)
	assert.Equal(t, 17, stats.Success)
	assert.Equal(t, 2, stats.Partial)
	assert.Equal(t, 1, stats.Failed)
}

func TestPostgres_LatestMonitoring(t *testing.T) {
	st, pool := newMockStore(t)

	now := time.Now().UTC()
	pool.ExpectQuery("SELECT check_time, status, details FROM pipeline_monitoring").
		WillReturnRows(pgxmock.NewRows([]string{"check_time", "status", "details"}).
			AddRow(now, "ALERT", strPtr("load gap detected")))

	row, err := st.LatestMonitoring(context.Background())
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "ALERT", row.Status)
	assert.Equal(t, "load gap detected", row.Details)
}

func TestPostgres_LatestMonitoring_Empty(t *testing.T) {
	st, pool := newMockStore(t)

	pool.ExpectQuery("SELECT check_time, status, details FROM pipeline_monitoring").
		WillReturnError(pgx.ErrNoRows)

	row, err := st.LatestMonitoring(context.Background())
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestPostgres_Migrate(t *testing.T) {
	st, pool := newMockStore(t)

	pool.ExpectExec("CREATE TABLE IF NOT EXISTS base_ftplog").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, st.Migrate(context.Background()))
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestPostgres_ExecScript(t *testing.T) {
	st, pool := newMockStore(t)

	pool.ExpectExec("DELETE FROM base_ftplog").
		WillReturnResult(pgxmock.NewResult("DELETE", 100))

	require.NoError(t, st.ExecScript(context.Background(), "DELETE FROM base_ftplog WHERE event_time < now() - interval '90 days'"))
	assert.NoError(t, pool.ExpectationsWereMet())
}
