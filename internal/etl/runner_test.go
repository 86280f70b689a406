package etl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ftplog-ingest/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(
		filepath.Join(t.TempDir(), "etl.db"),
		store.Tables{Base: "base_ftplog", Archive: "archive_ftplog", Ledger: "processed_files"},
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestRunner_Run(t *testing.T) {
	st := newTestStore(t)

	script := filepath.Join(t.TempDir(), "etl_sql.sql")
	require.NoError(t, os.WriteFile(script, []byte(`
		CREATE TABLE IF NOT EXISTS daily_rollup (day TEXT, loads INTEGER);
		INSERT INTO daily_rollup VALUES ('2024-06-01', 3);
	`), 0o644))

	r := NewRunner(st, script)
	result, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", result.Status)
	assert.NotEmpty(t, result.JobID)
	assert.Empty(t, result.Error)
}

func TestRunner_Run_MissingScript(t *testing.T) {
	st := newTestStore(t)

	r := NewRunner(st, filepath.Join(t.TempDir(), "nope.sql"))
	result, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, "FAILED", result.Status)
	assert.NotEmpty(t, result.Error)
}

func TestRunner_Run_BadSQL(t *testing.T) {
	st := newTestStore(t)

	script := filepath.Join(t.TempDir(), "broken.sql")
	require.NoError(t, os.WriteFile(script, []byte(`SELEKT * FROM nothing;`), 0o644))

	r := NewRunner(st, script)
	result, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, "FAILED", result.Status)
}
