package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ftplog-ingest/internal/config"
)

func setTestConfig(t *testing.T, c *config.Config) {
	t.Helper()
	old := cfg
	cfg = c
	t.Cleanup(func() { cfg = old })
}

func TestResolveProfile_Default(t *testing.T) {
	setTestConfig(t, &config.Config{
		Ingest: config.IngestConfig{
			Bucket:       "ftp-logs",
			Prefix:       "logs",
			Suffix:       ".json",
			BaseTable:    "base_ftplog",
			ArchiveTable: "archive_ftplog",
		},
	})

	p, err := resolveProfile("")
	require.NoError(t, err)
	assert.Equal(t, "default", p.Name)
	assert.Equal(t, "ftp-logs", p.Bucket)
	assert.Equal(t, "logs", p.Prefix)
	assert.Equal(t, "base_ftplog", p.BaseTable)
}

func TestResolveProfile_Named(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
profiles:
  - name: partner
    bucket: partner-logs
    base_table: base_partner
`), 0o644))

	setTestConfig(t, &config.Config{
		Ingest: config.IngestConfig{
			Prefix:       "logs",
			Suffix:       ".json",
			ArchiveTable: "archive_ftplog",
			ProfilesPath: path,
		},
	})

	p, err := resolveProfile("partner")
	require.NoError(t, err)
	assert.Equal(t, "partner-logs", p.Bucket)
	assert.Equal(t, "base_partner", p.BaseTable)
	// Unset fields inherit the top-level ingest defaults.
	assert.Equal(t, "archive_ftplog", p.ArchiveTable)
}

func TestResolveProfile_NotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiles:\n  - name: only\n"), 0o644))

	setTestConfig(t, &config.Config{
		Ingest: config.IngestConfig{ProfilesPath: path},
	})

	_, err := resolveProfile("other")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestResolveProfile_NoProfilesPath(t *testing.T) {
	setTestConfig(t, &config.Config{})

	_, err := resolveProfile("partner")
	require.Error(t, err)
}
