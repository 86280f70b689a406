package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/ftplog-ingest/internal/ingest"
)

func TestFormatLedgerEntries(t *testing.T) {
	entries := []ingest.LedgerEntry{
		{
			SourceURI:       "gs://b/logs/feed.json",
			OriginatingFile: "feed",
			ProcessedTime:   time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC),
			RowsLoaded:      10,
			RowsExpected:    10,
			Status:          ingest.StatusSuccess,
			Duration:        1200 * time.Millisecond,
		},
		{
			SourceURI:       "gs://b/logs/bad.json",
			OriginatingFile: "bad",
			ProcessedTime:   time.Date(2024, 6, 1, 12, 31, 0, 0, time.UTC),
			Status:          ingest.StatusFailed,
			ErrorMessage:    "no rows found in file",
		},
	}

	var buf bytes.Buffer
	formatLedgerEntries(&buf, entries)
	out := buf.String()

	assert.Contains(t, out, "PROCESSED")
	assert.Contains(t, out, "SUCCESS")
	assert.Contains(t, out, "feed")
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "no rows found in file")
	assert.Equal(t, 4, strings.Count(out, "\n"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly-10", truncate("exactly-10", 10))
	assert.Equal(t, "0123...", truncate("0123456789", 7))
}
