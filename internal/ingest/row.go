// Package ingest implements the NDJSON transform-and-load core: per-line
// parsing with partial-failure tolerance, canonical field extraction, row
// fingerprinting, and the idempotent per-file load protocol.
package ingest

import "time"

// BaseRow is the structured projection of one successfully parsed NDJSON
// line, destined for the base table. Fields absent in the input are nil,
// never a sentinel string. The upstream StatusCode field is deliberately
// not projected.
type BaseRow struct {
	LoadTime        time.Time
	SourceEventTime time.Time
	OriginatingFile string
	SourceURI       string
	Action          *string
	ByteCount       *int64
	CustomerID      *int64
	EventTime       *time.Time
	Filename        *string
	HashCode        *int64
	Fingerprint     string
	IPAddress       *string
	PartnerName     *string
	SessionID       *string
	Source          *string
	UserName        *string
	ServerResponse  *string
	RawData         *string
}

// ArchiveRow preserves one raw input line verbatim. Exactly one archive row
// is produced per non-blank line, whether or not the line parsed.
type ArchiveRow struct {
	RawLine         string
	ArchivedTime    time.Time
	ProcessDate     time.Time
	OriginatingFile string
	SourceURI       string
}

// LedgerEntry records the outcome of one file-processing attempt in the
// processed-files ledger. SourceURI is the idempotency key.
type LedgerEntry struct {
	SourceURI       string
	OriginatingFile string
	ProcessedTime   time.Time
	RowsLoaded      int
	RowsExpected    int
	ParseErrors     int
	Status          Status
	ErrorMessage    string
	Duration        time.Duration
}
