package ingest

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// placeholderSuffix marks empty keep-alive objects some uploaders create;
// they are always excluded regardless of the configured pattern.
const placeholderSuffix = ".placeholder"

// errMessageLimit bounds the error text stored in a degraded ledger entry.
const errMessageLimit = 1000

// ObjectStore fetches raw file content from a bucket.
type ObjectStore interface {
	// FetchText retrieves the full object content as UTF-8 text.
	FetchText(ctx context.Context, bucket, object string) (string, error)

	// URI returns the canonical identity of an object, used as the
	// ledger's idempotency key.
	URI(bucket, object string) string
}

// Sink commits row batches to the structured and archive tables. A
// row-level failure fails the whole call; per-row outcomes are not
// reported.
type Sink interface {
	InsertBase(ctx context.Context, table string, rows []BaseRow) error
	InsertArchive(ctx context.Context, table string, rows []ArchiveRow) error
}

// Ledger is the processed-files idempotency and audit record.
type Ledger interface {
	// AlreadyProcessed reports whether a ledger entry exists for the URI.
	AlreadyProcessed(ctx context.Context, sourceURI string) (bool, error)

	// Record inserts the entry if no entry exists for its SourceURI.
	// Returns false when a concurrent invocation recorded the file first.
	Record(ctx context.Context, e LedgerEntry) (bool, error)

	// RecordFailure writes a degraded FAILED entry with zero counts.
	RecordFailure(ctx context.Context, sourceURI, originatingFile, errMsg string) error
}

// Options bundles the per-source processing configuration. The same core
// serves every entry point; nothing is read from the environment here.
type Options struct {
	Prefix       string // required object path prefix, e.g. "logs"
	Suffix       string // required object extension, e.g. ".json"
	BaseTable    string
	ArchiveTable string
}

// Processor runs the per-file ingestion state machine: filter, idempotency
// gate, fetch, per-line transform, load, classify, ledger write.
type Processor struct {
	store   ObjectStore
	sink    Sink
	ledger  Ledger
	opts    Options
	pattern *regexp.Regexp
	now     func() time.Time
}

// NewProcessor creates a Processor for one ingest source.
func NewProcessor(store ObjectStore, sink Sink, ledger Ledger, opts Options) *Processor {
	pattern := regexp.MustCompile(
		"^" + regexp.QuoteMeta(opts.Prefix) + "/.*" + regexp.QuoteMeta(opts.Suffix) + "$",
	)
	return &Processor{
		store:   store,
		sink:    sink,
		ledger:  ledger,
		opts:    opts,
		pattern: pattern,
		now:     time.Now,
	}
}

// Process ingests a single object identified by an arrival notification.
// Non-matching and already-processed objects end silently. Fetch errors,
// load errors, and success-path ledger write errors propagate to the
// caller, which owns retry policy.
func (p *Processor) Process(ctx context.Context, bucket, object string) error {
	uri := p.store.URI(bucket, object)
	log := zap.L().With(
		zap.String("component", "ingest.processor"),
		zap.String("source_uri", uri),
	)

	// Non-matching uploads are expected background noise, not errors.
	if !p.pattern.MatchString(object) {
		log.Debug("skipping non-target object", zap.String("object", object))
		return nil
	}
	if strings.HasSuffix(object, placeholderSuffix) {
		log.Debug("skipping placeholder object", zap.String("object", object))
		return nil
	}

	done, err := p.ledger.AlreadyProcessed(ctx, uri)
	if err != nil {
		return eris.Wrapf(err, "ingest: idempotency check for %s", uri)
	}
	if done {
		log.Info("file already processed")
		return nil
	}

	originatingFile := ExtractOriginatingFile(uri)

	// A failed fetch propagates with no ledger write: the expected row
	// count is not knowable yet, so a degraded entry would be noise.
	content, err := p.store.FetchText(ctx, bucket, object)
	if err != nil {
		return eris.Wrapf(err, "ingest: fetch %s", uri)
	}

	loadTime := p.now().UTC()
	baseRows, archiveRows, parseErrors := p.transformAll(content, uri, originatingFile, loadTime)

	log.Info("transformed file",
		zap.Int("rows_parsed", len(baseRows)),
		zap.Int("parse_errors", parseErrors),
	)

	start := p.now()
	if err := p.commit(ctx, baseRows, archiveRows); err != nil {
		log.Error("load failed", zap.Error(err))
		// Best-effort failure record; its own failure must never mask
		// the load error.
		ferr := p.ledger.RecordFailure(ctx, uri, originatingFile, truncate(err.Error(), errMessageLimit))
		if ferr != nil {
			log.Error("failed to record load failure", zap.Error(ferr))
		}
		return eris.Wrapf(err, "ingest: load %s", uri)
	}
	duration := p.now().Sub(start)

	status, message := Classify(len(archiveRows), len(baseRows))
	entry := LedgerEntry{
		SourceURI:       uri,
		OriginatingFile: originatingFile,
		ProcessedTime:   p.now().UTC(),
		RowsLoaded:      len(baseRows),
		RowsExpected:    len(archiveRows),
		ParseErrors:     parseErrors,
		Status:          status,
		ErrorMessage:    message,
		Duration:        duration,
	}

	// An unrecorded success would silently break idempotency for future
	// attempts, so this write failure is fatal.
	inserted, err := p.ledger.Record(ctx, entry)
	if err != nil {
		return eris.Wrapf(err, "ingest: record ledger entry for %s", uri)
	}
	if !inserted {
		log.Warn("concurrent invocation recorded this file first")
	}

	log.Info("file processed",
		zap.String("status", string(status)),
		zap.Int("rows_loaded", len(baseRows)),
		zap.Duration("duration", duration),
	)
	return nil
}

// transformAll splits the content into lines and transforms each non-blank
// line. Blank lines are skipped entirely: no archive row, no counts. The
// split carries no line-length limit; an oversized line still reaches the
// archive intact.
func (p *Processor) transformAll(content, uri, originatingFile string, loadTime time.Time) ([]BaseRow, []ArchiveRow, int) {
	var (
		baseRows    []BaseRow
		archiveRows []ArchiveRow
		parseErrors int
	)

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		base, archive := TransformLine(line, uri, originatingFile, loadTime)
		archiveRows = append(archiveRows, archive)
		if base != nil {
			baseRows = append(baseRows, *base)
		} else {
			parseErrors++
		}
	}

	return baseRows, archiveRows, parseErrors
}

// commit inserts the base batch first, then the archive batch. Empty
// batches are skipped rather than sent as zero-row requests. A failure in
// either aborts before the ledger write.
func (p *Processor) commit(ctx context.Context, baseRows []BaseRow, archiveRows []ArchiveRow) error {
	if len(baseRows) > 0 {
		if err := p.sink.InsertBase(ctx, p.opts.BaseTable, baseRows); err != nil {
			return eris.Wrapf(err, "ingest: insert into %s", p.opts.BaseTable)
		}
	}
	if len(archiveRows) > 0 {
		if err := p.sink.InsertArchive(ctx, p.opts.ArchiveTable, archiveRows); err != nil {
			return eris.Wrapf(err, "ingest: insert into %s", p.opts.ArchiveTable)
		}
	}
	return nil
}
