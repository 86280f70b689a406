package ingest

import "fmt"

// Status is the tri-state outcome of one file-processing attempt.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusPartial Status = "PARTIAL"
	StatusFailed  Status = "FAILED"
)

// Classify derives the ledger status and diagnostic message from the
// archive (expected) and base (loaded) row counts. The check order
// matters: a file whose every row failed to parse is FAILED, not PARTIAL,
// even though rows existed.
func Classify(rowsExpected, rowsLoaded int) (Status, string) {
	switch {
	case rowsExpected == 0:
		return StatusFailed, "no rows found in file"
	case rowsLoaded == 0:
		return StatusFailed, "no rows loaded from file"
	case rowsLoaded < rowsExpected:
		return StatusPartial, fmt.Sprintf("parsed %d of %d rows", rowsLoaded, rowsExpected)
	default:
		return StatusSuccess, ""
	}
}
