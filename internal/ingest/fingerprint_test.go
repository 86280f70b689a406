package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func hexSum(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestFingerprint_CanonicalJoin(t *testing.T) {
	data := map[string]any{
		"EventDt":  "2024-03-15T10:30:00",
		"Source":   "ftp01",
		"Filename": "report.dat",
		"Bytes":    float64(2048),
		"UserName": "alice",
	}
	want := hexSum("2024-03-15T10:30:00|ftp01|report.dat|2048|alice")
	assert.Equal(t, want, Fingerprint(data))
}

func TestFingerprint_AbsentFieldsCollapse(t *testing.T) {
	// Missing, empty, zero, and false all hash as the empty string.
	empty := hexSum("||||")
	assert.Equal(t, empty, Fingerprint(map[string]any{}))
	assert.Equal(t, empty, Fingerprint(map[string]any{
		"EventDt":  "",
		"Source":   nil,
		"Filename": false,
		"Bytes":    float64(0),
	}))
}

func TestFingerprint_IgnoresOtherFields(t *testing.T) {
	base := map[string]any{"EventDt": "2024-01-01T00:00:00", "UserName": "bob"}
	withExtra := map[string]any{
		"EventDt":    "2024-01-01T00:00:00",
		"UserName":   "bob",
		"IpAddress":  "10.0.0.1",
		"StatusCode": float64(226),
	}
	assert.Equal(t, Fingerprint(base), Fingerprint(withExtra))
}

func TestFingerprint_DistinctRowsDiffer(t *testing.T) {
	a := map[string]any{"EventDt": "2024-01-01T00:00:00", "UserName": "bob"}
	b := map[string]any{"EventDt": "2024-01-01T00:00:01", "UserName": "bob"}
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_BoolFormatting(t *testing.T) {
	// A true value hashes as "True"; digests must match the ones already
	// stored for historical rows.
	data := map[string]any{"Source": true}
	assert.Equal(t, hexSum("|True|||"), Fingerprint(data))
}

func TestFingerprint_FloatFormatting(t *testing.T) {
	// Integral floats must not grow a ".0" suffix; digests are stable
	// against values round-tripped through JSON.
	data := map[string]any{"Bytes": float64(1048576)}
	assert.Equal(t, hexSum("|||1048576|"), Fingerprint(data))
}
