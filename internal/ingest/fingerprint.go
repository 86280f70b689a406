package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// fingerprintFields are the canonical fields hashed into the row
// fingerprint, in this exact order. The order and the "|" delimiter must
// not change: downstream deduplication depends on fingerprints staying
// stable across releases.
var fingerprintFields = []string{"EventDt", "Source", "Filename", "Bytes", "UserName"}

// Fingerprint computes the deterministic SHA-256 hex digest over the
// canonical fields of a parsed line. Absent, empty, zero, and false values
// all collapse to the empty string, matching the historical fingerprint
// values already stored.
func Fingerprint(data map[string]any) string {
	parts := make([]string, len(fingerprintFields))
	for i, f := range fingerprintFields {
		parts[i] = canonicalField(data[f])
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func canonicalField(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if x == 0 {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if !x {
			return ""
		}
		// Capitalized to match digests already recorded by earlier
		// versions of the pipeline.
		return "True"
	default:
		return ""
	}
}
