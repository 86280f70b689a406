package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

var originatingFileRe = regexp.MustCompile(`/([^/]+)\.json$`)

// ExtractOriginatingFile extracts the originating filename (without
// extension) from a storage URI such as "gs://bucket/logs/foo.json" or a
// bare path like "logs/foo.json". Returns "unknown" when the URI has no
// recognized .json segment. Never fails.
func ExtractOriginatingFile(uri string) string {
	m := originatingFileRe.FindStringSubmatch(uri)
	if m == nil {
		return "unknown"
	}
	return m[1]
}

// eventTimeLayouts lists the accepted ISO 8601 variants in the order they
// are tried. All variants normalize to the same internal representation.
var eventTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.999999999Z07:00",
}

// ParseEventTimestamp parses an ISO 8601 timestamp string, accepting
// variants with and without fractional seconds and a trailing UTC
// designator. Returns false (not an error) when the value is empty or
// unparseable, logging a diagnostic for the latter.
func ParseEventTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	zap.L().Warn("ingest: could not parse event timestamp", zap.String("value", s))
	return time.Time{}, false
}

// CoerceInt converts a loosely-typed JSON value to an int64 when possible.
// Numeric strings are accepted; nil input and conversion failures yield
// nil. Never panics.
func CoerceInt(v any) *int64 {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		n := int64(x)
		return &n
	case int:
		n := int64(x)
		return &n
	case int64:
		return &x
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return nil
		}
		return &n
	default:
		return nil
	}
}
