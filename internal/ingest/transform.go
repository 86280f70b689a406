package ingest

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// linePreviewLen bounds how much of a malformed line is logged.
const linePreviewLen = 100

// TransformLine parses one NDJSON line into a base row and an archive row.
// The archive row is always produced from the literal line text. On a JSON
// parse failure the base row is nil and a truncated preview of the line is
// logged; the caller counts the failure and continues.
func TransformLine(line, sourceURI, originatingFile string, loadTime time.Time) (*BaseRow, ArchiveRow) {
	archive := ArchiveRow{
		RawLine:         line,
		ArchivedTime:    loadTime,
		ProcessDate:     loadTime,
		OriginatingFile: originatingFile,
		SourceURI:       sourceURI,
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(line), &data); err != nil {
		zap.L().Warn("ingest: json parse error",
			zap.Error(err),
			zap.String("line_preview", truncate(line, linePreviewLen)),
		)
		return nil, archive
	}

	eventTime, hasEventTime := time.Time{}, false
	if s, ok := data["EventDt"].(string); ok {
		eventTime, hasEventTime = ParseEventTimestamp(s)
	}

	sourceEventTime := loadTime
	if hasEventTime {
		sourceEventTime = eventTime
	}

	base := &BaseRow{
		LoadTime:        loadTime,
		SourceEventTime: sourceEventTime,
		OriginatingFile: originatingFile,
		SourceURI:       sourceURI,
		Action:          optString(data, "Action"),
		ByteCount:       CoerceInt(data["Bytes"]),
		CustomerID:      CoerceInt(data["CustId"]),
		Filename:        optString(data, "Filename"),
		HashCode:        CoerceInt(data["HashCode"]),
		Fingerprint:     Fingerprint(data),
		IPAddress:       optString(data, "IpAddress"),
		PartnerName:     optString(data, "PartnerName"),
		SessionID:       optString(data, "SessionId"),
		Source:          optString(data, "Source"),
		UserName:        optString(data, "UserName"),
		ServerResponse:  optString(data, "ServerResponse"),
		RawData:         optString(data, "RawData"),
		// StatusCode intentionally excluded from the projection.
	}
	if hasEventTime {
		base.EventTime = &eventTime
	}

	return base, archive
}

func optString(data map[string]any, key string) *string {
	s, ok := data[key].(string)
	if !ok {
		return nil
	}
	return &s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
