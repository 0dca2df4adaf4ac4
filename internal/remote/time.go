package remote

import (
	"time"
)

// Wire timestamps are ISO-8601 with microsecond precision; some deployments
// omit the fractional seconds.
const (
	wireTimeFormat   = "2006-01-02T15:04:05.000000Z"
	wireTimeFallback = "2006-01-02T15:04:05Z"
)

var parseFormats = []string{
	wireTimeFormat,
	wireTimeFallback,
	time.RFC3339Nano,
	time.RFC3339,
}

// ParseTime converts a wire timestamp to epoch milliseconds. An unparseable
// value falls back to now rather than failing the record.
func ParseTime(s string) int64 {
	for _, f := range parseFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t.UnixMilli()
		}
	}
	return time.Now().UnixMilli()
}

// FormatTime converts epoch milliseconds to the wire timestamp format.
func FormatTime(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(wireTimeFormat)
}
