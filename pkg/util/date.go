package util

import (
	"strconv"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		if ts > 1e11 { // ms
			ts /= 1000
		}
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseJSONTime parses a raw JSON time value, either a quoted string or a bare number.
// Null and empty values report false.
func ParseJSONTime(raw []byte) (time.Time, bool) {
	s := string(raw)
	if s == "" || s == "null" {
		return time.Time{}, false
	}
	if u, err := strconv.Unquote(s); err == nil {
		s = u
	}
	return ParseTime(s)
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}
