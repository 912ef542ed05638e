package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
	got, ok = ParseTime(strconv.FormatInt(ts*1000, 10))
	if !ok || got.Unix() != ts {
		t.Fatalf("millis not folded: %v", got)
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestParseJSONTime(t *testing.T) {
	if _, ok := ParseJSONTime([]byte("null")); ok {
		t.Fatal("null should not parse")
	}
	a, ok := ParseJSONTime([]byte(`"2024-03-01T09:15:00Z"`))
	if !ok || a.Hour() != 9 || a.Minute() != 15 {
		t.Fatalf("quoted RFC3339: %v %v", a, ok)
	}
	b, ok := ParseJSONTime([]byte("1709284500000"))
	if !ok || b.Unix() != 1709284500 {
		t.Fatalf("bare millis: %v %v", b, ok)
	}
}
