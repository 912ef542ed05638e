package repository

import (
	"strings"
	"time"
)

var timeframes = map[Timeframe]time.Duration{
	TF1m: time.Minute,
	TF5m: 5 * time.Minute,
	TF1h: time.Hour,
	TF1d: 24 * time.Hour,
}

// Duration is the length of one bar; unsupported timeframes count as one minute.
func (tf Timeframe) Duration() time.Duration {
	if d, ok := timeframes[tf]; ok {
		return d
	}
	return time.Minute
}

// Align rounds t down to the start of its bar. Daily bars start at UTC midnight.
func (tf Timeframe) Align(t time.Time) time.Time {
	return t.UTC().Truncate(tf.Duration())
}

func IsValidTimeframe(tf Timeframe) bool {
	_, ok := timeframes[tf]
	return ok
}

// NormalizeTimeframe maps host frequency names ("1m", "minute", "1d", "daily")
// onto a Timeframe, defaulting to one minute.
func NormalizeTimeframe(s string) Timeframe {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minute", "1min":
		return TF1m
	case "day", "daily", "1day":
		return TF1d
	}
	if tf := Timeframe(s); IsValidTimeframe(tf) {
		return tf
	}
	return TF1m
}
