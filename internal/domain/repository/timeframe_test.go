package repository

import (
	"testing"
	"time"
)

func TestNormalizeTimeframe(t *testing.T) {
	cases := map[string]Timeframe{
		"":      TF1m,
		"1d":    TF1d,
		"daily": TF1d,
		"1h":    TF1h,
		"1s":    TF1m,
		"7m":    TF1m,
	}
	for in, want := range cases {
		if got := NormalizeTimeframe(in); got != want {
			t.Fatalf("NormalizeTimeframe(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestTimeframeAlign(t *testing.T) {
	at := time.Date(2024, 3, 4, 9, 17, 42, 0, time.UTC)
	if got := TF5m.Align(at); got.Minute() != 15 || got.Second() != 0 {
		t.Fatalf("5m align %v", got)
	}
	if got := TF1d.Align(at); !got.Equal(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("1d align %v", got)
	}
	if Timeframe("weird").Duration() != time.Minute {
		t.Fatal("fallback duration")
	}
}
