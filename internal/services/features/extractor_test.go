package features

import (
	"math"
	"testing"

	"StratRun/internal/domain/models"
)

func closes(xs ...float64) models.Window {
	w := models.Window{Frequency: "1d"}
	for _, x := range xs {
		w.Candles = append(w.Candles, models.Candle{Close: x})
	}
	return w
}

func TestLogReturns(t *testing.T) {
	rets := LogReturns(closes(100, 110, 0, 121))
	if len(rets) != 3 {
		t.Fatalf("len %d", len(rets))
	}
	if math.Abs(rets[0]-math.Log(1.1)) > 1e-12 || rets[1] != 0 || rets[2] != 0 {
		t.Fatalf("returns %v", rets)
	}
	if LogReturns(closes(1)) != nil {
		t.Fatalf("single bar has no return")
	}
}

func TestRealizedVolatility(t *testing.T) {
	if v := RealizedVolatility([]float64{0.01, 0.01, 0.01}, 3, 252); v > 1e-12 {
		t.Fatalf("constant returns vol %v", v)
	}
	got := RealizedVolatility([]float64{0.01, -0.01}, 2, 1)
	// sample variance of {0.01, -0.01} is 2e-4
	if math.Abs(got-math.Sqrt(2e-4)) > 1e-12 {
		t.Fatalf("vol %v", got)
	}
	if RealizedVolatility([]float64{0.01}, 5, 252) != 0 {
		t.Fatalf("short series should be 0")
	}
}

func TestBarsPerYear(t *testing.T) {
	if BarsPerYear("1d") != 252 || BarsPerYear("1m") != 375*252 || BarsPerYear("1h") != 7*252 {
		t.Fatalf("bars per year mismatch")
	}
	if WindowVolatility(closes(100, 100, 100)) != 0 {
		t.Fatalf("flat window vol")
	}
}
