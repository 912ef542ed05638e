package patterns

import (
	"math"
	"testing"
)

// path linearly joins (index, price) knots.
func path(knots ...[2]float64) []float64 {
	last := int(knots[len(knots)-1][0])
	out := make([]float64, last+1)
	for k := 1; k < len(knots); k++ {
		i0, p0 := int(knots[k-1][0]), knots[k-1][1]
		i1, p1 := int(knots[k][0]), knots[k][1]
		for i := i0; i <= i1; i++ {
			out[i] = p0 + (p1-p0)*float64(i-i0)/float64(i1-i0)
		}
	}
	return out
}

func TestCupRetracement(t *testing.T) {
	closes := path([2]float64{0, 100}, [2]float64{20, 80}, [2]float64{45, 110}, [2]float64{55, 105}, [2]float64{59, 107})
	got, sw := CupRetracement(closes, DefaultCupConfig())
	if got != 1 {
		t.Fatalf("expected cup signal, swing %+v", sw)
	}
	if sw.LowIndex != 20 || sw.HighIndex != 45 || sw.Pullback != 105 {
		t.Fatalf("unexpected swing %+v", sw)
	}
}

func TestCupRetracementDeepPullback(t *testing.T) {
	closes := path([2]float64{0, 100}, [2]float64{20, 80}, [2]float64{45, 110}, [2]float64{55, 95}, [2]float64{59, 97})
	if got, _ := CupRetracement(closes, DefaultCupConfig()); got != 0 {
		t.Fatalf("deep pullback must not signal")
	}
}

func TestCupRetracementAnchorsBack(t *testing.T) {
	// a longer window anchors on the close 60 bars back, not the first one
	closes := path([2]float64{0, 200}, [2]float64{40, 100}, [2]float64{60, 80}, [2]float64{85, 110}, [2]float64{95, 105}, [2]float64{99, 107})
	if got, sw := CupRetracement(closes, DefaultCupConfig()); got != 1 || sw.Reference != closes[40] {
		t.Fatalf("got %d swing %+v", got, sw)
	}
}

func TestCupRetracementShortWindow(t *testing.T) {
	if got, _ := CupRetracement([]float64{1, 2, 3}, DefaultCupConfig()); got != 0 {
		t.Fatalf("short window must be 0")
	}
}

func TestCupRetracementNoPullback(t *testing.T) {
	closes := path([2]float64{0, 100}, [2]float64{20, 80}, [2]float64{59, 120})
	if got, _ := CupRetracement(closes, DefaultCupConfig()); got != 0 {
		t.Fatalf("rising close has no pullback")
	}
}

func TestFibonacciLevels(t *testing.T) {
	lv := FibonacciLevels(80, 110)
	if len(lv) != len(FibRatios) {
		t.Fatalf("levels %v", lv)
	}
	if math.Abs(lv[2].Price-95) > 1e-9 {
		t.Fatalf("50%% level %v", lv[2].Price)
	}
	sw := Swing{Low: 80, High: 110, Pullback: 105}
	if got := RetracedFraction(sw); math.Abs(got-1.0/6) > 1e-9 {
		t.Fatalf("retraced %v", got)
	}
}
