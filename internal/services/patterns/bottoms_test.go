package patterns

import (
	"math"
	"testing"
)

// twoTroughs traces two full cosine periods around 100, bottoming near bars 50 and 149.
func twoTroughs(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 10*math.Cos(4*math.Pi*float64(i)/float64(n-1))
	}
	return out
}

func TestSuspectedBottoms(t *testing.T) {
	lows := twoTroughs(200)
	got, err := SuspectedBottoms(lows, DefaultBottomConfig())
	if err != nil {
		t.Fatalf("bottoms: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected two bottoms, got %+v", got)
	}
	if math.Abs(float64(got[0].Index-50)) > 2 || math.Abs(float64(got[1].Index-149)) > 2 {
		t.Fatalf("bottoms at %d and %d", got[0].Index, got[1].Index)
	}
	if !near(got[0].Low, 90, 0.01) || got[0].Mean <= got[0].Low {
		t.Fatalf("unexpected first bottom %+v", got[0])
	}
}

func TestBottomWindowSkipsFirstBar(t *testing.T) {
	lows := []float64{50, 100, 98, 99, 100, 101}
	b := bottomAt(lows, 2, 10)
	if b.Low != 98 || b.Index != 2 {
		t.Fatalf("bottom %+v", b)
	}
	if want := (100.0 + 98 + 99 + 100 + 101) / 5; b.Mean != want {
		t.Fatalf("mean %v want %v", b.Mean, want)
	}
}

func TestDoubleBottom(t *testing.T) {
	lows := twoTroughs(200)
	closes := append([]float64(nil), lows...)

	closes[len(closes)-1] = 95
	got, bottoms, err := DoubleBottom(lows, closes, DefaultBottomConfig())
	if err != nil || got != 1 {
		t.Fatalf("got %d bottoms %+v err %v", got, bottoms, err)
	}

	// price already left the band above the second bottom
	closes[len(closes)-1] = 110
	if got, _, _ := DoubleBottom(lows, closes, DefaultBottomConfig()); got != 0 {
		t.Fatalf("close outside band signalled")
	}
}

func TestDoubleBottomSingleTrough(t *testing.T) {
	lows := make([]float64, 200)
	for i := range lows {
		d := float64(i - 100)
		lows[i] = 90 + d*d/100
	}
	got, bottoms, err := DoubleBottom(lows, lows, DefaultBottomConfig())
	if err != nil || got != 0 || len(bottoms) != 0 {
		t.Fatalf("got %d bottoms %+v err %v", got, bottoms, err)
	}
}
