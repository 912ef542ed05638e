package patterns

import "math"

// BottomConfig tunes the double bottom detector.
type BottomConfig struct {
	Degree    int     // polynomial degree of the smoothing fit
	Delta     int     // bars inspected either side of a fitted minimum
	Threshold float64 // multiple of the window low a bottom must stay under
	Tolerance float64 // allowed relative gap between the two bottoms
}

func DefaultBottomConfig() BottomConfig {
	return BottomConfig{Degree: 17, Delta: 10, Threshold: 1.15, Tolerance: 0.12}
}

// Bottom is a suspected trough around a minimum of the fitted curve.
type Bottom struct {
	Index int     // minimum of the fitted curve
	Low   float64 // lowest raw low within +/- Delta bars
	Mean  float64 // average raw low within +/- Delta bars
}

// SuspectedBottoms fits a polynomial to lows, takes its local minima and keeps those
// whose surrounding raw lows dip under Threshold times the window low. A single
// minimum is never a bottom.
func SuspectedBottoms(lows []float64, cfg BottomConfig) ([]Bottom, error) {
	n := len(lows)
	if n < 2 {
		return nil, ErrInsufficientData
	}
	fitted, err := PolyFit(lows, cfg.Degree)
	if err != nil {
		return nil, err
	}
	minima := LocalMinima(fitted)
	if len(minima) < 2 {
		return nil, nil
	}
	floor := lows[argMin(lows)] * cfg.Threshold

	var out []Bottom
	for _, m := range minima {
		if b := bottomAt(lows, m, cfg.Delta); b.Low < floor {
			out = append(out, b)
		}
	}
	return out, nil
}

// bottomAt summarizes the raw lows within delta bars of minimum m. Bar 0 is never
// part of a window.
func bottomAt(lows []float64, m, delta int) Bottom {
	n := len(lows)
	lo, hi := m-delta, m+delta
	if lo < 1 {
		lo = 1
	}
	if hi > n-1 {
		hi = n - 1
	}
	b := Bottom{Index: m, Low: math.Inf(1)}
	if lo > hi {
		return b
	}
	sum := 0.0
	for x := lo; x <= hi; x++ {
		sum += lows[x]
		b.Low = math.Min(b.Low, lows[x])
	}
	b.Mean = sum / float64(hi-lo+1)
	return b
}

// DoubleBottom returns 1 when the two latest suspected bottoms sit within Tolerance
// of each other and the last close is still inside the band above the latest one.
func DoubleBottom(lows, closes []float64, cfg BottomConfig) (int, []Bottom, error) {
	if len(closes) == 0 {
		return 0, nil, ErrInsufficientData
	}
	bottoms, err := SuspectedBottoms(lows, cfg)
	if err != nil || len(bottoms) < 2 {
		return 0, bottoms, err
	}
	first, second := bottoms[len(bottoms)-2], bottoms[len(bottoms)-1]
	if first.Low <= 0 || math.Abs(second.Low-first.Low)/first.Low > cfg.Tolerance {
		return 0, bottoms, nil
	}
	last := closes[len(closes)-1]
	if last >= second.Low && last <= second.Low*(1+cfg.Tolerance) {
		return 1, bottoms, nil
	}
	return 0, bottoms, nil
}
