package patterns

// CupConfig holds the thresholds of the cup retracement check.
type CupConfig struct {
	Anchor      int     // bars back to the reference close
	MinRecovery float64 // swing high relative to the reference close
	MinDepth    float64 // (high-low) over (high-pullback)
}

// DefaultCupConfig matches the 60-bar setup the strategies trade.
func DefaultCupConfig() CupConfig {
	return CupConfig{Anchor: 60, MinRecovery: 0.9, MinDepth: 3}
}

// Swing describes the move inspected by CupRetracement.
type Swing struct {
	Reference float64 // close Anchor bars back
	Low       float64 // lowest close of the window
	High      float64 // highest close after Low
	Pullback  float64 // lowest close after High
	LowIndex  int
	HighIndex int
}

// CupRetracement looks for a recovery from the window low followed by a shallow
// pullback. It returns 1 when the swing high has recovered to at least MinRecovery of
// the reference close, the last close is above the pullback low, and the pullback
// retraced less than 1/MinDepth of the rise. Otherwise 0.
func CupRetracement(closes []float64, cfg CupConfig) (int, Swing) {
	n := len(closes)
	if cfg.Anchor <= 0 || n < cfg.Anchor {
		return 0, Swing{}
	}
	sw := Swing{Reference: closes[n-cfg.Anchor]}

	sw.LowIndex = argMin(closes)
	sw.Low = closes[sw.LowIndex]
	sw.HighIndex = sw.LowIndex + argMax(closes[sw.LowIndex:])
	sw.High = closes[sw.HighIndex]
	sw.Pullback = closes[sw.HighIndex+argMin(closes[sw.HighIndex:])]

	if sw.Reference <= 0 || sw.High == sw.Pullback {
		return 0, sw
	}
	last := closes[n-1]
	if sw.High/sw.Reference > cfg.MinRecovery &&
		last > sw.Pullback &&
		(sw.High-sw.Low)/(sw.High-sw.Pullback) > cfg.MinDepth {
		return 1, sw
	}
	return 0, sw
}

// argMin returns the first index of the smallest value.
func argMin(xs []float64) int {
	idx := 0
	for i, v := range xs {
		if v < xs[idx] {
			idx = i
		}
	}
	return idx
}

func argMax(xs []float64) int {
	idx := 0
	for i, v := range xs {
		if v > xs[idx] {
			idx = i
		}
	}
	return idx
}
