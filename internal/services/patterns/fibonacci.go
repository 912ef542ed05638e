package patterns

// FibRatios are the standard retracement ratios.
var FibRatios = []float64{0.236, 0.382, 0.5, 0.618, 0.786}

// FibLevel is a retracement price for one ratio.
type FibLevel struct {
	Ratio float64
	Price float64
}

// FibonacciLevels returns the retracement prices of an upswing from low to high,
// measured down from high.
func FibonacciLevels(low, high float64) []FibLevel {
	span := high - low
	out := make([]FibLevel, len(FibRatios))
	for i, r := range FibRatios {
		out[i] = FibLevel{Ratio: r, Price: high - span*r}
	}
	return out
}

// RetracedFraction is how much of the swing the pullback gave back, in [0, 1] for
// pullbacks inside the swing.
func RetracedFraction(sw Swing) float64 {
	if sw.High == sw.Low {
		return 0
	}
	return (sw.High - sw.Pullback) / (sw.High - sw.Low)
}
