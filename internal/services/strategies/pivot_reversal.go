package strategies

import (
	"context"
	"math"

	"StratRun/internal/domain/models"
	domsvc "StratRun/internal/domain/service"
	"StratRun/internal/services/patterns"
)

const (
	pivotBefore = 3
	pivotAfter  = 3
	pivotMargin = 6
	smoothOrder = 3
)

// PivotReversal buys a bullish reversal candle printed next to a level the smoothed
// close has pivoted at more than once. Candles are read with raw open, high and low
// against the smoothed close.
type PivotReversal struct {
	base
}

func NewPivotReversal(name string, p models.StrategyParams) *PivotReversal {
	return &PivotReversal{base: base{name: name, kind: KindPivotReversal, params: p}}
}

// smoothWindow grows with the window length: 2*max(n/30, 1)+3, always odd.
func smoothWindow(n int) int {
	m := n / 30
	if m == 0 {
		m = 1
	}
	return 2*m + 3
}

func (s *PivotReversal) Evaluate(_ context.Context, symbol string, w models.Window) (models.Signal, error) {
	bars := patterns.FromWindow(w)
	n := bars.Len()
	win := smoothWindow(n)
	if n < win || n <= 2*pivotMargin {
		return s.signal(symbol, w, 0, nil), nil
	}
	noise := patterns.MeanRange(bars)
	smooth, err := patterns.SavGol(bars.Close[:n], win, smoothOrder)
	if err != nil {
		return s.signal(symbol, w, 0, nil), err
	}

	pivots := patterns.FindPivots(smooth, smooth, pivotBefore, pivotAfter, pivotMargin, n-pivotMargin)
	levels := patterns.MergePivots(pivots, noise)
	last := smooth[n-1]
	// the level and candle checks both see the smoothed close
	shaped := patterns.OHLC{Open: bars.Open, High: bars.High, Low: bars.Low, Close: smooth}

	meta := map[string]float64{"noise": noise, "levels": float64(len(levels)), "close": last}
	for _, lv := range levels {
		if lv.Strength < 2 || math.Abs(last-lv.Price) >= noise/3 {
			continue
		}
		if patterns.AnyBullishReversal(shaped) {
			meta["level"] = lv.Price
			meta["strength"] = float64(lv.Strength)
			return s.signal(symbol, w, 1, meta), nil
		}
	}
	return s.signal(symbol, w, 0, meta), nil
}

var _ domsvc.Strategy = (*PivotReversal)(nil)
