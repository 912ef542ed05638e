package strategies

import (
	"context"
	"strconv"

	"github.com/markcheno/go-talib"

	"StratRun/internal/domain/models"
	domsvc "StratRun/internal/domain/service"
	"StratRun/internal/services/patterns"
)

// trendPeriod is the ADX/ATR period. It is capped so that the window holds the 2*p
// bars ADX needs to warm up.
const trendPeriod = 120

// Retracement buys a recovery out of the window low that pulled back only a little.
// The Fibonacci levels of the swing and the trend strength (ADX, ATR) are attached as
// signal metadata.
type Retracement struct {
	base
	cup patterns.CupConfig
}

func NewRetracement(name string, p models.StrategyParams) *Retracement {
	cfg := patterns.DefaultCupConfig()
	if p.Lookback > 0 && p.Lookback < cfg.Anchor {
		cfg.Anchor = p.Lookback
	}
	return &Retracement{base: base{name: name, kind: KindRetracement, params: p}, cup: cfg}
}

func (s *Retracement) Evaluate(_ context.Context, symbol string, w models.Window) (models.Signal, error) {
	v, sw := patterns.CupRetracement(w.Closes(), s.cup)
	meta := swingMeta(sw)
	if adx, atr, ok := trendStrength(w); ok {
		if meta == nil {
			meta = map[string]float64{}
		}
		meta["adx"], meta["atr"] = adx, atr
	}
	return s.signal(symbol, w, float64(v), meta), nil
}

// periodFor caps trendPeriod to what n bars can warm up; 0 means too few bars.
func periodFor(n int) int {
	p := trendPeriod
	if limit := (n - 1) / 2; limit < p {
		p = limit
	}
	if p < 2 {
		return 0
	}
	return p
}

func trendStrength(w models.Window) (adx, atr float64, ok bool) {
	p := periodFor(w.Len())
	if p == 0 {
		return 0, 0, false
	}
	h, l, c := w.Highs(), w.Lows(), w.Closes()
	return last(talib.Adx(h, l, c, p)), last(talib.Atr(h, l, c, p)), true
}

func swingMeta(sw patterns.Swing) map[string]float64 {
	if sw.High == 0 {
		return nil
	}
	meta := map[string]float64{
		"swing_low":       sw.Low,
		"swing_high":      sw.High,
		"pullback":        sw.Pullback,
		"retraced":        patterns.RetracedFraction(sw),
		"reference_close": sw.Reference,
	}
	for _, lv := range patterns.FibonacciLevels(sw.Low, sw.High) {
		meta["fib_"+strconv.FormatFloat(lv.Ratio, 'f', 3, 64)] = lv.Price
	}
	return meta
}

var _ domsvc.Strategy = (*Retracement)(nil)
