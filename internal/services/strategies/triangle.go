package strategies

import (
	"context"
	"errors"

	"StratRun/internal/domain/models"
	domsvc "StratRun/internal/domain/service"
	"StratRun/internal/services/patterns"
)

// Triangle trades breakouts of the resistance and support lines drawn through recent
// pivots. It goes long on a break above resistance and exits on a break below support.
type Triangle struct {
	base
	long *flagSet
}

func NewTriangle(name string, p models.StrategyParams) *Triangle {
	return &Triangle{base: base{name: name, kind: KindTriangle, params: p}, long: newFlagSet()}
}

func (s *Triangle) Evaluate(_ context.Context, symbol string, w models.Window) (models.Signal, error) {
	bars := patterns.FromWindow(w)
	n := bars.Len()
	if n == 0 {
		return s.signal(symbol, w, 0, nil), nil
	}
	tri, err := patterns.Trendlines(bars.High, bars.Low, pivotBefore, pivotAfter)
	if errors.Is(err, patterns.ErrNoTrendline) {
		return s.signal(symbol, w, 0, nil), nil
	}
	if err != nil {
		return s.signal(symbol, w, 0, nil), err
	}

	x := float64(tri.Bars)
	meta := map[string]float64{
		"resistance": tri.Resistance.At(x),
		"support":    tri.Support.At(x),
	}
	sig := tri.Breakout(bars.Close[n-1], s.long.get(symbol) == 1)
	return s.signal(symbol, w, float64(sig), meta), nil
}

func (s *Triangle) Commit(symbol string, sig models.Signal) {
	switch {
	case sig.Value > 0:
		s.long.set(symbol, 1)
	case sig.Value < 0:
		s.long.set(symbol, 0)
	}
}

func (s *Triangle) Flags() map[string]int { return s.long.snapshot() }
func (s *Triangle) Reset()                { s.long.reset() }

var (
	_ domsvc.Strategy = (*Triangle)(nil)
	_ domsvc.Stateful = (*Triangle)(nil)
)
