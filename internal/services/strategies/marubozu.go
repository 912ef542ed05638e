package strategies

import (
	"context"

	"StratRun/internal/domain/models"
	domsvc "StratRun/internal/domain/service"
	"StratRun/internal/services/patterns"
)

// Marubozu goes long on a full-body bullish bar and short on a full-body bearish one.
type Marubozu struct {
	base
}

func NewMarubozu(name string, p models.StrategyParams) *Marubozu {
	return &Marubozu{base: base{name: name, kind: KindMarubozu, params: p}}
}

func (s *Marubozu) Evaluate(_ context.Context, symbol string, w models.Window) (models.Signal, error) {
	v := patterns.Marubozu(patterns.FromWindow(w), s.params.Tolerance)
	return s.signal(symbol, w, float64(v), nil), nil
}

var _ domsvc.Strategy = (*Marubozu)(nil)
