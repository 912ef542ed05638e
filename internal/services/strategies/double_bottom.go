package strategies

import (
	"context"
	"errors"

	"StratRun/internal/domain/models"
	domsvc "StratRun/internal/domain/service"
	"StratRun/internal/services/patterns"
)

// DoubleBottom buys while price sits just above the second of two matching troughs.
type DoubleBottom struct {
	base
	cfg patterns.BottomConfig
}

func NewDoubleBottom(name string, p models.StrategyParams) *DoubleBottom {
	return &DoubleBottom{base: base{name: name, kind: KindDoubleBottom, params: p}, cfg: patterns.DefaultBottomConfig()}
}

func (s *DoubleBottom) Evaluate(_ context.Context, symbol string, w models.Window) (models.Signal, error) {
	v, bottoms, err := patterns.DoubleBottom(w.Lows(), w.Closes(), s.cfg)
	if errors.Is(err, patterns.ErrInsufficientData) {
		return s.signal(symbol, w, 0, nil), nil
	}
	if err != nil {
		return s.signal(symbol, w, 0, nil), err
	}
	meta := map[string]float64{"bottoms": float64(len(bottoms))}
	if k := len(bottoms); k > 0 {
		meta["last_bottom"] = bottoms[k-1].Low
	}
	return s.signal(symbol, w, float64(v), meta), nil
}

var _ domsvc.Strategy = (*DoubleBottom)(nil)
