package service

import (
	"context"

	"StratRun/internal/domain/models"
)

// Strategy turns a price window into a signal for one security.
// Evaluate must not mutate strategy state so it can serve on-demand reads.
type Strategy interface {
	Name() string
	Kind() string
	Params() models.StrategyParams
	Evaluate(ctx context.Context, symbol string, w models.Window) (models.Signal, error)
}

// Stateful strategies carry per-security flags across cycles.
// Commit is called by the runner once a cycle's signal is accepted.
type Stateful interface {
	Commit(symbol string, sig models.Signal)
	Flags() map[string]int
	Reset()
}
