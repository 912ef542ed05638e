package repository

import (
	"context"
	"fmt"

	"StratRun/internal/domain/models"
	domrepo "StratRun/internal/domain/repository"
)

// StoreHistory serves strategy history from a FeatureStore, one query per symbol.
type StoreHistory struct {
	store domrepo.FeatureStore
}

func NewStoreHistory(store domrepo.FeatureStore) *StoreHistory {
	return &StoreHistory{store: store}
}

// History fails as a whole when any symbol fails, like the host's data.history call.
func (h *StoreHistory) History(ctx context.Context, symbols []string, bars int, tf domrepo.Timeframe) (map[string]models.Window, error) {
	if bars <= 0 {
		return nil, fmt.Errorf("history: bars must be positive, got %d", bars)
	}
	out := make(map[string]models.Window, len(symbols))
	for _, sym := range symbols {
		candles, err := h.store.GetLatestNCandles(ctx, sym, bars, tf)
		if err != nil {
			return nil, fmt.Errorf("history %s: %w", sym, err)
		}
		out[sym] = models.Window{Symbol: sym, Frequency: string(tf), Candles: candles}
	}
	return out, nil
}

var _ domrepo.HistoryProvider = (*StoreHistory)(nil)
