package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StratRun/internal/domain/models"
	domrepo "StratRun/internal/domain/repository"
)

// ErrBadRange rejects candle ranges that end before they start.
var ErrBadRange = errors.New("from must not be after to")

// CandlesUseCase serves the stored bars the strategies read.
type CandlesUseCase struct {
	store domrepo.FeatureStore
}

func NewCandlesUseCase(store domrepo.FeatureStore) *CandlesUseCase {
	return &CandlesUseCase{store: store}
}

// Latest returns the newest n bars, oldest first.
func (uc *CandlesUseCase) Latest(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) (models.Window, error) {
	candles, err := uc.store.GetLatestNCandles(ctx, symbol, n, tf)
	if err != nil {
		return models.Window{}, fmt.Errorf("latest candles: %w", err)
	}
	return models.Window{Symbol: symbol, Frequency: string(tf), Candles: candles}, nil
}

// Range returns up to limit bars between from and to, both aligned down to
// bar boundaries.
func (uc *CandlesUseCase) Range(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe, limit int) (models.Window, error) {
	if from.After(to) {
		return models.Window{}, ErrBadRange
	}
	candles, err := uc.store.GetCandles(ctx, symbol, tf.Align(from), tf.Align(to), tf)
	if err != nil {
		return models.Window{}, fmt.Errorf("candles range: %w", err)
	}
	if limit > 0 && len(candles) > limit {
		candles = candles[:limit]
	}
	return models.Window{Symbol: symbol, Frequency: string(tf), Candles: candles}, nil
}
