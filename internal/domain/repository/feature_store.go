package repository

import (
	"context"
	"time"

	"StratRun/internal/domain/models"
)

// Timeframe represents candle resolution buckets.
type Timeframe string

const (
	TF1m Timeframe = "1m"
	TF5m Timeframe = "5m"
	TF1h Timeframe = "1h"
	TF1d Timeframe = "1d"
)

// FeatureStore provides read-only access to stored candles.
type FeatureStore interface {
	GetCandles(ctx context.Context, symbol string, from, to time.Time, tf Timeframe) ([]models.Candle, error)
	GetLatestNCandles(ctx context.Context, symbol string, n int, tf Timeframe) ([]models.Candle, error)
}

// HistoryProvider supplies the newest bars for a set of securities, like the host's
// data.history call. A failure for any symbol fails the whole request.
type HistoryProvider interface {
	History(ctx context.Context, symbols []string, bars int, tf Timeframe) (map[string]models.Window, error)
}
