package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"StratRun/internal/domain/models"
	domrepo "StratRun/internal/domain/repository"
	pkgch "StratRun/pkg/clickhouse"
	applogger "StratRun/pkg/logger"
)

const candleColumns = "bucket, symbol, open, high, low, close, volume"

// CHFeatureStore reads bars from the per-timeframe candle tables.
type CHFeatureStore struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHFeatureStore(ch *pkgch.Client, database string) *CHFeatureStore {
	return &CHFeatureStore{db: ch.DB(), database: database}
}

func (s *CHFeatureStore) SetLogger(l *applogger.Logger) { s.l = l }

// GetCandles returns bars with from <= bucket <= to, oldest first.
func (s *CHFeatureStore) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Candle, error) {
	table, err := TableForTF(s.database, tf)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE symbol = ? AND bucket BETWEEN ? AND ? ORDER BY bucket", candleColumns, table)
	return s.query(ctx, "range", table, symbol, q, 512, symbol, from, to)
}

// GetLatestNCandles returns the newest n bars, oldest first.
func (s *CHFeatureStore) GetLatestNCandles(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	table, err := TableForTF(s.database, tf)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(
		"SELECT %[1]s FROM (SELECT %[1]s FROM %[2]s WHERE symbol = ? ORDER BY bucket DESC LIMIT ?) ORDER BY bucket",
		candleColumns, table)
	return s.query(ctx, "latest", table, symbol, q, n, symbol, n)
}

func (s *CHFeatureStore) query(ctx context.Context, op, table, symbol, q string, capHint int, args ...interface{}) ([]models.Candle, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.logErr(op, table, symbol, err)
		return nil, fmt.Errorf("candles %s %s: %w", op, symbol, err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, capHint)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			s.logErr(op, table, symbol, err)
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		s.logErr(op, table, symbol, err)
		return nil, fmt.Errorf("candles %s %s: %w", op, symbol, err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse candles",
			applogger.String("op", op),
			applogger.String("table", table),
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(out)),
			applogger.Duration("query", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHFeatureStore) logErr(op, table, symbol string, err error) {
	if s.l != nil {
		s.l.Error("clickhouse candles failed",
			applogger.String("op", op),
			applogger.String("table", table),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
	}
}

// TableForTF maps a timeframe onto its candle table.
func TableForTF(database string, tf domrepo.Timeframe) (string, error) {
	if !domrepo.IsValidTimeframe(tf) {
		return "", fmt.Errorf("unsupported timeframe: %s", tf)
	}
	return database + ".candles_" + string(tf), nil
}

var _ domrepo.FeatureStore = (*CHFeatureStore)(nil)
