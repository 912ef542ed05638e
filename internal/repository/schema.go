package repository

import (
	"fmt"

	domrepo "StratRun/internal/domain/repository"
)

// SchemaStatements returns the idempotent DDL for the candle, signal and order tables.
func SchemaStatements(database string) []string {
	stmts := []string{fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database)}
	for _, tf := range []domrepo.Timeframe{domrepo.TF1m, domrepo.TF5m, domrepo.TF1h, domrepo.TF1d} {
		table, _ := TableForTF(database, tf)
		stmts = append(stmts, fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS %s (bucket DateTime, symbol LowCardinality(String), open Float64, high Float64, low Float64, close Float64, volume Float64) ENGINE=ReplacingMergeTree ORDER BY (symbol, bucket)",
			table))
	}
	stmts = append(stmts,
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s.%s (at DateTime64(3), strategy LowCardinality(String), symbol LowCardinality(String), value Float64, meta Map(String, Float64)) ENGINE=MergeTree ORDER BY (strategy, symbol, at)", database, SignalsTable),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s.%s (id String, at DateTime64(3), strategy LowCardinality(String), symbol LowCardinality(String), target_percent Float64, signal Float64, reason String) ENGINE=ReplacingMergeTree ORDER BY (strategy, symbol, at, id)", database, OrdersTable),
	)
	return stmts
}
