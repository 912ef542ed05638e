package models

import "time"

// Evaluation is a consolidated on-demand view of one strategy's signals.
// No orders are derived from it.
type Evaluation struct {
	Strategy   string
	Frequency  string
	Timestamp  time.Time
	Signals    []Signal
	Volatility map[string]float64 // annualized realized volatility of each window
	Errors     map[string]string
}

// StrategyState is a snapshot of a runner's transient state.
type StrategyState struct {
	Strategy   string
	Kind       string
	Trading    bool
	Securities []string
	Signals    map[string]float64
	Targets    map[string]float64
	Flags      map[string]int
	LastRun    time.Time
	LastError  string
	Cycles     int64
}
