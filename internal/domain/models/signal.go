package models

import "time"

// Signal is the scalar output of a strategy for one security.
// Pattern strategies emit -1, 0 or 1.
type Signal struct {
	Strategy string
	Symbol   string
	Value    float64
	At       time.Time
	Meta     map[string]float64
}

// TargetPosition is the desired fraction of portfolio capital for a security.
// Hold means no order should be sent this cycle.
type TargetPosition struct {
	Symbol string
	Weight float64
	Hold   bool
}

// OrderIntent is a target-percent order handed to the host for execution.
type OrderIntent struct {
	ID            string    `json:"id"`
	Strategy      string    `json:"strategy"`
	Symbol        string    `json:"symbol"`
	TargetPercent float64   `json:"target_percent"`
	Signal        float64   `json:"signal"`
	Reason        string    `json:"reason,omitempty"`
	At            time.Time `json:"at"`
}

// TriggerEvent names a scheduler callback.
type TriggerEvent string

const (
	EventInitialize         TriggerEvent = "initialize"
	EventBeforeTradingStart TriggerEvent = "before_trading_start"
	EventRunStrategy        TriggerEvent = "run_strategy"
	EventStopTrading        TriggerEvent = "stop_trading"
)

// Trigger is a callback emitted by the host scheduler.
// An empty Strategy addresses every registered strategy.
// Minute counts minutes since session open and drives trade_freq gating.
type Trigger struct {
	Strategy string       `json:"strategy,omitempty"`
	Event    TriggerEvent `json:"event"`
	At       time.Time    `json:"at"`
	Minute   int          `json:"minute"`
}

// StrategyParams mirrors the parameter dict each strategy is configured with.
type StrategyParams struct {
	Lookback      int
	Frequency     string
	BuyThreshold  float64
	SellThreshold float64
	TradeFreq     int
	Leverage      float64
	Securities    []string
	Sizing        string  // "threshold" or "fixed_long"
	FixedWeight   float64 // used by fixed_long sizing
	RunAtMinute   int     // when set, run only at this minute after the open instead of every TradeFreq
	Tolerance     float64 // price tolerance for exact-match candle checks
}

const (
	SizingThreshold = "threshold"
	SizingFixedLong = "fixed_long"
)
