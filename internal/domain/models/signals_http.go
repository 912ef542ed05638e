package models

import "time"

// Requests for strategy HTTP endpoints. Defined in domain for consistency and reuse.

type StrategyRequest struct {
	Name string `param:"name" validate:"required"`
}

type EvaluateRequest struct {
	Name    string   `param:"name" validate:"required"`
	Symbols []string `json:"symbols" validate:"omitempty,max=50,dive,required,symbol"`
}

type TriggerRequest struct {
	Name   string `param:"name" validate:"required"`
	Event  string `json:"event" default:"run_strategy" validate:"oneof=initialize before_trading_start run_strategy stop_trading"`
	Minute int    `json:"minute" validate:"gte=0,lte=1440"`
	Async  bool   `json:"async"`
}

type CandlesRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,symbol"`
	N      int    `query:"n" json:"n" default:"375" validate:"gte=1,lte=5000"`
	TF     string `query:"tf" json:"tf" default:"1m" validate:"oneof=1m 5m 1h 1d"`
	// From switches from the newest N bars to a time range; To defaults to now.
	From string `query:"from" json:"from"`
	To   string `query:"to" json:"to"`
}

// Responses for strategy HTTP endpoints.

type StrategySummary struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Frequency  string   `json:"indicator_freq"`
	Lookback   int      `json:"indicator_lookback"`
	TradeFreq  int      `json:"trade_freq"`
	Leverage   float64  `json:"leverage"`
	Sizing     string   `json:"sizing"`
	Securities []string `json:"securities"`
	Trading    bool     `json:"trading"`
}

type SignalResponse struct {
	Symbol string             `json:"symbol"`
	Value  float64            `json:"value"`
	At     time.Time          `json:"at"`
	Meta   map[string]float64 `json:"meta,omitempty"`
}

type EvaluationResponse struct {
	Strategy   string             `json:"strategy"`
	Frequency  string             `json:"frequency"`
	Timestamp  time.Time          `json:"timestamp"`
	Signals    []SignalResponse   `json:"signals"`
	Volatility map[string]float64 `json:"volatility,omitempty"`
	Errors     map[string]string  `json:"errors,omitempty"`
}

type StrategyStateResponse struct {
	Strategy   string             `json:"strategy"`
	Kind       string             `json:"kind"`
	Trading    bool               `json:"trading"`
	Securities []string           `json:"securities"`
	Signals    map[string]float64 `json:"signals"`
	Targets    map[string]float64 `json:"targets"`
	Flags      map[string]int     `json:"flags,omitempty"`
	LastRun    *time.Time         `json:"last_run,omitempty"`
	LastError  string             `json:"last_error,omitempty"`
	Cycles     int64              `json:"cycles"`
}

type TriggerResponse struct {
	Strategy string `json:"strategy"`
	Event    string `json:"event"`
	Minute   int    `json:"minute"`
	Queued   bool   `json:"queued"`
}

type CandleResponse struct {
	Bucket time.Time `json:"t"`
	Open   float64   `json:"o"`
	High   float64   `json:"h"`
	Low    float64   `json:"l"`
	Close  float64   `json:"c"`
	Volume float64   `json:"v"`
}

type CandlesResponse struct {
	Symbol    string           `json:"symbol"`
	Timeframe string           `json:"tf"`
	Count     int              `json:"count"`
	Candles   []CandleResponse `json:"candles"`
}
