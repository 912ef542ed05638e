package models

import "time"

// Candle represents one OHLCV bar.
type Candle struct {
	Bucket time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Window is an ordered run of candles for one symbol, oldest first.
type Window struct {
	Symbol    string
	Frequency string
	Candles   []Candle
}

func (w Window) Len() int { return len(w.Candles) }

// Last returns the newest candle.
func (w Window) Last() (Candle, bool) {
	if len(w.Candles) == 0 {
		return Candle{}, false
	}
	return w.Candles[len(w.Candles)-1], true
}

// Tail returns a window over the newest n candles. The slice is shared.
func (w Window) Tail(n int) Window {
	if n >= len(w.Candles) || n < 0 {
		return w
	}
	return Window{Symbol: w.Symbol, Frequency: w.Frequency, Candles: w.Candles[len(w.Candles)-n:]}
}

func (w Window) Opens() []float64   { return w.column(func(c Candle) float64 { return c.Open }) }
func (w Window) Highs() []float64   { return w.column(func(c Candle) float64 { return c.High }) }
func (w Window) Lows() []float64    { return w.column(func(c Candle) float64 { return c.Low }) }
func (w Window) Closes() []float64  { return w.column(func(c Candle) float64 { return c.Close }) }
func (w Window) Volumes() []float64 { return w.column(func(c Candle) float64 { return c.Volume }) }

func (w Window) column(pick func(Candle) float64) []float64 {
	out := make([]float64, len(w.Candles))
	for i, c := range w.Candles {
		out[i] = pick(c)
	}
	return out
}
