package features

import (
	"math"

	"StratRun/internal/domain/models"

	"gonum.org/v1/gonum/stat"
)

// Trading session length used to annualize intraday bars (NSE cash session).
const (
	sessionMinutes = 375
	tradingDays    = 252
)

// LogReturns computes r_t = ln(C_t / C_{t-1}) over the window closes.
// Non-positive prices yield a zero return. Nil when fewer than two bars.
func LogReturns(w models.Window) []float64 {
	if w.Len() < 2 {
		return nil
	}
	out := make([]float64, 0, w.Len()-1)
	for i := 1; i < w.Len(); i++ {
		prev, cur := w.Candles[i-1].Close, w.Candles[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility is the annualized sample deviation of the last `window` returns.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	return stat.StdDev(logReturns[len(logReturns)-window:], nil) * math.Sqrt(barsPerYear)
}

// BarsPerYear returns the number of bars a trading year holds at tf.
func BarsPerYear(tf string) float64 {
	switch tf {
	case "1m":
		return sessionMinutes * tradingDays
	case "5m":
		return sessionMinutes / 5 * tradingDays
	case "1h":
		return math.Ceil(sessionMinutes/60.0) * tradingDays
	case "1d":
		return tradingDays
	default:
		return sessionMinutes * tradingDays
	}
}

// WindowVolatility is the realized volatility of the whole window.
func WindowVolatility(w models.Window) float64 {
	rets := LogReturns(w)
	return RealizedVolatility(rets, len(rets), BarsPerYear(w.Frequency))
}
