package patterns

import (
	"math"

	"StratRun/internal/domain/models"
)

// OHLC holds the four price columns of a window.
type OHLC struct {
	Open  []float64
	High  []float64
	Low   []float64
	Close []float64
}

// FromWindow splits a window into columns.
func FromWindow(w models.Window) OHLC {
	return OHLC{Open: w.Opens(), High: w.Highs(), Low: w.Lows(), Close: w.Closes()}
}

// Len is the number of complete bars.
func (s OHLC) Len() int {
	n := len(s.Open)
	for _, c := range [][]float64{s.High, s.Low, s.Close} {
		if len(c) < n {
			n = len(c)
		}
	}
	return n
}

type bar struct{ o, h, l, c float64 }

// back returns the bar k positions before the newest one.
func (s OHLC) back(k int) bar {
	i := s.Len() - 1 - k
	return bar{o: s.Open[i], h: s.High[i], l: s.Low[i], c: s.Close[i]}
}

// Marubozu classifies the newest bar. A bullish marubozu opens at the low and closes
// at the high; a bearish one opens at the high and closes at the low. tol is the
// allowed gap between the body and the wick ends; 0 requires exact equality.
func Marubozu(s OHLC, tol float64) int {
	if s.Len() < 1 {
		return 0
	}
	p := s.back(0)
	near := func(a, b float64) bool { return math.Abs(a-b) <= tol }
	switch {
	case p.c > p.o && near(p.h, p.c) && near(p.l, p.o):
		return 1
	case p.c < p.o && near(p.h, p.o) && near(p.l, p.c):
		return -1
	default:
		return 0
	}
}

// MorningStar: a bearish bar, a small bar gapping below it, then a bullish bar
// opening above the small bar's body.
func MorningStar(s OHLC) bool {
	if s.Len() < 3 {
		return false
	}
	p, v, b := s.back(0), s.back(1), s.back(2)
	body := math.Max(v.o, v.c)
	return body < b.c && b.c < b.o &&
		p.c > p.o && p.o > body
}

// Piercing: after a bearish bar, the newest bar opens below its low and closes
// above the midpoint of its body without reaching its open.
func Piercing(s OHLC) bool {
	if s.Len() < 2 {
		return false
	}
	p, v := s.back(0), s.back(1)
	return v.c < v.o &&
		p.o < v.l &&
		v.o > p.c && p.c > v.c+(v.o-v.c)/2
}

// BullishEngulfing keeps the historical predicate of the strategy set: the newest
// body must open at or above the prior bullish close and its (bearish) body must be
// longer than the prior one.
func BullishEngulfing(s OHLC) bool {
	if s.Len() < 2 {
		return false
	}
	p, v := s.back(0), s.back(1)
	return p.o >= v.c && v.c > v.o &&
		p.o > p.c &&
		v.o >= p.c &&
		p.o-p.c > v.c-v.o
}

// BullishHarami: a bullish body contained inside the prior bearish body.
func BullishHarami(s OHLC) bool {
	if s.Len() < 2 {
		return false
	}
	p, v := s.back(0), s.back(1)
	return v.o > v.c &&
		v.c <= p.o && p.o < p.c && p.c <= v.o &&
		p.c-p.o < v.o-v.c
}

// AnyBullishReversal reports whether any of the reversal shapes holds on the newest bar.
func AnyBullishReversal(s OHLC) bool {
	return MorningStar(s) || Piercing(s) || BullishEngulfing(s) || BullishHarami(s)
}

// MeanRange is the average high-low span, used as the noise unit for pivots.
func MeanRange(s OHLC) float64 {
	n := s.Len()
	if n == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += s.High[i] - s.Low[i]
	}
	return sum / float64(n)
}
