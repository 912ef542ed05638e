package patterns

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ErrNoTrendline is returned when the pivots cannot support a trendline.
var ErrNoTrendline = errors.New("trendline not found")

// Point is a pivot position on a 1-based bar axis.
type Point struct {
	X float64
	Y float64
}

// Line is y = Slope*x + Intercept.
type Line struct {
	Slope     float64
	Intercept float64
}

func (l Line) At(x float64) float64 { return l.Slope*x + l.Intercept }

// Triangle holds the resistance line through high pivots and the support line
// through low pivots.
type Triangle struct {
	Resistance Line
	Support    Line
	Highs      []Point
	Lows       []Point
	Bars       int
}

// Trendlines picks up to three pivots per side: the most recent one, the extreme one,
// and the extreme one after it. Both sides need at least one pivot after their
// extreme, otherwise ErrNoTrendline.
func Trendlines(high, low []float64, before, after int) (Triangle, error) {
	n := len(high)
	if len(low) < n {
		n = len(low)
	}
	var highs, lows []int
	for i := 0; i < n; i++ {
		switch PivotAt(high, low, i, before, after) {
		case PivotHigh:
			highs = append(highs, i)
		case PivotLow:
			lows = append(lows, i)
		}
	}

	hp, err := feasiblePoints(highs, high, func(a, b float64) bool { return a > b })
	if err != nil {
		return Triangle{}, err
	}
	lp, err := feasiblePoints(lows, low, func(a, b float64) bool { return a < b })
	if err != nil {
		return Triangle{}, err
	}
	res, err := regress(hp)
	if err != nil {
		return Triangle{}, err
	}
	sup, err := regress(lp)
	if err != nil {
		return Triangle{}, err
	}
	return Triangle{Resistance: res, Support: sup, Highs: hp, Lows: lp, Bars: n}, nil
}

// Breakout evaluates both lines at the last bar. A long position exits with -1 when
// close is below support; a flat one enters with 1 when close is above resistance.
// Past the apex the lines cross, so only the side that matters for the position is
// checked.
func (t Triangle) Breakout(close float64, long bool) int {
	x := float64(t.Bars)
	if long {
		if close < t.Support.At(x) {
			return -1
		}
		return 0
	}
	if close > t.Resistance.At(x) {
		return 1
	}
	return 0
}

func feasiblePoints(idx []int, price []float64, better func(a, b float64) bool) ([]Point, error) {
	if len(idx) == 0 {
		return nil, ErrNoTrendline
	}
	pt := func(i int) Point { return Point{X: float64(i + 1), Y: price[i]} }

	extreme := 0
	for k := range idx {
		if better(price[idx[k]], price[idx[extreme]]) {
			extreme = k
		}
	}
	if extreme == len(idx)-1 {
		return nil, ErrNoTrendline
	}
	next := extreme + 1
	for k := extreme + 1; k < len(idx); k++ {
		if better(price[idx[k]], price[idx[next]]) {
			next = k
		}
	}
	return []Point{pt(idx[len(idx)-1]), pt(idx[extreme]), pt(idx[next])}, nil
}

func regress(pts []Point) (Line, error) {
	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = p.X, p.Y
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) || math.IsInf(beta, 0) {
		return Line{}, ErrNoTrendline
	}
	return Line{Slope: beta, Intercept: alpha}, nil
}
