package patterns

import (
	"math"
	"sort"
)

// PivotKind classifies a bar against its neighbours.
type PivotKind int

const (
	PivotNone PivotKind = 0
	PivotLow  PivotKind = 1
	PivotHigh PivotKind = 2
	PivotBoth PivotKind = 3
)

// Pivot is a local extreme. Strength counts the pivots merged into it.
type Pivot struct {
	Index    int
	Price    float64
	Kind     PivotKind
	Strength int
}

// PivotAt compares bar i with bars [i-before, i+after). The right bound is exclusive,
// so the last neighbour is never inspected. Bars too close to either edge are PivotNone.
func PivotAt(high, low []float64, i, before, after int) PivotKind {
	n := len(high)
	if len(low) < n {
		n = len(low)
	}
	if i-before < 0 || i+after >= n {
		return PivotNone
	}
	isLow, isHigh := true, true
	for j := i - before; j < i+after; j++ {
		if low[i] > low[j] {
			isLow = false
		}
		if high[i] < high[j] {
			isHigh = false
		}
	}
	switch {
	case isLow && isHigh:
		return PivotBoth
	case isLow:
		return PivotLow
	case isHigh:
		return PivotHigh
	default:
		return PivotNone
	}
}

// FindPivots scans [from, to) and returns single-sided pivots. Flat stretches that
// qualify as both a high and a low are skipped.
func FindPivots(high, low []float64, before, after, from, to int) []Pivot {
	if from < 0 {
		from = 0
	}
	if to > len(high) {
		to = len(high)
	}
	var out []Pivot
	for i := from; i < to; i++ {
		switch PivotAt(high, low, i, before, after) {
		case PivotLow:
			out = append(out, Pivot{Index: i, Price: low[i], Kind: PivotLow, Strength: 1})
		case PivotHigh:
			out = append(out, Pivot{Index: i, Price: high[i], Kind: PivotHigh, Strength: 1})
		}
	}
	return out
}

// MergePivots collapses pivots whose prices sit within tol of each other.
// Pivots are walked in price order; each group starts at the cheapest unmerged pivot
// and takes every following pivot within tol of it. The newest member represents the
// group and Strength is the group size. The result is ordered by index.
func MergePivots(pivots []Pivot, tol float64) []Pivot {
	if len(pivots) == 0 {
		return nil
	}
	sorted := make([]Pivot, len(pivots))
	copy(sorted, pivots)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Price == sorted[j].Price {
			return sorted[i].Index < sorted[j].Index
		}
		return sorted[i].Price < sorted[j].Price
	})

	out := make([]Pivot, 0, len(sorted))
	for i := 0; i < len(sorted); {
		anchor := sorted[i].Price
		rep := sorted[i]
		j := i + 1
		for j < len(sorted) && math.Abs(sorted[j].Price-anchor) <= tol {
			if sorted[j].Index >= rep.Index {
				rep = sorted[j]
			}
			j++
		}
		rep.Strength = j - i
		out = append(out, rep)
		i = j
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
