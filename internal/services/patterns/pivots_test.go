package patterns

import "testing"

func TestPivotAt(t *testing.T) {
	v := []float64{5, 4, 3, 2, 3, 4, 5}
	if got := PivotAt(v, v, 3, 3, 3); got != PivotLow {
		t.Fatalf("got %d want low pivot", got)
	}
	if got := PivotAt(v, v, 2, 3, 3); got != PivotNone {
		t.Fatalf("left edge: got %d", got)
	}
	if got := PivotAt(v, v, 4, 3, 3); got != PivotNone {
		t.Fatalf("right edge: got %d", got)
	}

	peak := []float64{1, 2, 3, 4, 3, 2, 1}
	if got := PivotAt(peak, peak, 3, 3, 3); got != PivotHigh {
		t.Fatalf("got %d want high pivot", got)
	}
	flat := []float64{2, 2, 2, 2, 2, 2, 2}
	if got := PivotAt(flat, flat, 3, 3, 3); got != PivotBoth {
		t.Fatalf("got %d want both", got)
	}
}

func TestPivotAtIgnoresLastNeighbour(t *testing.T) {
	// bar i+after is outside the comparison window
	v := []float64{5, 4, 3, 2, 3, 4, 1}
	if got := PivotAt(v, v, 3, 3, 3); got != PivotLow {
		t.Fatalf("got %d want low pivot", got)
	}
}

func TestFindPivotsSkipsFlat(t *testing.T) {
	v := []float64{3, 3, 3, 3, 3, 3, 3, 3}
	if got := FindPivots(v, v, 3, 3, 0, len(v)); len(got) != 0 {
		t.Fatalf("expected no pivots, got %v", got)
	}
	w := []float64{5, 4, 3, 2, 3, 4, 5, 6, 7}
	got := FindPivots(w, w, 3, 3, 0, len(w))
	if len(got) != 1 || got[0].Index != 3 || got[0].Kind != PivotLow || got[0].Price != 2 {
		t.Fatalf("unexpected pivots %v", got)
	}
}

func TestMergePivots(t *testing.T) {
	in := []Pivot{
		{Index: 5, Price: 10, Kind: PivotLow},
		{Index: 9, Price: 10.2, Kind: PivotLow},
		{Index: 12, Price: 15, Kind: PivotHigh},
		{Index: 20, Price: 10.1, Kind: PivotLow},
	}
	got := MergePivots(in, 0.5)
	if len(got) != 2 {
		t.Fatalf("expected 2 groups, got %v", got)
	}
	if got[0].Index != 12 || got[0].Strength != 1 {
		t.Fatalf("unexpected first group %+v", got[0])
	}
	if got[1].Index != 20 || got[1].Price != 10.1 || got[1].Strength != 3 {
		t.Fatalf("unexpected second group %+v", got[1])
	}
	if MergePivots(nil, 1) != nil {
		t.Fatalf("nil input should merge to nil")
	}
}
