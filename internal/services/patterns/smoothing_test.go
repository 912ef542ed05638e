package patterns

import (
	"errors"
	"math"
	"testing"
)

func near(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func TestPolyFitReproducesQuadratic(t *testing.T) {
	y := make([]float64, 11)
	for i := range y {
		x := float64(i + 1)
		y[i] = (x - 5) * (x - 5)
	}
	got, err := PolyFit(y, 2)
	if err != nil {
		t.Fatalf("polyfit: %v", err)
	}
	for i := range y {
		if !near(got[i], y[i], 1e-8) {
			t.Fatalf("point %d: got %v want %v", i, got[i], y[i])
		}
	}
}

func TestPolyFitCapsDegree(t *testing.T) {
	y := []float64{3, 1, 4}
	got, err := PolyFit(y, 17)
	if err != nil {
		t.Fatalf("polyfit: %v", err)
	}
	for i := range y {
		if !near(got[i], y[i], 1e-8) {
			t.Fatalf("interpolation missed point %d: %v", i, got[i])
		}
	}
	if _, err := PolyFit(nil, 2); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestSavGolKeepsLowOrderPolynomial(t *testing.T) {
	x := make([]float64, 30)
	for i := range x {
		f := float64(i)
		x[i] = 0.5*f*f - 3*f + 2
	}
	got, err := SavGol(x, 7, 3)
	if err != nil {
		t.Fatalf("savgol: %v", err)
	}
	for i := range x {
		if !near(got[i], x[i], 1e-6) {
			t.Fatalf("point %d: got %v want %v", i, got[i], x[i])
		}
	}
}

func TestSavGolSmoothsSpike(t *testing.T) {
	x := make([]float64, 21)
	x[10] = 10
	got, err := SavGol(x, 5, 2)
	if err != nil {
		t.Fatalf("savgol: %v", err)
	}
	if got[10] >= 10 || got[10] <= 0 {
		t.Fatalf("spike not damped: %v", got[10])
	}
}

func TestSavGolRejectsBadWindow(t *testing.T) {
	x := make([]float64, 10)
	if _, err := SavGol(x, 4, 2); err == nil {
		t.Fatalf("even window accepted")
	}
	if _, err := SavGol(x, 5, 5); err == nil {
		t.Fatalf("order >= window accepted")
	}
	if _, err := SavGol(x, 11, 3); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestLocalExtrema(t *testing.T) {
	y := []float64{3, 2, 1, 2, 3, 2, 1, 2}
	mins := LocalMinima(y)
	if len(mins) != 2 || mins[0] != 2 || mins[1] != 6 {
		t.Fatalf("minima %v", mins)
	}
	maxs := LocalMaxima(y)
	if len(maxs) != 1 || maxs[0] != 4 {
		t.Fatalf("maxima %v", maxs)
	}
	if LocalMinima([]float64{1, 2}) != nil {
		t.Fatalf("two points have no extrema")
	}
}
