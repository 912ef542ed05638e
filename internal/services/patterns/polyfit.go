package patterns

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrInsufficientData is returned when a series is too short for a fit.
var ErrInsufficientData = errors.New("insufficient data")

// fitPolynomial solves the least-squares polynomial fit of y over x and returns the
// coefficients in ascending order of power.
func fitPolynomial(x, y []float64, degree int) ([]float64, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("fit polynomial: x has %d points, y has %d", len(x), len(y))
	}
	if degree < 0 || len(x) < degree+1 {
		return nil, fmt.Errorf("fit polynomial degree %d over %d points: %w", degree, len(x), ErrInsufficientData)
	}
	a := mat.NewDense(len(x), degree+1, nil)
	for i, xi := range x {
		v := 1.0
		for j := 0; j <= degree; j++ {
			a.Set(i, j, v)
			v *= xi
		}
	}
	b := mat.NewVecDense(len(y), append([]float64(nil), y...))

	var coef mat.VecDense
	if err := coef.SolveVec(a, b); err != nil {
		// A Condition error still carries a usable solution.
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("fit polynomial: %w", err)
		}
	}
	return mat.Col(nil, 0, &coef), nil
}

// evalPolynomial evaluates ascending coefficients at x (Horner).
func evalPolynomial(coef []float64, x float64) float64 {
	v := 0.0
	for i := len(coef) - 1; i >= 0; i-- {
		v = v*x + coef[i]
	}
	return v
}

// PolyFit fits a polynomial of the given degree to y sampled at x = 1..n and returns
// the fitted curve at the same points. The abscissa is mapped onto [-1, 1] before the
// fit, which spans the same polynomial space and keeps high degrees well conditioned.
// The degree is capped at n-1.
func PolyFit(y []float64, degree int) ([]float64, error) {
	n := len(y)
	if n == 0 {
		return nil, ErrInsufficientData
	}
	if n == 1 {
		return []float64{y[0]}, nil
	}
	if degree > n-1 {
		degree = n - 1
	}
	x := make([]float64, n)
	for i := range x {
		x[i] = 2*float64(i)/float64(n-1) - 1
	}
	coef, err := fitPolynomial(x, y, degree)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i, xi := range x {
		out[i] = evalPolynomial(coef, xi)
	}
	return out, nil
}
