package patterns

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SavGol smooths x with a Savitzky-Golay filter. Interior points use the centred
// convolution; the first and last half-windows are taken from a polynomial fitted to
// the first and last full window, as scipy's "interp" mode does.
func SavGol(x []float64, window, order int) ([]float64, error) {
	switch {
	case window%2 == 0 || window < 1:
		return nil, fmt.Errorf("savgol: window %d must be a positive odd number", window)
	case order >= window:
		return nil, fmt.Errorf("savgol: order %d must be less than window %d", order, window)
	case window > len(x):
		return nil, fmt.Errorf("savgol: window %d exceeds %d points: %w", window, len(x), ErrInsufficientData)
	}

	h, err := savgolCoeffs(window, order)
	if err != nil {
		return nil, err
	}
	n, half := len(x), window/2
	out := make([]float64, n)
	for k := half; k < n-half; k++ {
		v := 0.0
		for i, c := range h {
			v += c * x[k-half+i]
		}
		out[k] = v
	}

	if err := fitEdge(x, out, 0, window, 0, half, order); err != nil {
		return nil, err
	}
	if err := fitEdge(x, out, n-window, n, n-half, n, order); err != nil {
		return nil, err
	}
	return out, nil
}

// savgolCoeffs returns the weights that give the value at the window centre of the
// least-squares polynomial through the window.
func savgolCoeffs(window, order int) ([]float64, error) {
	half := window / 2
	a := mat.NewDense(window, order+1, nil)
	for i := 0; i < window; i++ {
		t := float64(i - half)
		v := 1.0
		for j := 0; j <= order; j++ {
			a.Set(i, j, v)
			v *= t
		}
	}
	var ata, inv, proj mat.Dense
	ata.Mul(a.T(), a)
	if err := inv.Inverse(&ata); err != nil {
		return nil, fmt.Errorf("savgol coefficients: %w", err)
	}
	proj.Mul(&inv, a.T())
	return mat.Row(nil, 0, &proj), nil
}

// fitEdge fits x[from:to] and writes the fitted values for [at, until) into out.
func fitEdge(x, out []float64, from, to, at, until, order int) error {
	xs := make([]float64, to-from)
	for i := range xs {
		xs[i] = float64(i)
	}
	coef, err := fitPolynomial(xs, x[from:to], order)
	if err != nil {
		return fmt.Errorf("savgol edge: %w", err)
	}
	for k := at; k < until; k++ {
		out[k] = evalPolynomial(coef, float64(k-from))
	}
	return nil
}
