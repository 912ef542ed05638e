package patterns

// LocalMinima returns indices where the sign of the first difference rises,
// i.e. the curve stops falling. Flat steps count as a change of sign.
func LocalMinima(y []float64) []int {
	return turns(y, func(prev, next int) bool { return next > prev })
}

// LocalMaxima returns indices where the curve stops rising.
func LocalMaxima(y []float64) []int {
	return turns(y, func(prev, next int) bool { return next < prev })
}

func turns(y []float64, keep func(prev, next int) bool) []int {
	if len(y) < 3 {
		return nil
	}
	signs := make([]int, len(y)-1)
	for i := 0; i+1 < len(y); i++ {
		signs[i] = sign(y[i+1] - y[i])
	}
	var out []int
	for i := 0; i+1 < len(signs); i++ {
		if keep(signs[i], signs[i+1]) {
			out = append(out, i+1)
		}
	}
	return out
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
