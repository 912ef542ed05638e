package usecase

import (
	"github.com/shopspring/decimal"

	"StratRun/internal/domain/models"
)

// ThresholdWeight is round(1/n, 2) * leverage. The share is rounded half-to-even on the
// exact value of the float64 quotient: eight securities get 0.12 per unit of leverage,
// forty get 0.03 because 1/40 is stored slightly above 0.025.
func ThresholdWeight(n int, leverage float64) float64 {
	if n <= 0 {
		return 0
	}
	share := decimal.NewFromFloatWithExponent(1/float64(n), -30).RoundBank(2)
	w, _ := share.Mul(decimal.NewFromFloat(leverage)).Float64()
	return w
}

// TargetsFor maps signals to target weights, one per security in params order.
//
// Threshold sizing allocates the same weight to every security: long above the buy
// threshold, short below the sell threshold, flat otherwise. Fixed-long sizing buys
// FixedWeight on a positive signal, exits on a negative one and otherwise holds.
func TargetsFor(p models.StrategyParams, signals map[string]float64) []models.TargetPosition {
	out := make([]models.TargetPosition, 0, len(p.Securities))
	if p.Sizing == models.SizingFixedLong {
		for _, sec := range p.Securities {
			t := models.TargetPosition{Symbol: sec}
			switch v := signals[sec]; {
			case v > 0:
				t.Weight = p.FixedWeight
			case v < 0:
				t.Weight = 0
			default:
				t.Hold = true
			}
			out = append(out, t)
		}
		return out
	}

	w := ThresholdWeight(len(p.Securities), p.Leverage)
	for _, sec := range p.Securities {
		t := models.TargetPosition{Symbol: sec}
		switch v := signals[sec]; {
		case v > p.BuyThreshold:
			t.Weight = w
		case v < p.SellThreshold:
			t.Weight = -w
		}
		out = append(out, t)
	}
	return out
}
