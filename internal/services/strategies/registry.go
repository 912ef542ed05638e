package strategies

import (
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"

	"StratRun/internal/domain/models"
	domrepo "StratRun/internal/domain/repository"
	domsvc "StratRun/internal/domain/service"
)

const (
	KindMarubozu      = "marubozu"
	KindRetracement   = "retracement"
	KindCupHandleRSI  = "cup_handle_rsi"
	KindPivotReversal = "pivot_reversal"
	KindDoubleBottom  = "double_bottom"
	KindTriangle      = "triangle"
)

type entry struct {
	defaults func() models.StrategyParams
	build    func(name string, p models.StrategyParams) domsvc.Strategy
}

var registry = map[string]entry{
	KindMarubozu: {
		defaults: func() models.StrategyParams {
			p := commonParams()
			p.Securities = []string{"TATAMOTORS", "ASIANPAINT"}
			return p
		},
		build: func(n string, p models.StrategyParams) domsvc.Strategy { return NewMarubozu(n, p) },
	},
	KindRetracement: {
		defaults: func() models.StrategyParams {
			p := commonParams()
			p.Lookback = 60
			p.Securities = []string{"TATAMOTORS", "ASIANPAINT"}
			return p
		},
		build: func(n string, p models.StrategyParams) domsvc.Strategy { return NewRetracement(n, p) },
	},
	KindCupHandleRSI: {
		defaults: func() models.StrategyParams {
			p := commonParams()
			p.TradeFreq = 30
			p.Leverage = 1
			p.Securities = []string{"TATAPOWER", "NTPC", "POWERGRID", "GAIL", "IOC", "RELIANCE", "BPCL", "ONGC", "ADANITRANS"}
			return p
		},
		build: func(n string, p models.StrategyParams) domsvc.Strategy { return NewCupHandleRSI(n, p) },
	},
	KindPivotReversal: {
		defaults: func() models.StrategyParams {
			p := commonParams()
			p.Frequency = string(domrepo.TF1d)
			p.SellThreshold = -5
			p.Securities = []string{"WIPRO", "RELIANCE"}
			return p
		},
		build: func(n string, p models.StrategyParams) domsvc.Strategy { return NewPivotReversal(n, p) },
	},
	KindDoubleBottom: {
		defaults: func() models.StrategyParams {
			p := commonParams()
			p.TradeFreq = 1
			p.Securities = []string{"TCS", "WIPRO"}
			return p
		},
		build: func(n string, p models.StrategyParams) domsvc.Strategy { return NewDoubleBottom(n, p) },
	},
	KindTriangle: {
		defaults: func() models.StrategyParams {
			p := commonParams()
			p.Lookback = 50
			p.Frequency = string(domrepo.TF1d)
			p.TradeFreq = 1
			p.RunAtMinute = 150
			p.Leverage = 1
			p.Sizing = models.SizingFixedLong
			p.FixedWeight = 0.13
			p.Securities = []string{"MARUTI", "AMARAJABAT", "BPCL", "BAJFINANCE", "HDFCBANK", "ASIANPAINT", "TCS"}
			return p
		},
		build: func(n string, p models.StrategyParams) domsvc.Strategy { return NewTriangle(n, p) },
	},
}

func commonParams() models.StrategyParams {
	return models.StrategyParams{
		Lookback:      375,
		Frequency:     string(domrepo.TF1m),
		BuyThreshold:  0.5,
		SellThreshold: -0.5,
		TradeFreq:     5,
		Leverage:      2,
		Sizing:        models.SizingThreshold,
	}
}

// Kinds lists the registered strategy kinds in name order.
func Kinds() []string {
	kinds := lo.Keys(registry)
	sort.Strings(kinds)
	return kinds
}

// DefaultParams returns the parameter set a kind trades with out of the box.
func DefaultParams(kind string) (models.StrategyParams, error) {
	e, ok := registry[kind]
	if !ok {
		return models.StrategyParams{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, kind)
	}
	return e.defaults(), nil
}

// Build creates a strategy of the given kind. Zero-valued fields of p are filled from
// the kind's defaults; name falls back to the kind.
func Build(kind, name string, p models.StrategyParams) (domsvc.Strategy, error) {
	e, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, kind)
	}
	if name == "" {
		name = kind
	}
	return build(e, name, merge(p, e.defaults()))
}

// BuildExact creates a strategy from a complete parameter set without filling
// zero fields, so an explicit zero threshold survives. Start from DefaultParams.
func BuildExact(kind, name string, p models.StrategyParams) (domsvc.Strategy, error) {
	e, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, kind)
	}
	if name == "" {
		name = kind
	}
	p.Securities = lo.Uniq(p.Securities)
	return build(e, name, p)
}

func build(e entry, name string, p models.StrategyParams) (domsvc.Strategy, error) {
	if err := Validate(p); err != nil {
		return nil, fmt.Errorf("build %s: %w", name, err)
	}
	return e.build(name, p), nil
}

func merge(p, def models.StrategyParams) models.StrategyParams {
	if p.Lookback == 0 {
		p.Lookback = def.Lookback
	}
	if p.Frequency == "" {
		p.Frequency = def.Frequency
	}
	if p.BuyThreshold == 0 {
		p.BuyThreshold = def.BuyThreshold
	}
	if p.SellThreshold == 0 {
		p.SellThreshold = def.SellThreshold
	}
	if p.TradeFreq == 0 {
		p.TradeFreq = def.TradeFreq
	}
	if p.Leverage == 0 {
		p.Leverage = def.Leverage
	}
	if len(p.Securities) == 0 {
		p.Securities = def.Securities
	}
	if p.Sizing == "" {
		p.Sizing = def.Sizing
	}
	if p.FixedWeight == 0 {
		p.FixedWeight = def.FixedWeight
	}
	if p.RunAtMinute == 0 {
		p.RunAtMinute = def.RunAtMinute
	}
	p.Securities = lo.Uniq(p.Securities)
	return p
}

// Validate checks a complete parameter set.
func Validate(p models.StrategyParams) error {
	switch {
	case p.Lookback <= 0:
		return fmt.Errorf("%w: lookback %d", ErrInvalidParams, p.Lookback)
	case !domrepo.IsValidTimeframe(domrepo.Timeframe(p.Frequency)):
		return fmt.Errorf("%w: frequency %q", ErrInvalidParams, p.Frequency)
	case p.TradeFreq <= 0:
		return fmt.Errorf("%w: trade_freq %d", ErrInvalidParams, p.TradeFreq)
	case p.Leverage <= 0 || math.IsNaN(p.Leverage) || math.IsInf(p.Leverage, 0):
		return fmt.Errorf("%w: leverage %v", ErrInvalidParams, p.Leverage)
	case p.BuyThreshold < p.SellThreshold:
		return fmt.Errorf("%w: buy threshold %v below sell threshold %v", ErrInvalidParams, p.BuyThreshold, p.SellThreshold)
	case len(p.Securities) == 0:
		return fmt.Errorf("%w: no securities", ErrInvalidParams)
	case lo.Contains(p.Securities, ""):
		return fmt.Errorf("%w: empty security", ErrInvalidParams)
	case p.Sizing != models.SizingThreshold && p.Sizing != models.SizingFixedLong:
		return fmt.Errorf("%w: sizing %q", ErrInvalidParams, p.Sizing)
	case p.Sizing == models.SizingFixedLong && (p.FixedWeight <= 0 || p.FixedWeight > 1):
		return fmt.Errorf("%w: fixed weight %v", ErrInvalidParams, p.FixedWeight)
	case p.RunAtMinute < 0:
		return fmt.Errorf("%w: run_at_minute %d", ErrInvalidParams, p.RunAtMinute)
	}
	return nil
}
