package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"StratRun/internal/domain/models"
	domrepo "StratRun/internal/domain/repository"
	"StratRun/internal/services/features"
)

// StrategiesEvaluateUseCase computes signals on demand without touching strategy
// state or submitting orders.
type StrategiesEvaluateUseCase struct {
	dispatcher *StrategyDispatcher
	history    domrepo.HistoryProvider
	timeout    time.Duration
}

func NewStrategiesEvaluateUseCase(d *StrategyDispatcher, history domrepo.HistoryProvider) *StrategiesEvaluateUseCase {
	return &StrategiesEvaluateUseCase{dispatcher: d, history: history, timeout: 10 * time.Second}
}

// SetTimeout bounds one evaluation, history fetch included.
func (uc *StrategiesEvaluateUseCase) SetTimeout(d time.Duration) {
	if d > 0 {
		uc.timeout = d
	}
}

type EvaluateParams struct {
	Strategy string
	Symbols  []string // defaults to the strategy's securities
}

func (uc *StrategiesEvaluateUseCase) Evaluate(ctx context.Context, p EvaluateParams) (*models.Evaluation, error) {
	r, err := uc.dispatcher.Runner(p.Strategy)
	if err != nil {
		return nil, err
	}
	params := r.Params()
	symbols := lo.Uniq(lo.Compact(p.Symbols))
	if len(symbols) == 0 {
		symbols = params.Securities
	}

	// Overall timeout
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	tf := domrepo.NormalizeTimeframe(params.Frequency)
	windows, err := uc.history.History(ctx, symbols, params.Lookback, tf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHistoryUnavailable, err)
	}

	res := &models.Evaluation{
		Strategy:   r.Name(),
		Frequency:  string(tf),
		Timestamp:  time.Now(),
		Volatility: map[string]float64{},
		Errors:     map[string]string{},
	}

	type item struct {
		symbol string
		sig    models.Signal
		err    error
	}
	ch := make(chan item, len(symbols))
	var wg sync.WaitGroup
	strat := r.Strategy()

	for _, sym := range symbols {
		w, ok := windows[sym]
		if !ok {
			res.Errors[sym] = "no history"
			continue
		}
		res.Volatility[sym] = features.WindowVolatility(w)
		wg.Add(1)
		go func(sym string, w models.Window) {
			defer wg.Done()
			sig, err := strat.Evaluate(ctx, sym, w)
			ch <- item{sym, sig, err}
		}(sym, w)
	}

	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		if it.err != nil {
			res.Errors[it.symbol] = it.err.Error()
			continue
		}
		res.Signals = append(res.Signals, it.sig)
	}
	sort.Slice(res.Signals, func(i, j int) bool { return res.Signals[i].Symbol < res.Signals[j].Symbol })

	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	return res, nil
}
