package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"StratRun/internal/domain/models"
	domrepo "StratRun/internal/domain/repository"
	domsvc "StratRun/internal/domain/service"
	applogger "StratRun/pkg/logger"

	"github.com/google/uuid"
)

// ErrHistoryUnavailable aborts a cycle when the history provider fails.
var ErrHistoryUnavailable = errors.New("history unavailable")

// OrderSink accepts order intents; the order pipeline and the router both qualify.
type OrderSink interface {
	Process(ctx context.Context, o *models.OrderIntent) error
}

// StrategyRunner drives one strategy through the host callbacks and keeps its
// transient per-session state.
type StrategyRunner struct {
	strategy domsvc.Strategy
	params   models.StrategyParams
	history  domrepo.HistoryProvider
	orders   OrderSink
	signals  domrepo.SignalStore
	metrics  domrepo.Metrics
	l        *applogger.Logger
	now      func() time.Time

	cycle sync.Mutex // one cycle at a time

	mu        sync.RWMutex
	trading   bool
	last      map[string]float64
	targets   map[string]float64
	lastRun   time.Time
	lastError string
	cycles    int64
}

type RunnerOption func(*StrategyRunner)

// WithSignalStore records every generated signal.
func WithSignalStore(s domrepo.SignalStore) RunnerOption {
	return func(r *StrategyRunner) { r.signals = s }
}

// WithClock overrides time.Now for order timestamps.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *StrategyRunner) {
		if now != nil {
			r.now = now
		}
	}
}

func NewStrategyRunner(strategy domsvc.Strategy, history domrepo.HistoryProvider, orders OrderSink, metrics domrepo.Metrics, opts ...RunnerOption) *StrategyRunner {
	r := &StrategyRunner{
		strategy: strategy,
		params:   strategy.Params(),
		history:  history,
		orders:   orders,
		metrics:  metrics,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.resetState()
	return r
}

// SetLogger injects a structured logger.
func (r *StrategyRunner) SetLogger(l *applogger.Logger) { r.l = l }

func (r *StrategyRunner) Name() string                  { return r.strategy.Name() }
func (r *StrategyRunner) Strategy() domsvc.Strategy     { return r.strategy }
func (r *StrategyRunner) Params() models.StrategyParams { return r.strategy.Params() }

func (r *StrategyRunner) resetState() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trading = false
	r.last = make(map[string]float64, len(r.params.Securities))
	r.targets = make(map[string]float64, len(r.params.Securities))
	for _, sec := range r.params.Securities {
		r.last[sec] = 0
		r.targets[sec] = 0
	}
	r.lastError = ""
}

// Initialize resets signals, targets and strategy flags for a new session.
func (r *StrategyRunner) Initialize(_ context.Context) {
	r.resetState()
	if st, ok := r.strategy.(domsvc.Stateful); ok {
		st.Reset()
	}
	if r.l != nil {
		r.l.Info("strategy initialized",
			applogger.String("strategy", r.Name()),
			applogger.Strings("securities", r.params.Securities),
			applogger.Int("trade_freq", r.params.TradeFreq),
		)
	}
}

// BeforeTradingStart opens the trade gate.
func (r *StrategyRunner) BeforeTradingStart(_ context.Context) { r.setTrading(true) }

// StopTrading closes the trade gate until the next session.
func (r *StrategyRunner) StopTrading(_ context.Context) { r.setTrading(false) }

func (r *StrategyRunner) setTrading(on bool) {
	r.mu.Lock()
	r.trading = on
	r.mu.Unlock()
	if r.l != nil {
		r.l.Info("trade gate", applogger.String("strategy", r.Name()), applogger.Bool("trading", on))
	}
}

func (r *StrategyRunner) Trading() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.trading
}

// Due reports whether a cycle is scheduled at minute (minutes since the open).
func (r *StrategyRunner) Due(minute int) bool {
	if minute < 0 {
		return false
	}
	if r.params.RunAtMinute > 0 {
		return minute == r.params.RunAtMinute
	}
	return r.params.TradeFreq > 0 && minute%r.params.TradeFreq == 0
}

// RunStrategy runs one full cycle when trading is on and the minute is due.
// It reports whether a cycle ran.
func (r *StrategyRunner) RunStrategy(ctx context.Context, minute int) (bool, error) {
	if !r.Trading() || !r.Due(minute) {
		return false, nil
	}
	r.cycle.Lock()
	defer r.cycle.Unlock()

	start := time.Now()
	defer func() { r.metrics.RecordLatency("strategy_cycle", time.Since(start).Seconds()) }()

	signals, err := r.GenerateSignals(ctx)
	if err != nil {
		r.finish(err)
		return true, err
	}
	targets := r.GenerateTargetPosition(signals)
	err = r.Rebalance(ctx, targets)
	r.finish(err)
	return true, err
}

func (r *StrategyRunner) finish(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycles++
	r.lastRun = r.now()
	r.lastError = ""
	if err != nil {
		r.lastError = err.Error()
	}
}

// GenerateSignals fetches history for every security and evaluates the strategy.
// A history failure aborts the cycle. A detector failure on one security yields a
// zero signal for it.
func (r *StrategyRunner) GenerateSignals(ctx context.Context) (map[string]float64, error) {
	tf := domrepo.NormalizeTimeframe(r.params.Frequency)
	windows, err := r.history.History(ctx, r.params.Securities, r.params.Lookback, tf)
	if err != nil {
		r.metrics.RecordError("history_fetch")
		if r.l != nil {
			r.l.Error("history fetch failed, skipping cycle",
				applogger.String("strategy", r.Name()),
				applogger.Int("bars", r.params.Lookback),
				applogger.String("tf", string(tf)),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("%w: %v", ErrHistoryUnavailable, err)
	}

	stateful, _ := r.strategy.(domsvc.Stateful)
	out := make(map[string]float64, len(r.params.Securities))
	audit := make([]models.Signal, 0, len(r.params.Securities))
	for _, sec := range r.params.Securities {
		w, ok := windows[sec]
		if !ok {
			if r.l != nil {
				r.l.Warn("no history for security", applogger.String("strategy", r.Name()), applogger.String("symbol", sec))
			}
			out[sec] = 0
			continue
		}
		sig, err := r.strategy.Evaluate(ctx, sec, w)
		if err != nil {
			r.metrics.RecordError("strategy_evaluate")
			if r.l != nil {
				r.l.Warn("evaluate failed",
					applogger.String("strategy", r.Name()),
					applogger.String("symbol", sec),
					applogger.Error(err),
				)
			}
			sig = models.Signal{Strategy: r.Name(), Symbol: sec, At: r.now()}
		}
		if stateful != nil {
			stateful.Commit(sec, sig)
		}
		out[sec] = sig.Value
		audit = append(audit, sig)
		r.metrics.RecordSignal(r.Name(), sec, sig.Value)
	}

	r.mu.Lock()
	for k, v := range out {
		r.last[k] = v
	}
	r.mu.Unlock()

	if r.signals != nil && len(audit) > 0 {
		if err := r.signals.StoreSignals(ctx, audit); err != nil {
			r.metrics.RecordError("signal_store")
			if r.l != nil {
				r.l.Warn("signal audit failed", applogger.String("strategy", r.Name()), applogger.Error(err))
			}
		}
	}
	return out, nil
}

// GenerateTargetPosition sizes signals into target weights.
func (r *StrategyRunner) GenerateTargetPosition(signals map[string]float64) []models.TargetPosition {
	targets := TargetsFor(r.params, signals)
	r.mu.Lock()
	for _, t := range targets {
		if !t.Hold {
			r.targets[t.Symbol] = t.Weight
		}
	}
	r.mu.Unlock()
	return targets
}

// Rebalance submits one target-percent order per security that is not on hold.
// Every order is attempted; the failures are joined.
func (r *StrategyRunner) Rebalance(ctx context.Context, targets []models.TargetPosition) error {
	at := r.now().UTC()
	r.mu.RLock()
	last := make(map[string]float64, len(r.last))
	for k, v := range r.last {
		last[k] = v
	}
	r.mu.RUnlock()

	var errs []error
	for _, t := range targets {
		if t.Hold {
			continue
		}
		o := &models.OrderIntent{
			ID:            uuid.NewString(),
			Strategy:      r.Name(),
			Symbol:        t.Symbol,
			TargetPercent: t.Weight,
			Signal:        last[t.Symbol],
			Reason:        r.strategy.Kind(),
			At:            at,
		}
		if err := r.orders.Process(ctx, o); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Symbol, err))
			if r.l != nil {
				r.l.Error("order target percent failed",
					applogger.String("strategy", r.Name()),
					applogger.String("symbol", t.Symbol),
					applogger.Float64("target", t.Weight),
					applogger.Error(err),
				)
			}
		}
	}
	return errors.Join(errs...)
}

// State returns a snapshot of the runner.
func (r *StrategyRunner) State() models.StrategyState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := models.StrategyState{
		Strategy:   r.Name(),
		Kind:       r.strategy.Kind(),
		Trading:    r.trading,
		Securities: append([]string(nil), r.params.Securities...),
		Signals:    make(map[string]float64, len(r.last)),
		Targets:    make(map[string]float64, len(r.targets)),
		LastRun:    r.lastRun,
		LastError:  r.lastError,
		Cycles:     r.cycles,
	}
	for k, v := range r.last {
		st.Signals[k] = v
	}
	for k, v := range r.targets {
		st.Targets[k] = v
	}
	if s, ok := r.strategy.(domsvc.Stateful); ok {
		st.Flags = s.Flags()
	}
	return st
}
