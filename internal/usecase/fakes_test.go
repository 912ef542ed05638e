package usecase

import (
	"context"
	"sync"
	"time"

	"StratRun/internal/domain/models"
	domrepo "StratRun/internal/domain/repository"
)

type fakeStrategy struct {
	name   string
	params models.StrategyParams
	values map[string]float64
	errs   map[string]error

	mu      sync.Mutex
	commits map[string]float64
	resets  int
}

func newFakeStrategy(name string, p models.StrategyParams) *fakeStrategy {
	return &fakeStrategy{name: name, params: p, values: map[string]float64{}, errs: map[string]error{}, commits: map[string]float64{}}
}

func (f *fakeStrategy) Name() string                  { return f.name }
func (f *fakeStrategy) Kind() string                  { return "fake" }
func (f *fakeStrategy) Params() models.StrategyParams { return f.params }

func (f *fakeStrategy) Evaluate(_ context.Context, symbol string, w models.Window) (models.Signal, error) {
	if err := f.errs[symbol]; err != nil {
		return models.Signal{}, err
	}
	return models.Signal{Strategy: f.name, Symbol: symbol, Value: f.values[symbol]}, nil
}

func (f *fakeStrategy) Commit(symbol string, sig models.Signal) {
	f.mu.Lock()
	f.commits[symbol] = sig.Value
	f.mu.Unlock()
}

func (f *fakeStrategy) Flags() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]int{}
	for k, v := range f.commits {
		out[k] = int(v)
	}
	return out
}

func (f *fakeStrategy) Reset() {
	f.mu.Lock()
	f.commits = map[string]float64{}
	f.resets++
	f.mu.Unlock()
}

type fakeHistory struct {
	mu    sync.Mutex
	err   error
	calls int
	bars  int
	tf    domrepo.Timeframe
	skip  map[string]bool
}

func (h *fakeHistory) History(_ context.Context, symbols []string, bars int, tf domrepo.Timeframe) (map[string]models.Window, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	h.bars, h.tf = bars, tf
	if h.err != nil {
		return nil, h.err
	}
	out := map[string]models.Window{}
	for _, s := range symbols {
		if h.skip[s] {
			continue
		}
		out[s] = models.Window{Symbol: s, Frequency: string(tf), Candles: []models.Candle{
			{Symbol: s, Close: 100, Bucket: time.Date(2024, 3, 4, 9, 15, 0, 0, time.UTC)},
			{Symbol: s, Close: 101, Bucket: time.Date(2024, 3, 4, 9, 16, 0, 0, time.UTC)},
		}}
	}
	return out, nil
}

type fakeSink struct {
	mu     sync.Mutex
	orders []*models.OrderIntent
	err    error
}

func (s *fakeSink) Process(_ context.Context, o *models.OrderIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.orders = append(s.orders, o)
	return nil
}

func (s *fakeSink) bySymbol() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]float64{}
	for _, o := range s.orders {
		out[o.Symbol] = o.TargetPercent
	}
	return out
}

type fakeMetrics struct {
	mu     sync.Mutex
	errors map[string]int
	sent   map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{errors: map[string]int{}, sent: map[string]int{}}
}

func (m *fakeMetrics) RecordOrderSent(backend, strategy string) {
	m.mu.Lock()
	m.sent[backend]++
	m.mu.Unlock()
}
func (m *fakeMetrics) RecordSignal(string, string, float64) {}
func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}
func (m *fakeMetrics) RecordLatency(string, float64) {}

func (m *fakeMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

type fakeSignalStore struct {
	mu     sync.Mutex
	stored []models.Signal
}

func (s *fakeSignalStore) StoreSignals(_ context.Context, sigs []models.Signal) error {
	s.mu.Lock()
	s.stored = append(s.stored, sigs...)
	s.mu.Unlock()
	return nil
}
func (s *fakeSignalStore) Health(context.Context) error { return nil }
func (s *fakeSignalStore) Close() error                 { return nil }

func thresholdParams(secs ...string) models.StrategyParams {
	return models.StrategyParams{
		Lookback:      375,
		Frequency:     "1m",
		BuyThreshold:  0.5,
		SellThreshold: -0.5,
		TradeFreq:     5,
		Leverage:      2,
		Securities:    secs,
		Sizing:        models.SizingThreshold,
	}
}
