package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"StratRun/internal/domain/models"
	domrepo "StratRun/internal/domain/repository"
	"StratRun/internal/services/strategies"
	"StratRun/internal/usecase"
	pkgcache "StratRun/pkg/cache"
	pkgmetrics "StratRun/pkg/metrics"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

type stubHistory struct {
	mu  sync.Mutex
	err error
}

func (h *stubHistory) setErr(err error) {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
}

func (h *stubHistory) History(_ context.Context, symbols []string, _ int, tf domrepo.Timeframe) (map[string]models.Window, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return nil, h.err
	}
	at := time.Date(2024, 3, 4, 9, 20, 0, 0, time.UTC)
	bars := map[string]models.Candle{
		"TCS":  {Bucket: at, Open: 100, High: 110, Low: 100, Close: 110},
		"INFY": {Bucket: at, Open: 110, High: 110, Low: 100, Close: 100},
	}
	out := map[string]models.Window{}
	for _, s := range symbols {
		c := bars[s]
		c.Symbol = s
		out[s] = models.Window{Symbol: s, Frequency: string(tf), Candles: []models.Candle{c}}
	}
	return out, nil
}

type stubSink struct {
	mu     sync.Mutex
	orders []*models.OrderIntent
}

func (s *stubSink) Process(_ context.Context, o *models.OrderIntent) error {
	s.mu.Lock()
	s.orders = append(s.orders, o)
	s.mu.Unlock()
	return nil
}

type stubQueue struct {
	msgType string
	payload interface{}
}

func (q *stubQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	q.msgType, q.payload = msgType, payload
	return nil
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type fixture struct {
	e       *echo.Echo
	history *stubHistory
	sink    *stubSink
}

func newFixture(t *testing.T, opts ...HandlerOption) *fixture {
	t.Helper()
	strat, err := strategies.Build(strategies.KindMarubozu, "maru", models.StrategyParams{Securities: []string{"TCS", "INFY"}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	f := &fixture{e: echo.New(), history: &stubHistory{}, sink: &stubSink{}}
	runner := usecase.NewStrategyRunner(strat, f.history, f.sink, pkgmetrics.NewWith(prometheus.NewRegistry()))
	d := usecase.NewStrategyDispatcher([]*usecase.StrategyRunner{runner})
	h := NewStrategiesEchoHandler(nil, d, usecase.NewStrategiesEvaluateUseCase(d, f.history), opts...)
	h.RegisterRoutes(f.e)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: bad json %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, env
}

func TestListStrategies(t *testing.T) {
	f := newFixture(t)
	_, env := f.do(t, http.MethodGet, "/api/strategies", "")
	var list struct {
		Rows  []models.StrategySummary `json:"rows"`
		Total int64                    `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Total != 1 || list.Rows[0].Name != "maru" || list.Rows[0].Kind != strategies.KindMarubozu {
		t.Fatalf("unexpected list %+v", list)
	}
	if list.Rows[0].TradeFreq != 5 || len(list.Rows[0].Securities) != 2 {
		t.Fatalf("defaults not reported: %+v", list.Rows[0])
	}
}

func TestEvaluateIsCached(t *testing.T) {
	mem := pkgcache.NewMemoryCache()
	defer mem.Close()
	f := newFixture(t, WithCache(mem, time.Minute))

	_, env := f.do(t, http.MethodPost, "/api/strategies/maru/evaluate", `{"symbols":["TCS","INFY"]}`)
	if env.Status != http.StatusOK {
		t.Fatalf("status %d: %s", env.Status, env.Data)
	}
	var res models.EvaluationResponse
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Signals) != 2 || res.Signals[0].Symbol != "INFY" || res.Signals[0].Value != -1 || res.Signals[1].Value != 1 {
		t.Fatalf("unexpected signals %+v", res.Signals)
	}

	f.history.setErr(errors.New("host down"))
	_, env = f.do(t, http.MethodPost, "/api/strategies/maru/evaluate", `{"symbols":["TCS","INFY"]}`)
	if env.Status != http.StatusOK {
		t.Fatalf("cached response expected, got status %d", env.Status)
	}
	_, env = f.do(t, http.MethodPost, "/api/strategies/maru/evaluate", `{"symbols":["TCS"]}`)
	if env.Status != http.StatusServiceUnavailable {
		t.Fatalf("uncached key with failing history: status %d", env.Status)
	}
}

func TestTriggerInvalidatesEvaluateCache(t *testing.T) {
	mem := pkgcache.NewMemoryCache()
	defer mem.Close()
	f := newFixture(t, WithCache(mem, time.Minute))

	f.do(t, http.MethodPost, "/api/strategies/maru/evaluate", `{"symbols":["TCS"]}`)
	if mem.Len() != 1 {
		t.Fatalf("expected one cached evaluation, got %d", mem.Len())
	}
	_, env := f.do(t, http.MethodPost, "/api/strategies/maru/trigger", `{"event":"before_trading_start"}`)
	if env.Status != http.StatusOK {
		t.Fatalf("status %d: %s", env.Status, env.Data)
	}
	if mem.Len() != 0 {
		t.Fatalf("cache not invalidated, %d entries left", mem.Len())
	}
}

func TestEvaluateUnknownStrategy(t *testing.T) {
	f := newFixture(t)
	_, env := f.do(t, http.MethodPost, "/api/strategies/nope/evaluate", "")
	if env.Status != http.StatusNotFound {
		t.Fatalf("status %d", env.Status)
	}
}

func TestTriggerRunsCycle(t *testing.T) {
	f := newFixture(t)
	_, env := f.do(t, http.MethodPost, "/api/strategies/maru/trigger", `{"minute":5}`)
	if env.Status != http.StatusOK || len(f.sink.orders) != 0 {
		t.Fatalf("gate closed: status %d orders %d", env.Status, len(f.sink.orders))
	}
	f.do(t, http.MethodPost, "/api/strategies/maru/trigger", `{"event":"before_trading_start"}`)
	_, env = f.do(t, http.MethodPost, "/api/strategies/maru/trigger", `{"minute":5}`)
	if env.Status != http.StatusOK {
		t.Fatalf("status %d: %s", env.Status, env.Data)
	}
	got := map[string]float64{}
	for _, o := range f.sink.orders {
		got[o.Symbol] = o.TargetPercent
	}
	if got["TCS"] != 1 || got["INFY"] != -1 {
		t.Fatalf("unexpected targets %v", got)
	}

	_, env = f.do(t, http.MethodGet, "/api/strategies/maru/state", "")
	var st models.StrategyStateResponse
	if err := json.Unmarshal(env.Data, &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !st.Trading || st.Cycles != 1 || st.LastRun == nil || st.Signals["TCS"] != 1 {
		t.Fatalf("unexpected state %+v", st)
	}

	_, env = f.do(t, http.MethodPost, "/api/strategies/maru/trigger", `{"event":"rebalance"}`)
	if env.Status != http.StatusBadRequest {
		t.Fatalf("invalid event: status %d", env.Status)
	}
}

func TestTriggerAsync(t *testing.T) {
	f := newFixture(t)
	_, env := f.do(t, http.MethodPost, "/api/strategies/maru/trigger", `{"async":true}`)
	if env.Status != http.StatusBadRequest {
		t.Fatalf("async without queue: status %d", env.Status)
	}

	q := &stubQueue{}
	f = newFixture(t, WithQueue(q))
	_, env = f.do(t, http.MethodPost, "/api/strategies/maru/trigger", `{"async":true,"minute":30}`)
	if env.Status != http.StatusAccepted {
		t.Fatalf("status %d", env.Status)
	}
	tr, ok := q.payload.(models.Trigger)
	if q.msgType != usecase.JobTypeStrategyTrigger || !ok || tr.Strategy != "maru" || tr.Minute != 30 || tr.Event != models.EventRunStrategy {
		t.Fatalf("unexpected queued message %s %+v", q.msgType, q.payload)
	}
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, WithRateLimit(1, 0.001))
	if code, _ := f.do(t, http.MethodGet, "/api/strategies", ""); code != http.StatusOK {
		t.Fatalf("first call: %d", code)
	}
	if code, _ := f.do(t, http.MethodGet, "/api/strategies", ""); code != http.StatusTooManyRequests {
		t.Fatalf("second call: %d", code)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t,
		WithHealthCheck("clickhouse", func(context.Context) error { return nil }),
		WithHealthCheck("redis", func(context.Context) error { return errors.New("refused") }),
	)
	code, env := f.do(t, http.MethodGet, "/health", "")
	if code != http.StatusServiceUnavailable {
		t.Fatalf("code %d", code)
	}
	var checks map[string]string
	_ = json.Unmarshal(env.Data, &checks)
	if checks["clickhouse"] != "ok" || checks["redis"] != "refused" {
		t.Fatalf("checks %v", checks)
	}
}

type stubStore struct {
	from, to time.Time
}

func (s *stubStore) GetCandles(_ context.Context, symbol string, from, to time.Time, _ domrepo.Timeframe) ([]models.Candle, error) {
	s.from, s.to = from, to
	out := make([]models.Candle, 0, 3)
	for i := 0; i < 3; i++ {
		out = append(out, models.Candle{Bucket: from.Add(time.Duration(i) * 5 * time.Minute), Symbol: symbol, Close: float64(100 + i)})
	}
	return out, nil
}

func (s *stubStore) GetLatestNCandles(_ context.Context, symbol string, n int, _ domrepo.Timeframe) ([]models.Candle, error) {
	return []models.Candle{{Symbol: symbol, Close: 99}}, nil
}

func TestCandlesLatestAndRange(t *testing.T) {
	store := &stubStore{}
	f := newFixture(t, WithCandles(usecase.NewCandlesUseCase(store)))

	_, env := f.do(t, http.MethodGet, "/api/candles?symbol=TCS", "")
	var res models.CandlesResponse
	if err := json.Unmarshal(env.Data, &res); err != nil || res.Count != 1 || res.Timeframe != "1m" {
		t.Fatalf("latest: %+v %v", res, err)
	}

	_, env = f.do(t, http.MethodGet, "/api/candles?symbol=TCS&tf=5m&n=2&from=2024-03-04T09:17:00Z&to=2024-03-04T10:00:00Z", "")
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Count != 2 || store.from.Minute() != 15 {
		t.Fatalf("range: count=%d from=%v", res.Count, store.from)
	}

	_, env = f.do(t, http.MethodGet, "/api/candles?symbol=TCS&from=2024-03-05T00:00:00Z&to=2024-03-04T00:00:00Z", "")
	if env.Status != http.StatusBadRequest {
		t.Fatalf("inverted range: status %d", env.Status)
	}
	_, env = f.do(t, http.MethodGet, "/api/candles?symbol=TCS&from=yesterday", "")
	if env.Status != http.StatusBadRequest {
		t.Fatalf("bad from: status %d", env.Status)
	}
}
