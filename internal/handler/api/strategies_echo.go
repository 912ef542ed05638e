package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	models "StratRun/internal/domain/models"
	domrepo "StratRun/internal/domain/repository"
	"StratRun/internal/service/metrics"
	"StratRun/internal/service/ratelimit"
	"StratRun/internal/services/strategies"
	"StratRun/internal/usecase"
	pkgcache "StratRun/pkg/cache"
	xhttp "StratRun/pkg/http"
	xlogger "StratRun/pkg/logger"
	"StratRun/pkg/queue"
	"StratRun/pkg/util"

	"github.com/labstack/echo/v4"
)

// HealthCheck checks one dependency for GET /health.
type HealthCheck func(ctx context.Context) error

// StrategiesEchoHandler exposes strategy state, on-demand evaluation and manual triggers.
type StrategiesEchoHandler struct {
	logger     *xlogger.Logger
	dispatcher *usecase.StrategyDispatcher
	eval       *usecase.StrategiesEvaluateUseCase
	candles    *usecase.CandlesUseCase

	queue    queue.Publisher
	cache    pkgcache.Service
	cacheTTL time.Duration
	rl       *ratelimit.Limiter
	rlCap    float64
	rlRefill float64
	checks   map[string]HealthCheck
}

type HandlerOption func(*StrategiesEchoHandler)

// WithCache caches evaluation responses for ttl.
func WithCache(c pkgcache.Service, ttl time.Duration) HandlerOption {
	return func(h *StrategiesEchoHandler) {
		h.cache = c
		if ttl > 0 {
			h.cacheTTL = ttl
		}
	}
}

// WithQueue lets async triggers go through the job queue.
func WithQueue(q queue.Publisher) HandlerOption {
	return func(h *StrategiesEchoHandler) { h.queue = q }
}

// WithRateLimit sets the per-client token bucket.
func WithRateLimit(capacity, refillPerSec float64) HandlerOption {
	return func(h *StrategiesEchoHandler) {
		if capacity > 0 && refillPerSec > 0 {
			h.rlCap, h.rlRefill = capacity, refillPerSec
		}
	}
}

// WithCandles enables GET /api/candles.
func WithCandles(uc *usecase.CandlesUseCase) HandlerOption {
	return func(h *StrategiesEchoHandler) { h.candles = uc }
}

// WithHealthCheck adds a named dependency check.
func WithHealthCheck(name string, check HealthCheck) HandlerOption {
	return func(h *StrategiesEchoHandler) { h.checks[name] = check }
}

func NewStrategiesEchoHandler(logger *xlogger.Logger, d *usecase.StrategyDispatcher, eval *usecase.StrategiesEvaluateUseCase, opts ...HandlerOption) *StrategiesEchoHandler {
	metrics.Register()
	h := &StrategiesEchoHandler{
		logger:     logger,
		dispatcher: d,
		eval:       eval,
		cacheTTL:   15 * time.Second,
		rl:         ratelimit.New(),
		rlCap:      5,
		rlRefill:   2,
		checks:     map[string]HealthCheck{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *StrategiesEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api", h.rateLimit)
	g.GET("/strategies", h.List)
	g.GET("/strategies/:name/state", h.State)
	g.POST("/strategies/:name/evaluate", h.Evaluate)
	g.POST("/strategies/:name/trigger", h.Trigger)
	if h.candles != nil {
		g.GET("/candles", h.Candles)
	}
}

func (h *StrategiesEchoHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !h.rl.Allow(c.RealIP()+":"+c.Path(), h.rlCap, h.rlRefill) {
			metrics.APIRateLimited.Inc()
			if h.logger != nil {
				h.logger.Warn("api rate_limited", xlogger.String("remote", c.RealIP()), xlogger.String("route", c.Path()))
			}
			return xhttp.StatusResponse(c, http.StatusTooManyRequests, nil)
		}
		return next(c)
	}
}

func (h *StrategiesEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	status := http.StatusOK
	out := map[string]string{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			out[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		out[name] = "ok"
	}
	return xhttp.StatusResponse(c, status, out)
}

func (h *StrategiesEchoHandler) List(c echo.Context) error {
	defer observe("list", time.Now())
	names := h.dispatcher.Names()
	out := make([]models.StrategySummary, 0, len(names))
	for _, name := range names {
		r, err := h.dispatcher.Runner(name)
		if err != nil {
			continue
		}
		p := r.Params()
		out = append(out, models.StrategySummary{
			Name:       name,
			Kind:       r.Strategy().Kind(),
			Frequency:  p.Frequency,
			Lookback:   p.Lookback,
			TradeFreq:  p.TradeFreq,
			Leverage:   p.Leverage,
			Sizing:     p.Sizing,
			Securities: p.Securities,
			Trading:    r.Trading(),
		})
	}
	return xhttp.ListResponse(c, out, int64(len(out)))
}

func (h *StrategiesEchoHandler) State(c echo.Context) error {
	defer observe("state", time.Now())
	req := &models.StrategyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	r, err := h.dispatcher.Runner(req.Name)
	if err != nil {
		return h.fail(c, "state", err)
	}
	st := r.State()
	res := models.StrategyStateResponse{
		Strategy:   st.Strategy,
		Kind:       st.Kind,
		Trading:    st.Trading,
		Securities: st.Securities,
		Signals:    st.Signals,
		Targets:    st.Targets,
		Flags:      st.Flags,
		LastError:  st.LastError,
		Cycles:     st.Cycles,
	}
	if !st.LastRun.IsZero() {
		res.LastRun = &st.LastRun
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *StrategiesEchoHandler) Evaluate(c echo.Context) error {
	defer observe("evaluate", time.Now())
	req := &models.EvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()

	key := pkgcache.Key("evaluate", req.Name, strings.Join(req.Symbols, ","))
	if h.cache != nil {
		var cached string
		if err := h.cache.Get(ctx, key, &cached); err == nil {
			var res models.EvaluationResponse
			if json.Unmarshal([]byte(cached), &res) == nil {
				metrics.APICacheHits.WithLabelValues("evaluate").Inc()
				return xhttp.SuccessResponse(c, res)
			}
		} else if !errors.Is(err, pkgcache.ErrCacheMiss) && h.logger != nil {
			h.logger.Warn("evaluate cache_get_error", xlogger.Error(err))
		}
	}

	ev, err := h.eval.Evaluate(ctx, usecase.EvaluateParams{Strategy: req.Name, Symbols: req.Symbols})
	if err != nil {
		return h.fail(c, "evaluate", err)
	}
	res := toEvaluationResponse(ev)
	if h.cache != nil {
		if b, err := json.Marshal(res); err == nil {
			if err := h.cache.Set(ctx, key, string(b), h.cacheTTL); err != nil && h.logger != nil {
				h.logger.Warn("evaluate cache_set_error", xlogger.Error(err))
			}
		}
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

func (h *StrategiesEchoHandler) Trigger(c echo.Context) error {
	defer observe("trigger", time.Now())
	req := &models.TriggerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if _, err := h.dispatcher.Runner(req.Name); err != nil {
		return h.fail(c, "trigger", err)
	}
	tr := models.Trigger{Strategy: req.Name, Event: models.TriggerEvent(req.Event), Minute: req.Minute, At: time.Now().UTC()}
	res := models.TriggerResponse{Strategy: tr.Strategy, Event: string(tr.Event), Minute: tr.Minute}

	if req.Async {
		if h.queue == nil {
			return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_QUEUE_DISABLED", "job queue is not enabled", http.StatusBadRequest).WithField("async"))
		}
		if err := h.queue.PublishMessage(c.Request().Context(), usecase.JobTypeStrategyTrigger, tr); err != nil {
			return h.fail(c, "trigger", err)
		}
		res.Queued = true
		return xhttp.AcceptedResponse(c, res)
	}
	if err := h.dispatcher.Dispatch(c.Request().Context(), tr); err != nil {
		return h.fail(c, "trigger", err)
	}
	// A rebalance changes strategy state, so cached evaluations are stale.
	if h.cache != nil {
		if err := h.cache.DeleteByPrefix(c.Request().Context(), pkgcache.Key("evaluate", req.Name)+":"); err != nil && h.logger != nil {
			h.logger.Warn("evaluate cache_invalidate_error", xlogger.Error(err))
		}
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *StrategiesEchoHandler) Candles(c echo.Context) error {
	defer observe("candles", time.Now())
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := domrepo.NormalizeTimeframe(req.TF)
	var (
		w   models.Window
		err error
	)
	if req.From == "" {
		w, err = h.candles.Latest(c.Request().Context(), req.Symbol, req.N, tf)
	} else {
		from, ok := util.ParseTime(req.From)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError("from must be RFC3339 or unix seconds").WithField("from"))
		}
		to := util.ParseTimeDefault(req.To, time.Now().UTC())
		w, err = h.candles.Range(c.Request().Context(), req.Symbol, from, to, tf, req.N)
	}
	if err != nil {
		return h.fail(c, "candles", err)
	}
	out := models.CandlesResponse{Symbol: w.Symbol, Timeframe: string(tf), Count: w.Len(), Candles: make([]models.CandleResponse, 0, w.Len())}
	for _, k := range w.Candles {
		out.Candles = append(out.Candles, models.CandleResponse{Bucket: k.Bucket, Open: k.Open, High: k.High, Low: k.Low, Close: k.Close, Volume: k.Volume})
	}
	return xhttp.SuccessResponse(c, out)
}

// fail maps usecase errors onto AppErrors.
func (h *StrategiesEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	metrics.APIErrors.WithLabelValues(endpoint).Inc()
	var appErr *xhttp.AppError
	switch {
	case errors.Is(err, strategies.ErrUnknownStrategy):
		appErr = xhttp.NotFoundError(err.Error())
	case errors.Is(err, usecase.ErrUnknownEvent):
		appErr = xhttp.BadRequestError(err.Error())
	case errors.Is(err, usecase.ErrHistoryUnavailable):
		appErr = xhttp.UnavailableError("ERR_HISTORY_UNAVAILABLE", err.Error())
	case errors.Is(err, usecase.ErrBadRange):
		appErr = xhttp.BadRequestError(err.Error())
	case errors.Is(err, queue.ErrQueueFull):
		appErr = xhttp.UnavailableError("ERR_QUEUE_FULL", err.Error())
	default:
		if h.logger != nil {
			h.logger.Error(endpoint+" usecase error", xlogger.Error(err))
		}
		appErr = xhttp.InternalError("strategy request failed").WithError(err)
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func observe(endpoint string, start time.Time) {
	metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func toEvaluationResponse(ev *models.Evaluation) models.EvaluationResponse {
	res := models.EvaluationResponse{
		Strategy:   ev.Strategy,
		Frequency:  ev.Frequency,
		Timestamp:  ev.Timestamp,
		Signals:    make([]models.SignalResponse, 0, len(ev.Signals)),
		Volatility: ev.Volatility,
		Errors:     ev.Errors,
	}
	for _, s := range ev.Signals {
		res.Signals = append(res.Signals, models.SignalResponse{Symbol: s.Symbol, Value: s.Value, At: s.At, Meta: s.Meta})
	}
	return res
}
