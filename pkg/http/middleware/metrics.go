package middleware

import (
	"errors"
	"strconv"
	"sync"
	"time"

	applogger "StratRun/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

type httpMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inFlight prometheus.Gauge
	size     *prometheus.HistogramVec
}

var (
	metricsOnce sync.Once
	shared      *httpMetrics
)

func registerHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	m := &httpMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stratrun_http_requests_total",
			Help: "HTTP requests by route, method and status class",
		}, []string{"route", "method", "class"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stratrun_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"route", "method"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stratrun_http_in_flight_requests",
			Help: "Requests being served",
		}),
		size: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stratrun_http_response_size_bytes",
			Help:    "Response body size",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}, []string{"route"}),
	}
	reg.MustRegister(m.requests, m.latency, m.inFlight, m.size)
	return m
}

// Metrics records request metrics labelled by the matched route template,
// and logs 5xx responses and requests slower than slow.
func Metrics(l *applogger.Logger, slow time.Duration) echo.MiddlewareFunc {
	metricsOnce.Do(func() { shared = registerHTTPMetrics(prometheus.DefaultRegisterer) })
	return metricsWith(shared, l, slow)
}

func metricsWith(m *httpMetrics, l *applogger.Logger, slow time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.inFlight.Inc()
			start := time.Now()
			err := next(c)
			took := time.Since(start)
			m.inFlight.Dec()

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			status := responseStatus(c, err)

			m.requests.WithLabelValues(route, method, statusClass(status)).Inc()
			m.latency.WithLabelValues(route, method).Observe(took.Seconds())
			m.size.WithLabelValues(route).Observe(float64(c.Response().Size))

			if l == nil {
				return err
			}
			fields := []applogger.Field{
				applogger.String("route", route),
				applogger.String("method", method),
				applogger.Int("status", status),
				applogger.Duration("took", took),
			}
			if status >= 500 {
				l.Error("http request failed", fields...)
			} else if slow > 0 && took >= slow {
				l.Warn("http request slow", fields...)
			}
			return err
		}
	}
}

// responseStatus is the status echo will write for err when the handler
// returned one without committing a response.
func responseStatus(c echo.Context, err error) int {
	if err == nil || c.Response().Committed {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 500
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "5xx"
	}
	return strconv.Itoa(code/100) + "xx"
}
