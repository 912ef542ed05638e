package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stratrun",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of strategy API endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stratrun",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by strategy API endpoint",
		},
		[]string{"endpoint"},
	)

	APICacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stratrun",
			Subsystem: "api",
			Name:      "cache_hits_total",
			Help:      "Evaluation responses served from cache",
		},
		[]string{"endpoint"},
	)

	APIRateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stratrun",
			Subsystem: "api",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client rate limiter",
		},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(APILatency, APIErrors, APICacheHits, APIRateLimited)
	})
}
