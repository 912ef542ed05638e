package usecase

import (
	"context"
	"fmt"
	"time"

	"StratRun/internal/domain/models"
	drepo "StratRun/internal/domain/repository"
)

const (
	BackendKafka      = "kafka"
	BackendClickHouse = "clickhouse"
)

// OrderRouter routes order intents to the configured backend.
type OrderRouter struct {
	pub     drepo.OrderPublisher
	store   drepo.OrderStore
	metrics drepo.Metrics
	backend string
}

// NewOrderRouter creates a new OrderRouter. Only the backend in use must be non-nil.
func NewOrderRouter(pub drepo.OrderPublisher, store drepo.OrderStore, metrics drepo.Metrics, backend string) *OrderRouter {
	return &OrderRouter{pub: pub, store: store, metrics: metrics, backend: backend}
}

func (r *OrderRouter) Backend() string { return r.backend }

// Process routes a single order intent.
func (r *OrderRouter) Process(ctx context.Context, o *models.OrderIntent) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}
	start := time.Now()
	var err error

	switch {
	case r.backend == BackendKafka && r.pub != nil:
		err = r.pub.Publish(ctx, o)
	case r.backend == BackendClickHouse && r.store != nil:
		err = r.store.StoreOrder(ctx, o)
	default:
		err = fmt.Errorf("unknown backend: %s", r.backend)
	}

	if err != nil {
		r.metrics.RecordError("order_route")
		return fmt.Errorf("route order: %w", err)
	}

	r.metrics.RecordOrderSent(r.backend, o.Strategy)
	r.metrics.RecordLatency("order_route", time.Since(start).Seconds())
	return nil
}

// ProcessBatch routes several intents in one call.
func (r *OrderRouter) ProcessBatch(ctx context.Context, orders []*models.OrderIntent) error {
	if len(orders) == 0 {
		return nil
	}
	start := time.Now()
	var err error

	switch {
	case r.backend == BackendKafka && r.pub != nil:
		err = r.pub.PublishBatch(ctx, orders)
	case r.backend == BackendClickHouse && r.store != nil:
		err = r.store.StoreOrders(ctx, orders)
	default:
		err = fmt.Errorf("unknown backend: %s", r.backend)
	}

	if err != nil {
		r.metrics.RecordError("order_route_batch")
		return fmt.Errorf("route order batch: %w", err)
	}

	for _, o := range orders {
		r.metrics.RecordOrderSent(r.backend, o.Strategy)
	}
	r.metrics.RecordLatency("order_route_batch", time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (r *OrderRouter) Close() {
	if r.pub != nil {
		_ = r.pub.Close()
	}
	if r.store != nil {
		_ = r.store.Close()
	}
}
