package repository

import (
	"context"
	"time"

	"StratRun/internal/domain/models"
)

// OrderPublisher hands target-percent orders to the host's execution layer.
type OrderPublisher interface {
	Publish(ctx context.Context, o *models.OrderIntent) error
	PublishBatch(ctx context.Context, orders []*models.OrderIntent) error
	Close() error
}

// OrderStore records order intents for hosts that poll a table instead of a topic.
type OrderStore interface {
	StoreOrder(ctx context.Context, o *models.OrderIntent) error
	StoreOrders(ctx context.Context, orders []*models.OrderIntent) error
	Close() error
}

// SignalStore keeps an audit trail of generated signals.
type SignalStore interface {
	StoreSignals(ctx context.Context, signals []models.Signal) error
	Health(ctx context.Context) error
	Close() error
}

type Metrics interface {
	RecordOrderSent(backend, strategy string)
	RecordSignal(strategy, symbol string, value float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

// CycleLock deduplicates run triggers delivered more than once or to several replicas.
type CycleLock interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}
