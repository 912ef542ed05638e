package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"StratRun/internal/domain/models"
	domrepo "StratRun/internal/domain/repository"
	pkgkafka "StratRun/pkg/kafka"
)

const (
	OrdersTable  = "order_intents"
	SignalsTable = "strategy_signals"
	insertChunk  = 2000
)

// ClickHouseOrderStore writes order intents into a table the host polls.
type ClickHouseOrderStore struct {
	db    *sql.DB
	table string
}

func NewClickHouseOrderStore(db *sql.DB, database string) *ClickHouseOrderStore {
	return &ClickHouseOrderStore{db: db, table: database + "." + OrdersTable}
}

func (s *ClickHouseOrderStore) StoreOrder(ctx context.Context, o *models.OrderIntent) error {
	return s.StoreOrders(ctx, []*models.OrderIntent{o})
}

func (s *ClickHouseOrderStore) StoreOrders(ctx context.Context, orders []*models.OrderIntent) error {
	for start := 0; start < len(orders); start += insertChunk {
		end := min(start+insertChunk, len(orders))
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, o := range orders[start:end] {
			if o == nil || o.Symbol == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, o.ID, o.At, o.Strategy, o.Symbol, o.TargetPercent, o.Signal, o.Reason)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (id, at, strategy, symbol, target_percent, signal, reason) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert orders: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseOrderStore) Close() error {
	return nil // Managed by pkg
}

// ClickHouseSignalStore keeps the signal audit trail.
type ClickHouseSignalStore struct {
	db    *sql.DB
	table string
}

func NewClickHouseSignalStore(db *sql.DB, database string) *ClickHouseSignalStore {
	return &ClickHouseSignalStore{db: db, table: database + "." + SignalsTable}
}

func (s *ClickHouseSignalStore) StoreSignals(ctx context.Context, signals []models.Signal) error {
	for start := 0; start < len(signals); start += insertChunk {
		end := min(start+insertChunk, len(signals))
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*5)
		for _, sig := range signals[start:end] {
			meta := sig.Meta
			if meta == nil {
				meta = map[string]float64{}
			}
			values = append(values, "(?, ?, ?, ?, ?)")
			args = append(args, sig.At, sig.Strategy, sig.Symbol, sig.Value, meta)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (at, strategy, symbol, value, meta) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert signals: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseSignalStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseSignalStore) Close() error {
	return nil // Managed by pkg
}

// KafkaOrderPublisher publishes order intents as JSON keyed by symbol.
type KafkaOrderPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaOrderPublisher(producer *pkgkafka.Producer, topic string) *KafkaOrderPublisher {
	return &KafkaOrderPublisher{producer: producer, topic: topic}
}

func (p *KafkaOrderPublisher) Publish(ctx context.Context, o *models.OrderIntent) error {
	return p.producer.Publish(ctx, p.topic, []byte(o.Symbol), o)
}

func (p *KafkaOrderPublisher) PublishBatch(ctx context.Context, orders []*models.OrderIntent) error {
	if len(orders) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(orders))
	for i, o := range orders {
		msgs[i] = pkgkafka.Message{Key: []byte(o.Symbol), Value: o}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// Close is a no-op: the producer is shared with the log collector and closed by the app.
func (p *KafkaOrderPublisher) Close() error {
	return nil
}

var (
	_ domrepo.OrderStore     = (*ClickHouseOrderStore)(nil)
	_ domrepo.SignalStore    = (*ClickHouseSignalStore)(nil)
	_ domrepo.OrderPublisher = (*KafkaOrderPublisher)(nil)
)
