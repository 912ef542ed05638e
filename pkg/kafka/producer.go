package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// Message is one keyed record for PublishBatch. Value follows the same
// encoding rules as Publish.
type Message struct {
	Key   []byte
	Value interface{}
}

// Producer writes JSON records. One Producer is shared by the order
// publisher and the log collector.
type Producer struct {
	w     *kafka.Writer
	codec string
}

func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := ProducerConfig{
		RequiredAcks: -1,
		Compression:  "gzip",
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		BatchSize:    100,
		BatchBytes:   1 << 20,
		BatchTimeout: time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka producer: brokers are required")
	}

	var balancer kafka.Balancer = &kafka.LeastBytes{}
	if cfg.HashByKey {
		balancer = &kafka.Hash{}
	}
	codec, comp := compression(cfg.Compression)
	producerMetricsOnce.Do(initProducerMetrics)
	return &Producer{
		codec: codec,
		w: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     balancer,
			RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
			Compression:  comp,
			MaxAttempts:  cfg.MaxAttempts,
			WriteTimeout: cfg.WriteTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			BatchSize:    cfg.BatchSize,
			BatchBytes:   int64(cfg.BatchBytes),
			BatchTimeout: cfg.BatchTimeout,
			Async:        cfg.Async,
		},
	}, nil
}

// Publish writes one record to topic.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	return p.PublishBatch(ctx, topic, []Message{{Key: key, Value: value}})
}

// PublishMessage writes an unkeyed record; it lets the producer back the log collector.
func (p *Producer) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.Publish(ctx, topic, nil, payload)
}

// PublishBatch encodes every message first and writes them in one call, so
// an encoding error sends nothing.
func (p *Producer) PublishBatch(ctx context.Context, topic string, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}
	now := time.Now()
	records := make([]kafka.Message, len(messages))
	var size int
	for i, m := range messages {
		v, err := encodeValue(m.Value)
		if err != nil {
			return fmt.Errorf("kafka publish %s: %w", topic, err)
		}
		records[i] = kafka.Message{Topic: topic, Key: m.Key, Value: v, Time: now}
		size += len(v)
	}

	err := p.w.WriteMessages(ctx, records...)
	result := "ok"
	if err != nil {
		result = "error"
	}
	published.WithLabelValues(topic, result).Add(float64(len(records)))
	publishedBytes.WithLabelValues(topic, p.codec).Add(float64(size))
	publishSeconds.WithLabelValues(topic).Observe(time.Since(now).Seconds())
	return err
}

func (p *Producer) Close() error {
	if p.w == nil {
		return nil
	}
	return p.w.Close()
}

// encodeValue passes bytes and strings through and JSON-encodes everything else.
func encodeValue(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case json.RawMessage:
		return v, nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", value, err)
	}
	return b, nil
}

// compression maps a codec name to kafka-go's; unknown names fall back to gzip.
func compression(name string) (string, kafka.Compression) {
	switch strings.ToLower(name) {
	case "none", "":
		return "none", 0
	case "snappy":
		return "snappy", kafka.Snappy
	case "lz4":
		return "lz4", kafka.Lz4
	case "zstd":
		return "zstd", kafka.Zstd
	default:
		return "gzip", kafka.Gzip
	}
}

var (
	producerMetricsOnce sync.Once
	published           *prometheus.CounterVec
	publishedBytes      *prometheus.CounterVec
	publishSeconds      *prometheus.HistogramVec
)

func initProducerMetrics() {
	published = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stratrun_kafka_producer_messages_total",
		Help: "Records written, by result",
	}, []string{"topic", "result"})
	publishedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stratrun_kafka_producer_bytes_total",
		Help: "Encoded payload bytes written",
	}, []string{"topic", "compression"})
	publishSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "stratrun_kafka_producer_publish_seconds",
		Help: "Time spent in WriteMessages",
	}, []string{"topic"})
}
