package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	applogger "StratRun/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// Consumer reads registered topics and fans messages out to a worker pool.
// Messages of one partition are handled one at a time, in order.
type Consumer struct {
	cfg      ConsumerConfig
	handlers map[string]MessageHandler
	readers  map[string]*kafka.Reader
	dlq      *kafka.Writer
	hook     Hook
	logger   *applogger.Logger

	queue    chan kafka.Message
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	partMu sync.Mutex
	parts  map[string]*sync.Mutex
}

// NewConsumer creates a consumer; handlers are registered before Start.
func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := ConsumerConfig{
		GroupID:     "stratrun",
		Workers:     1,
		BufferSize:  16,
		RetryMax:    3,
		BackoffMin:  50 * time.Millisecond,
		BackoffMax:  2 * time.Second,
		MinBytes:    1,
		MaxBytes:    1 << 20,
		ReadTimeout: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka consumer: brokers are required")
	}

	c := &Consumer{
		cfg:      cfg,
		handlers: make(map[string]MessageHandler),
		readers:  make(map[string]*kafka.Reader),
		hook:     NoopHook{},
		queue:    make(chan kafka.Message, cfg.BufferSize),
		stop:     make(chan struct{}),
		parts:    make(map[string]*sync.Mutex),
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Topic: cfg.DLQTopic, Balancer: &kafka.LeastBytes{}}
	}
	consumerMetricsOnce.Do(initConsumerMetrics)
	return c, nil
}

func (c *Consumer) SetLogger(l *applogger.Logger) { c.logger = l }

// WithConsumerHook replaces the delivery hook.
func (c *Consumer) WithConsumerHook(h Hook) {
	if h != nil {
		c.hook = h
	}
}

// RegisterHandler binds handler to its topic. The first registration wins.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	if _, ok := c.handlers[topic]; ok {
		c.warn("kafka handler already registered", applogger.String("topic", topic))
		return
	}
	c.handlers[topic] = handler
}

// Start opens a reader per topic and launches the workers.
func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return fmt.Errorf("kafka consumer: no handlers registered")
	}
	for i := 0; i < c.cfg.Workers; i++ {
		c.wg.Add(1)
		go c.work()
	}
	for topic := range c.handlers {
		r := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.cfg.Brokers,
			Topic:    topic,
			GroupID:  c.cfg.GroupID,
			MinBytes: c.cfg.MinBytes,
			MaxBytes: c.cfg.MaxBytes,
		})
		c.readers[topic] = r
		c.wg.Add(1)
		go c.read(topic, r)
	}
	c.info("kafka consumer started", applogger.Int("workers", c.cfg.Workers), applogger.Int("topics", len(c.readers)))
	return nil
}

// Stop signals readers and workers, waits for them up to ctx, then closes
// the readers and the DLQ writer.
func (c *Consumer) Stop(ctx context.Context) error {
	var err error
	c.stopOnce.Do(func() {
		close(c.stop)
		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("kafka consumer stop: %w", ctx.Err())
		}
		for topic, r := range c.readers {
			if cerr := r.Close(); cerr != nil {
				c.warn("kafka reader close", applogger.String("topic", topic), applogger.Error(cerr))
			}
		}
		if c.dlq != nil {
			_ = c.dlq.Close()
		}
	})
	return err
}

func (c *Consumer) read(topic string, r *kafka.Reader) {
	defer c.wg.Done()
	for {
		select {
		case <-c.stop:
			return
		default:
		}
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ReadTimeout)
		km, err := r.FetchMessage(ctx)
		cancel()
		if err != nil {
			if !errors.Is(err, context.DeadlineExceeded) {
				c.warn("kafka fetch", applogger.String("topic", topic), applogger.Error(err))
			}
			continue
		}
		// Blocking send: a full queue slows fetching instead of dropping.
		select {
		case c.queue <- km:
			queueDepth.WithLabelValues(topic).Set(float64(len(c.queue)))
		case <-c.stop:
			return
		}
	}
}

func (c *Consumer) work() {
	defer c.wg.Done()
	for {
		select {
		case <-c.stop:
			return
		case km := <-c.queue:
			c.handle(km)
		}
	}
}

func (c *Consumer) handle(km kafka.Message) {
	h, ok := c.handlers[km.Topic]
	if !ok {
		return
	}
	mu := c.partition(km.Topic, km.Partition)
	mu.Lock()
	defer mu.Unlock()

	res := c.deliver(context.Background(), h, km)
	handleSeconds.WithLabelValues(km.Topic).Observe(res.Took.Seconds())

	if res.Err != nil {
		handleFailures.WithLabelValues(km.Topic).Inc()
		if c.dlq == nil {
			// Leave the offset uncommitted so the group redelivers after restart.
			return
		}
		if err := c.toDLQ(km, res.Err); err != nil {
			c.warn("kafka dlq write", applogger.String("topic", km.Topic), applogger.Error(err))
			return
		}
	}
	if r := c.readers[km.Topic]; r != nil {
		c.commit(r, km)
	}
}

// deliver runs the hook and handler, retrying handler errors with backoff.
func (c *Consumer) deliver(ctx context.Context, h MessageHandler, km kafka.Message) (res Result) {
	start := time.Now()
	hctx := ctx
	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("handler panic: %v", p)
		}
		res.Took = time.Since(start)
		c.hook.After(hctx, km, res)
	}()

	var err error
	if hctx, err = c.hook.Before(ctx, km); err != nil {
		res.Err = err
		return res
	}
	for {
		res.Attempts++
		res.Err = h.Handle(hctx, km.Value)
		if res.Err == nil || res.Attempts > c.cfg.RetryMax {
			return res
		}
		select {
		case <-time.After(backoff(c.cfg.BackoffMin, c.cfg.BackoffMax, res.Attempts)):
		case <-c.stop:
			return res
		}
	}
}

func (c *Consumer) toDLQ(km kafka.Message, cause error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.dlq.WriteMessages(ctx, kafka.Message{
		Key:   km.Key,
		Value: km.Value,
		Headers: append(append([]kafka.Header(nil), km.Headers...),
			kafka.Header{Key: "source_topic", Value: []byte(km.Topic)},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
		),
	})
}

func (c *Consumer) commit(r *kafka.Reader, km kafka.Message) {
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = r.CommitMessages(ctx, km)
		cancel()
		if err == nil {
			return
		}
		time.Sleep(backoff(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	c.warn("kafka commit", applogger.String("topic", km.Topic), applogger.Int64("offset", km.Offset), applogger.Error(err))
}

func (c *Consumer) partition(topic string, p int) *sync.Mutex {
	key := fmt.Sprintf("%s/%d", topic, p)
	c.partMu.Lock()
	defer c.partMu.Unlock()
	mu, ok := c.parts[key]
	if !ok {
		mu = &sync.Mutex{}
		c.parts[key] = mu
	}
	return mu
}

func (c *Consumer) info(msg string, fields ...applogger.Field) {
	if c.logger != nil {
		c.logger.Info(msg, fields...)
	}
}

func (c *Consumer) warn(msg string, fields ...applogger.Field) {
	if c.logger != nil {
		c.logger.Warn(msg, fields...)
	}
}

// backoff doubles from min per attempt, capped at max, minus up to 50% jitter.
func backoff(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	d := max
	if attempt < 32 {
		if exp := min << uint(attempt-1); exp > 0 && exp < max {
			d = exp
		}
	}
	if half := int64(d) / 2; half > 0 {
		d -= time.Duration(rand.Int63n(half))
	}
	return d
}

var (
	consumerMetricsOnce sync.Once
	queueDepth          *prometheus.GaugeVec
	handleSeconds       *prometheus.HistogramVec
	handleFailures      *prometheus.CounterVec
)

func initConsumerMetrics() {
	queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "stratrun_kafka_consumer_queue_depth",
		Help: "Fetched messages waiting for a worker",
	}, []string{"topic"})
	handleSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "stratrun_kafka_consumer_handle_seconds",
		Help: "Time to handle one message, retries included",
	}, []string{"topic"})
	handleFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stratrun_kafka_consumer_failures_total",
		Help: "Messages that failed after all retries",
	}, []string{"topic"})
}
