package di

import (
	"context"
	"fmt"
	"time"

	"StratRun/internal/domain/models"
	"StratRun/internal/domain/repository"
	"StratRun/internal/handler/api"
	mid "StratRun/internal/middleware"
	internalrepo "StratRun/internal/repository"
	"StratRun/internal/services/hostapi"
	"StratRun/internal/services/strategies"
	"StratRun/internal/usecase"
	pkgcache "StratRun/pkg/cache"
	pkgch "StratRun/pkg/clickhouse"
	"StratRun/pkg/config"
	xhttp "StratRun/pkg/http"
	pkgkafka "StratRun/pkg/kafka"
	applogger "StratRun/pkg/logger"
	"StratRun/pkg/metrics"
	"StratRun/pkg/queue"
	"StratRun/pkg/server"
)

// ProvideLogger creates the structured application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: time.RFC3339,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With("env", cfg.Environment), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the schema exists.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.SchemaStatements(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when no brokers are configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates the trigger consumer, or nil when no brokers are configured.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.SetLogger(l)
	consumer.WithConsumerHook(pkgkafka.NewLogHook(l, time.Second))
	return consumer, nil
}

// ProvideRedisCache connects to Redis, or returns nil when Redis is disabled.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPool(cfg.Redis.PoolSize, 2, 5*time.Second),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCache layers memory over Redis when available; otherwise memory only.
func ProvideCache(rc *pkgcache.RedisCache) pkgcache.Service {
	if rc == nil {
		return pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(5000), pkgcache.WithMemoryCleanup(30*time.Second))
	}
	return pkgcache.NewLayeredCache(rc, pkgcache.WithL1(1000, 5*time.Second))
}

// ProvideFeatureStore creates the ClickHouse candle reader.
func ProvideFeatureStore(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.FeatureStore {
	store := internalrepo.NewCHFeatureStore(chClient, cfg.ClickHouse.Database)
	store.SetLogger(l)
	return store
}

// ProvideHistory selects where bar history comes from.
func ProvideHistory(cfg *config.Config, store repository.FeatureStore) repository.HistoryProvider {
	if cfg.History.Source == "http" {
		return hostapi.NewHistoryClient(cfg.History.URL, cfg.History.Timeout, cfg.History.Attempts)
	}
	return internalrepo.NewStoreHistory(store)
}

// ProvideOrderPublisher creates the Kafka order publisher, or nil without a producer.
func ProvideOrderPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.OrderPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaOrderPublisher(producer, cfg.Orders.Topic)
}

// ProvideOrderStore creates the ClickHouse order store.
func ProvideOrderStore(chClient *pkgch.Client, cfg *config.Config) repository.OrderStore {
	return internalrepo.NewClickHouseOrderStore(chClient.DB(), cfg.ClickHouse.Database)
}

// ProvideSignalStore creates the signal audit store, or nil when auditing is off.
func ProvideSignalStore(chClient *pkgch.Client, cfg *config.Config) repository.SignalStore {
	if !cfg.Orders.AuditSignals {
		return nil
	}
	return internalrepo.NewClickHouseSignalStore(chClient.DB(), cfg.ClickHouse.Database)
}

// ProvideOrderRouter routes intents to the configured backend.
func ProvideOrderRouter(pub repository.OrderPublisher, store repository.OrderStore, m repository.Metrics, cfg *config.Config) *usecase.OrderRouter {
	return usecase.NewOrderRouter(pub, store, m, cfg.Orders.Backend)
}

// ProvideOrderPipeline builds the middleware between runners and the router.
func ProvideOrderPipeline(router *usecase.OrderRouter, m repository.Metrics, cfg *config.Config) *mid.OrderPipeline {
	return mid.NewOrderPipeline(router, m,
		mid.WithMaxWeight(cfg.Orders.MaxWeight),
		mid.WithMinInterval(cfg.Orders.MinInterval),
		mid.WithBufferSize(cfg.Orders.BufferSize),
	)
}

// ProvideRunners builds one runner per enabled strategy entry.
func ProvideRunners(
	cfg *config.Config,
	history repository.HistoryProvider,
	pipeline *mid.OrderPipeline,
	m repository.Metrics,
	signals repository.SignalStore,
	l *applogger.Logger,
) ([]*usecase.StrategyRunner, error) {
	enabled := cfg.Enabled()
	runners := make([]*usecase.StrategyRunner, 0, len(enabled))
	for _, sc := range enabled {
		p, err := strategyParams(sc)
		if err != nil {
			return nil, err
		}
		s, err := strategies.BuildExact(sc.Kind, sc.Name, p)
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", sc.Name, err)
		}
		var opts []usecase.RunnerOption
		if signals != nil {
			opts = append(opts, usecase.WithSignalStore(signals))
		}
		r := usecase.NewStrategyRunner(s, history, pipeline, m, opts...)
		r.SetLogger(l.With("strategy", s.Name()))
		runners = append(runners, r)
	}
	return runners, nil
}

// strategyParams overlays a config entry on the kind's defaults.
func strategyParams(sc config.Strategy) (models.StrategyParams, error) {
	p, err := strategies.DefaultParams(sc.Kind)
	if err != nil {
		return p, fmt.Errorf("strategy %s: %w", sc.Name, err)
	}
	if sc.Lookback > 0 {
		p.Lookback = sc.Lookback
	}
	if sc.Frequency != "" {
		p.Frequency = sc.Frequency
	}
	if sc.BuyThreshold != nil {
		p.BuyThreshold = *sc.BuyThreshold
	}
	if sc.SellThreshold != nil {
		p.SellThreshold = *sc.SellThreshold
	}
	if sc.TradeFreq > 0 {
		p.TradeFreq = sc.TradeFreq
	}
	if sc.Leverage > 0 {
		p.Leverage = sc.Leverage
	}
	if len(sc.Securities) > 0 {
		p.Securities = sc.Securities
	}
	if sc.RunAtMinute > 0 {
		p.RunAtMinute = sc.RunAtMinute
	}
	if sc.Tolerance > 0 {
		p.Tolerance = sc.Tolerance
	}
	return p, nil
}

// ProvideDispatcher fans host callbacks out to the runners, claiming each cycle in the cache.
func ProvideDispatcher(runners []*usecase.StrategyRunner, cache pkgcache.Service, l *applogger.Logger) *usecase.StrategyDispatcher {
	d := usecase.NewStrategyDispatcher(runners, usecase.WithCycleLock(cache, 2*time.Minute))
	d.SetLogger(l)
	return d
}

// ProvideEvaluateUseCase creates the on-demand evaluation use case.
func ProvideEvaluateUseCase(d *usecase.StrategyDispatcher, history repository.HistoryProvider, cfg *config.Config) *usecase.StrategiesEvaluateUseCase {
	uc := usecase.NewStrategiesEvaluateUseCase(d, history)
	uc.SetTimeout(cfg.API.EvaluateTimeout)
	return uc
}

// ProvideCandlesUseCase creates the candle lookup use case.
func ProvideCandlesUseCase(store repository.FeatureStore) *usecase.CandlesUseCase {
	return usecase.NewCandlesUseCase(store)
}

// ProvideKafkaTriggersHandler handles host callbacks arriving on Kafka.
func ProvideKafkaTriggersHandler(cfg *config.Config, d *usecase.StrategyDispatcher, m repository.Metrics) *usecase.KafkaTriggersHandler {
	return usecase.NewKafkaTriggersHandler(cfg.Kafka.TriggersTopic, d, m)
}

// ProvideQueue creates the Redis trigger queue, or nil when disabled.
func ProvideQueue(cfg *config.Config, l *applogger.Logger, rc *pkgcache.RedisCache, d *usecase.StrategyDispatcher) *queue.RedisQueue {
	if !cfg.Queue.Enabled || rc == nil {
		return nil
	}
	q := queue.NewRedisQueue(l, queue.Config{
		Workers:    cfg.Queue.Workers,
		MaxLength:  cfg.Queue.QueueSize,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, rc.Client(), queue.WithKeyPrefix(cfg.Redis.Prefix+":queue"))
	q.RegisterJob(usecase.NewStrategyTriggerJob(d))
	return q
}

// ProvideHTTPHandler assembles the strategy API.
func ProvideHTTPHandler(
	cfg *config.Config,
	l *applogger.Logger,
	d *usecase.StrategyDispatcher,
	eval *usecase.StrategiesEvaluateUseCase,
	candles *usecase.CandlesUseCase,
	cache pkgcache.Service,
	q *queue.RedisQueue,
	chClient *pkgch.Client,
	rc *pkgcache.RedisCache,
) xhttp.Handler {
	opts := []api.HandlerOption{
		api.WithCache(cache, cfg.API.CacheTTL),
		api.WithRateLimit(cfg.API.RateCapacity, cfg.API.RateRefill),
		api.WithCandles(candles),
		api.WithHealthCheck("clickhouse", chClient.Health),
	}
	if q != nil {
		opts = append(opts, api.WithQueue(q))
	}
	if rc != nil {
		opts = append(opts, api.WithHealthCheck("redis", func(ctx context.Context) error {
			return rc.Client().Ping(ctx).Err()
		}))
	}
	return api.NewStrategiesEchoHandler(l, d, eval, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	d *usecase.StrategyDispatcher,
	pipeline *mid.OrderPipeline,
	router *usecase.OrderRouter,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaTriggersHandler,
	q *queue.RedisQueue,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	rc *pkgcache.RedisCache,
	signals repository.SignalStore,
	httpHandler xhttp.Handler,
) *server.App {
	if producer != nil && cfg.Log.Collector.Enabled {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Log.Collector.Interval,
			CountThreshold: cfg.Log.Collector.Threshold,
			Topic:          cfg.Log.Collector.Topic,
			Publisher:      producer,
		})
	}

	app := server.New(cfg, l, d, pipeline, router, consumer, kh, q, chClient, httpHandler)
	if signals != nil {
		app.AddCloser("signal-store", signals)
	}
	if producer != nil {
		app.AddCloser("kafka-producer", producer)
	}
	if rc != nil {
		app.AddCloser("redis", rc)
	}
	return app
}
