package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"StratRun/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const deadLetterCap = 1000

// promote moves due retries back onto the pending list atomically, so two
// instances never requeue the same message.
var promote = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 100)
for _, m in ipairs(due) do
  redis.call('ZREM', KEYS[1], m)
  redis.call('LPUSH', KEYS[2], m)
end
return #due
`)

// RedisQueue is a list-backed job queue. Failed messages wait in a sorted set
// until their retry time and land in a capped dead-letter list after
// RetryLimit attempts.
type RedisQueue struct {
	logger *logger.Logger
	cfg    Config
	client *redis.Client
	prefix string

	mu      sync.RWMutex
	jobs    map[string]Job
	running bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type RedisQueueOption func(*RedisQueue)

// WithKeyPrefix sets the Redis key namespace.
func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) { r.prefix = prefix }
}

func NewRedisQueue(l *logger.Logger, cfg Config, client *redis.Client, opts ...RedisQueueOption) *RedisQueue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 10 * time.Second
	}
	r := &RedisQueue{
		logger: l,
		cfg:    cfg,
		client: client,
		prefix: "stratrun:queue",
		jobs:   make(map[string]Job),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterJob binds job to its Type. Register before Start.
func (r *RedisQueue) RegisterJob(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.Type()]; ok {
		r.logger.Warn("job already registered", logger.String("job", job.Name()))
		return
	}
	r.jobs[job.Type()] = job
}

func (r *RedisQueue) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("queue already running")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.running = true
	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go r.work()
	}
	r.wg.Add(1)
	go r.promoteLoop()

	r.logger.Info("redis queue started", logger.Int("workers", r.cfg.Workers), logger.String("prefix", r.prefix))
	return nil
}

// Stop cancels in-flight jobs and waits for workers up to ctx.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("queue stop: %w", ctx.Err())
	}
}

// PublishMessage enqueues payload for the job registered under msgType.
func (r *RedisQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	r.mu.RLock()
	running := r.running
	_, known := r.jobs[msgType]
	r.mu.RUnlock()
	if !running {
		return ErrNotRunning
	}
	if !known {
		return fmt.Errorf("%w: %s", ErrUnknownType, msgType)
	}

	msg, err := NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("queue: marshal: %w", err)
	}
	if r.cfg.MaxLength > 0 {
		n, err := r.client.LLen(ctx, r.key("pending")).Result()
		if err != nil {
			return fmt.Errorf("queue: llen: %w", err)
		}
		if n >= int64(r.cfg.MaxLength) {
			return ErrQueueFull
		}
	}
	if err := r.client.LPush(ctx, r.key("pending"), data).Err(); err != nil {
		return fmt.Errorf("queue: lpush: %w", err)
	}
	return nil
}

func (r *RedisQueue) work() {
	defer r.wg.Done()
	for r.ctx.Err() == nil {
		res, err := r.client.BRPop(r.ctx, time.Second, r.key("pending")).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && r.ctx.Err() == nil {
				r.logger.Error("queue brpop", logger.Error(err))
				sleep(r.ctx, time.Second)
			}
			continue
		}
		var msg Message
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			r.logger.Error("queue message undecodable", logger.Error(err))
			continue
		}
		r.process(msg)
	}
}

func (r *RedisQueue) process(msg Message) {
	r.mu.RLock()
	job, ok := r.jobs[msg.Type]
	r.mu.RUnlock()

	var err error
	if !ok {
		err = fmt.Errorf("%w: %s", ErrUnknownType, msg.Type)
		msg.Attempts = r.cfg.RetryLimit
	} else {
		err = job.Handle(r.ctx, msg.Payload)
	}

	switch next(msg, err, r.cfg.RetryLimit) {
	case stepDone:
		return
	case stepRetry:
		if !errors.Is(err, context.Canceled) {
			msg.Attempts++
		}
		msg.LastError = err.Error()
		r.logger.Warn("queue job failed, retrying",
			logger.String("id", msg.ID), logger.String("type", msg.Type),
			logger.Int("attempt", msg.Attempts), logger.Error(err))
		r.schedule(msg, time.Now().Add(r.cfg.RetryDelay))
	case stepBury:
		msg.LastError = err.Error()
		r.logger.Error("queue job dead-lettered",
			logger.String("id", msg.ID), logger.String("type", msg.Type), logger.Error(err))
		r.bury(msg)
	}
}

// schedule and bury use a fresh context so they still run during shutdown.
func (r *RedisQueue) schedule(msg Message, at time.Time) {
	data, _ := json.Marshal(msg)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.client.ZAdd(ctx, r.key("retry"), redis.Z{Score: float64(at.UnixMilli()), Member: data}).Err(); err != nil {
		r.logger.Error("queue schedule retry", logger.Error(err))
	}
}

func (r *RedisQueue) bury(msg Message) {
	data, _ := json.Marshal(msg)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.key("dead"), data)
	pipe.LTrim(ctx, r.key("dead"), 0, deadLetterCap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("queue dead-letter", logger.Error(err))
	}
}

func (r *RedisQueue) promoteLoop() {
	defer r.wg.Done()
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-t.C:
			now := strconv.FormatInt(time.Now().UnixMilli(), 10)
			err := promote.Run(r.ctx, r.client, []string{r.key("retry"), r.key("pending")}, now).Err()
			if err != nil && r.ctx.Err() == nil {
				r.logger.Error("queue promote retries", logger.Error(err))
			}
		}
	}
}

func (r *RedisQueue) key(name string) string { return r.prefix + ":" + name }

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

var _ Publisher = (*RedisQueue)(nil)
