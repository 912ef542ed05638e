package middleware

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"StratRun/internal/domain/models"
	domrepo "StratRun/internal/domain/repository"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, o *models.OrderIntent) error
}

// OrderPipeline sits between the strategy runners and the order router.
// It validates intents, throttles repeated targets per strategy and symbol, and buffers
// when downstream is unavailable. A buffered intent is dropped once a newer one for the
// same strategy and symbol has gone through.
type OrderPipeline struct {
	proc        Proc
	metrics     domrepo.Metrics
	maxWeight   float64
	minInterval time.Duration
	bufSize     int
	bufCh       chan pending
	stopCh      chan struct{}
	started     bool
	mu          sync.Mutex
	lastSeen    map[string]accepted  // per strategy/symbol last accepted target
	delivered   map[string]time.Time // per strategy/symbol acceptance time of the newest sent intent
}

type accepted struct {
	at     time.Time
	target float64
}

type pending struct {
	o  *models.OrderIntent
	at time.Time
}

func pipelineKey(o *models.OrderIntent) string { return o.Strategy + "|" + o.Symbol }

type PipelineOption func(*OrderPipeline)

// WithMaxWeight bounds |target percent|.
func WithMaxWeight(w float64) PipelineOption {
	return func(p *OrderPipeline) {
		if w > 0 {
			p.maxWeight = w
		}
	}
}

// WithMinInterval drops an order repeating the last target for the same strategy and
// symbol sooner than d.
func WithMinInterval(d time.Duration) PipelineOption {
	return func(p *OrderPipeline) {
		if d >= 0 {
			p.minInterval = d
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *OrderPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewOrderPipeline creates a new pipeline.
func NewOrderPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *OrderPipeline {
	p := &OrderPipeline{
		proc:        proc,
		metrics:     metrics,
		maxWeight:   4,
		minInterval: 30 * time.Second,
		bufSize:     1000,
		stopCh:      make(chan struct{}),
		lastSeen:    make(map[string]accepted),
		delivered:   make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan pending, p.bufSize)
	return p
}

// Start launches background flushing of buffered orders.
func (p *OrderPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case b := <-p.bufCh:
				if b.o == nil {
					continue
				}
				if p.stale(b) {
					p.metrics.RecordError("pipeline_stale")
					continue
				}
				if err := p.proc.Process(ctx, b.o); err != nil {
					// exponential backoff with cap
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					select {
					case <-time.After(backoff):
					case <-p.stopCh:
						return
					}
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- b:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					p.markDelivered(pipelineKey(b.o), b.at)
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *OrderPipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.started = false
	close(p.stopCh)
}

// Buffered is the number of orders waiting for downstream.
func (p *OrderPipeline) Buffered() int { return len(p.bufCh) }

// Process validates, throttles, and forwards an order downstream, buffering on errors.
func (p *OrderPipeline) Process(ctx context.Context, o *models.OrderIntent) error {
	start := time.Now()
	if err := p.validate(o); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	key := pipelineKey(o)
	if !p.allow(key, o.TargetPercent, start) {
		// throttled; record and drop silently
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.proc.Process(ctx, o); err != nil {
		p.metrics.RecordError("pipeline_process")
		select {
		case p.bufCh <- pending{o: o, at: start}:
			p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.bufCh)))
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.markDelivered(key, start)
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func (p *OrderPipeline) validate(o *models.OrderIntent) error {
	if o == nil {
		return fmt.Errorf("order nil")
	}
	if o.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if o.Strategy == "" {
		return fmt.Errorf("strategy empty")
	}
	if math.IsNaN(o.TargetPercent) || math.IsInf(o.TargetPercent, 0) {
		return fmt.Errorf("target percent not finite")
	}
	if math.Abs(o.TargetPercent) > p.maxWeight {
		return fmt.Errorf("target percent %v exceeds %v", o.TargetPercent, p.maxWeight)
	}
	return nil
}

func (p *OrderPipeline) allow(key string, target float64, now time.Time) bool {
	if p.minInterval <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last, ok := p.lastSeen[key]
	if ok && last.target == target && now.Sub(last.at) < p.minInterval {
		return false
	}
	p.lastSeen[key] = accepted{at: now, target: target}
	return true
}

func (p *OrderPipeline) markDelivered(key string, at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if at.After(p.delivered[key]) {
		p.delivered[key] = at
	}
}

// stale reports whether an intent accepted after b has already been delivered.
func (p *OrderPipeline) stale(b pending) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.delivered[pipelineKey(b.o)].After(b.at)
}
