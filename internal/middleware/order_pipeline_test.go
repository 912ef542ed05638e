package middleware

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"StratRun/internal/domain/models"
)

type stubProc struct {
	mu   sync.Mutex
	err  error
	seen []*models.OrderIntent
}

func (s *stubProc) Process(_ context.Context, o *models.OrderIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.seen = append(s.seen, o)
	return nil
}

func (s *stubProc) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *stubProc) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

type stubMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func (m *stubMetrics) RecordOrderSent(string, string)       {}
func (m *stubMetrics) RecordSignal(string, string, float64) {}
func (m *stubMetrics) RecordLatency(string, float64)        {}
func (m *stubMetrics) RecordError(kind string) {
	m.mu.Lock()
	if m.errors == nil {
		m.errors = map[string]int{}
	}
	m.errors[kind]++
	m.mu.Unlock()
}

func (m *stubMetrics) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func (s *stubProc) targets() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, len(s.seen))
	for i, o := range s.seen {
		out[i] = o.TargetPercent
	}
	return out
}

func order(sym string, w float64) *models.OrderIntent {
	return &models.OrderIntent{Strategy: "alpha", Symbol: sym, TargetPercent: w}
}

func TestPipelineValidates(t *testing.T) {
	proc := &stubProc{}
	p := NewOrderPipeline(proc, &stubMetrics{}, WithMaxWeight(2))
	bad := []*models.OrderIntent{nil, order("", 1), order("A", math.NaN()), order("A", 2.5), {Symbol: "A"}}
	for i, o := range bad {
		if err := p.Process(context.Background(), o); err == nil {
			t.Fatalf("case %d accepted", i)
		}
	}
	if err := p.Process(context.Background(), order("A", -2)); err != nil {
		t.Fatalf("valid order rejected: %v", err)
	}
}

func TestPipelineThrottlesPerSymbol(t *testing.T) {
	proc := &stubProc{}
	m := &stubMetrics{}
	p := NewOrderPipeline(proc, m, WithMinInterval(time.Hour))
	ctx := context.Background()
	_ = p.Process(ctx, order("A", 1))
	_ = p.Process(ctx, order("A", 1))
	_ = p.Process(ctx, order("B", 1))
	if proc.count() != 2 || m.count("pipeline_throttle") != 1 {
		t.Fatalf("forwarded %d throttled %d", proc.count(), m.count("pipeline_throttle"))
	}
}

func TestPipelineForwardsChangedTarget(t *testing.T) {
	proc := &stubProc{}
	m := &stubMetrics{}
	p := NewOrderPipeline(proc, m, WithMinInterval(time.Hour))
	ctx := context.Background()
	_ = p.Process(ctx, order("A", 1))
	_ = p.Process(ctx, order("A", 0))
	_ = p.Process(ctx, order("A", 0))
	if got := proc.targets(); len(got) != 2 || got[0] != 1 || got[1] != 0 {
		t.Fatalf("forwarded %v", got)
	}
	if m.count("pipeline_throttle") != 1 {
		t.Fatalf("throttled %d", m.count("pipeline_throttle"))
	}
}

func TestPipelineDropsStaleBufferedOrder(t *testing.T) {
	proc := &stubProc{err: errors.New("down")}
	m := &stubMetrics{}
	p := NewOrderPipeline(proc, m, WithMinInterval(0), WithBufferSize(4))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Process(ctx, order("A", 1)); err == nil {
		t.Fatalf("downstream error swallowed")
	}
	time.Sleep(time.Millisecond)
	proc.setErr(nil)
	if err := p.Process(ctx, order("A", 0.5)); err != nil {
		t.Fatalf("direct order: %v", err)
	}

	p.Start(ctx)
	defer p.Stop()
	deadline := time.Now().Add(2 * time.Second)
	for m.count("pipeline_stale") == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if m.count("pipeline_stale") != 1 {
		t.Fatalf("stale order not dropped")
	}
	if got := proc.targets(); len(got) != 1 || got[0] != 0.5 {
		t.Fatalf("newer target overwritten: %v", got)
	}
}

func TestPipelineBuffersAndFlushes(t *testing.T) {
	proc := &stubProc{err: errors.New("down")}
	p := NewOrderPipeline(proc, &stubMetrics{}, WithMinInterval(0), WithBufferSize(4))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Process(ctx, order("A", 1)); err == nil {
		t.Fatalf("downstream error swallowed")
	}
	if p.Buffered() != 1 {
		t.Fatalf("buffered %d", p.Buffered())
	}
	proc.setErr(nil)
	p.Start(ctx)
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for proc.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if proc.count() != 1 {
		t.Fatalf("buffer not flushed")
	}
}
