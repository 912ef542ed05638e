package strategies

import (
	"errors"
	"sync"
	"time"

	"StratRun/internal/domain/models"
)

var (
	// ErrUnknownStrategy is returned by Build for an unregistered kind.
	ErrUnknownStrategy = errors.New("unknown strategy")
	// ErrInvalidParams wraps parameter validation failures.
	ErrInvalidParams = errors.New("invalid strategy params")
)

// base carries the identity and parameters shared by every strategy.
type base struct {
	name   string
	kind   string
	params models.StrategyParams
}

func (b *base) Name() string { return b.name }
func (b *base) Kind() string { return b.kind }

// Params returns a copy; callers may not alter the securities list.
func (b *base) Params() models.StrategyParams {
	p := b.params
	p.Securities = append([]string(nil), b.params.Securities...)
	return p
}

// signal stamps a value with the time of the newest bar in w.
func (b *base) signal(symbol string, w models.Window, value float64, meta map[string]float64) models.Signal {
	at := time.Now().UTC()
	if last, ok := w.Last(); ok && !last.Bucket.IsZero() {
		at = last.Bucket
	}
	return models.Signal{Strategy: b.name, Symbol: symbol, Value: value, At: at, Meta: meta}
}

// flagSet is a per-security integer flag shared by the runner and API readers.
type flagSet struct {
	mu    sync.RWMutex
	flags map[string]int
}

func newFlagSet() *flagSet { return &flagSet{flags: make(map[string]int)} }

func (f *flagSet) get(symbol string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.flags[symbol]
}

func (f *flagSet) set(symbol string, v int) {
	f.mu.Lock()
	f.flags[symbol] = v
	f.mu.Unlock()
}

func (f *flagSet) snapshot() map[string]int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]int, len(f.flags))
	for k, v := range f.flags {
		out[k] = v
	}
	return out
}

func (f *flagSet) reset() {
	f.mu.Lock()
	f.flags = make(map[string]int)
	f.mu.Unlock()
}
