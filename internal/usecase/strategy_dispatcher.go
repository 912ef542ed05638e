package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/samber/lo"

	"StratRun/internal/domain/models"
	domrepo "StratRun/internal/domain/repository"
	"StratRun/internal/services/strategies"
	applogger "StratRun/pkg/logger"
)

// ErrUnknownEvent is returned for a trigger whose event has no hook.
var ErrUnknownEvent = errors.New("unknown trigger event")

// StrategyDispatcher routes host triggers to the registered runners.
type StrategyDispatcher struct {
	runners map[string]*StrategyRunner
	lock    domrepo.CycleLock
	lockTTL time.Duration
	l       *applogger.Logger
}

type DispatcherOption func(*StrategyDispatcher)

// WithCycleLock runs each (strategy, day, minute) cycle at most once per ttl.
func WithCycleLock(lock domrepo.CycleLock, ttl time.Duration) DispatcherOption {
	return func(d *StrategyDispatcher) {
		d.lock = lock
		if ttl > 0 {
			d.lockTTL = ttl
		}
	}
}

func NewStrategyDispatcher(runners []*StrategyRunner, opts ...DispatcherOption) *StrategyDispatcher {
	d := &StrategyDispatcher{
		runners: lo.KeyBy(runners, func(r *StrategyRunner) string { return r.Name() }),
		lockTTL: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetLogger injects a structured logger.
func (d *StrategyDispatcher) SetLogger(l *applogger.Logger) { d.l = l }

// Names lists runner names in order.
func (d *StrategyDispatcher) Names() []string {
	names := lo.Keys(d.runners)
	sort.Strings(names)
	return names
}

// Runner looks up a runner by strategy name.
func (d *StrategyDispatcher) Runner(name string) (*StrategyRunner, error) {
	r, ok := d.runners[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", strategies.ErrUnknownStrategy, name)
	}
	return r, nil
}

// Dispatch invokes the hook named by the trigger on the addressed runner, or on every
// runner when the trigger names none. Runner failures are joined.
func (d *StrategyDispatcher) Dispatch(ctx context.Context, tr models.Trigger) error {
	var targets []*StrategyRunner
	if tr.Strategy == "" {
		for _, name := range d.Names() {
			targets = append(targets, d.runners[name])
		}
	} else {
		r, err := d.Runner(tr.Strategy)
		if err != nil {
			return err
		}
		targets = []*StrategyRunner{r}
	}

	var errs []error
	for _, r := range targets {
		if err := d.fire(ctx, r, tr); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (d *StrategyDispatcher) fire(ctx context.Context, r *StrategyRunner, tr models.Trigger) error {
	switch tr.Event {
	case models.EventInitialize:
		r.Initialize(ctx)
	case models.EventBeforeTradingStart:
		r.BeforeTradingStart(ctx)
	case models.EventStopTrading:
		r.StopTrading(ctx)
	case models.EventRunStrategy:
		// a closed gate or an off-schedule minute must not burn the minute's lock
		if !r.Trading() || !r.Due(tr.Minute) {
			return nil
		}
		key, ok := d.claim(ctx, r.Name(), tr)
		if !ok {
			return nil
		}
		ran, err := r.RunStrategy(ctx, tr.Minute)
		if err != nil {
			d.release(ctx, key)
		}
		if d.l != nil && ran {
			d.l.Debug("strategy cycle",
				applogger.String("strategy", r.Name()),
				applogger.Int("minute", tr.Minute),
				applogger.Bool("ok", err == nil),
			)
		}
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, tr.Event)
	}
	return nil
}

// claim reports whether this process should run the cycle, and the lock key it took.
// Lock failures fail open.
func (d *StrategyDispatcher) claim(ctx context.Context, name string, tr models.Trigger) (string, bool) {
	if d.lock == nil {
		return "", true
	}
	key := "cycle:" + name + ":" + tr.At.UTC().Format("20060102") + ":" + strconv.Itoa(tr.Minute)
	ok, err := d.lock.TryLock(ctx, key, d.lockTTL)
	if err != nil {
		if d.l != nil {
			d.l.Warn("cycle lock unavailable", applogger.String("key", key), applogger.Error(err))
		}
		return "", true
	}
	if !ok && d.l != nil {
		d.l.Debug("cycle already claimed", applogger.String("key", key))
	}
	return key, ok
}

// release frees a failed cycle's lock so a redelivered trigger can run it again.
func (d *StrategyDispatcher) release(ctx context.Context, key string) {
	if d.lock == nil || key == "" {
		return
	}
	if err := d.lock.Delete(ctx, key); err != nil && d.l != nil {
		d.l.Warn("cycle lock release failed", applogger.String("key", key), applogger.Error(err))
	}
}

// Close stops every runner's trading for shutdown.
func (d *StrategyDispatcher) Close(ctx context.Context) {
	for _, r := range d.runners {
		r.StopTrading(ctx)
	}
}
