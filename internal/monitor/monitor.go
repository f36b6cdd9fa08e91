// Package monitor keeps a view's ledger in step with the shared slot.
//
// Two kinds of Source drive the same refresh: slot change notifications,
// which only ever report writes made by other views, and a fixed interval that
// reloads unconditionally in case a notification was lost or coalesced.
package monitor

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Sorinen/service-boutique/internal/kv"
	"github.com/Sorinen/service-boutique/internal/metrics"
	"github.com/Sorinen/service-boutique/internal/sales"
)

// DefaultInterval is the polling fallback period.
const DefaultInterval = 5 * time.Second

// Trigger says what caused a refresh.
type Trigger string

const (
	TriggerStart        Trigger = "start"
	TriggerInterval     Trigger = "interval"
	TriggerNotification Trigger = "notification"
	TriggerLocal        Trigger = "local"
)

// Change is handed to every OnChange handler after a reload.
type Change struct {
	Trigger Trigger
	Sales   []sales.Sale
	At      time.Time
}

// Source calls fire whenever the ledger may have changed, until ctx is done.
type Source interface {
	Run(ctx context.Context, fire func(Trigger)) error
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, fire func(Trigger)) error

func (f SourceFunc) Run(ctx context.Context, fire func(Trigger)) error { return f(ctx, fire) }

// Interval fires every d. A non-positive d uses DefaultInterval.
func Interval(d time.Duration) Source {
	if d <= 0 {
		d = DefaultInterval
	}
	return SourceFunc(func(ctx context.Context, fire func(Trigger)) error {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				fire(TriggerInterval)
			}
		}
	})
}

// Notifications fires for every change of key reported by w.
func Notifications(w kv.Watcher, key string) Source {
	return SourceFunc(func(ctx context.Context, fire func(Trigger)) error {
		events, err := w.Watch(ctx)
		if err != nil {
			return err
		}
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				if ev.Key == key {
					fire(TriggerNotification)
				}
			}
		}
	})
}

// Monitor reloads a ledger and tells its handlers.
type Monitor struct {
	ledger  *sales.Ledger
	sources []Source
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	refresh  sync.Mutex
	mu       sync.RWMutex
	handlers []func(Change)
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithMetrics counts refreshes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(mon *Monitor) { mon.metrics = m }
}

// WithClock replaces time.Now for the Change timestamps.
func WithClock(now func() time.Time) Option {
	return func(mon *Monitor) { mon.now = now }
}

// New returns a Monitor over ledger fed by sources.
func New(ledger *sales.Ledger, sources []Source, logger *zap.Logger, opts ...Option) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Monitor{
		ledger:  ledger,
		sources: sources,
		logger:  logger.Named("monitor"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnChange registers fn to run after every refresh. Handlers run on the
// refreshing goroutine and must not block.
func (m *Monitor) OnChange(fn func(Change)) {
	m.mu.Lock()
	m.handlers = append(m.handlers, fn)
	m.mu.Unlock()
}

// Refresh reloads the ledger and notifies the handlers. Concurrent refreshes
// run one at a time.
func (m *Monitor) Refresh(ctx context.Context, trigger Trigger) Change {
	m.refresh.Lock()
	defer m.refresh.Unlock()

	snapshot := m.ledger.Load(ctx)
	change := Change{Trigger: trigger, Sales: snapshot, At: m.now()}
	m.metrics.Refreshed(string(trigger), len(snapshot))
	m.logger.Debug("ledger refreshed", zap.String("trigger", string(trigger)), zap.Int("sales", len(snapshot)))

	m.emit(change)
	return change
}

// Notify tells the handlers about a change this view made itself, without
// reloading: the in-memory ledger is already current.
func (m *Monitor) Notify() Change {
	m.refresh.Lock()
	defer m.refresh.Unlock()

	change := Change{Trigger: TriggerLocal, Sales: m.ledger.Snapshot(), At: m.now()}
	m.emit(change)
	return change
}

func (m *Monitor) emit(change Change) {
	m.mu.RLock()
	handlers := slices.Clone(m.handlers)
	m.mu.RUnlock()
	for _, fn := range handlers {
		fn(change)
	}
}

// Run refreshes once, then runs every source until ctx is cancelled or a
// source fails.
func (m *Monitor) Run(ctx context.Context) error {
	m.Refresh(ctx, TriggerStart)

	g, ctx := errgroup.WithContext(ctx)
	for _, src := range m.sources {
		src := src
		g.Go(func() error {
			return src.Run(ctx, func(t Trigger) { m.Refresh(ctx, t) })
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
