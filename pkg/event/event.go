// Package event is an in-process event bus. Listeners run synchronously with
// Fire, or on a worker pool with FireAsync, detached from the caller's
// context.
package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/artisanmart/storefront/pkg/logger"
	"github.com/artisanmart/storefront/pkg/metrics"
	"github.com/artisanmart/storefront/pkg/workerpool"
)

// Handler receives an event payload.
type Handler func(ctx context.Context, payload any) error

type listener struct {
	name string
	fn   Handler
}

// Bus dispatches named events to registered listeners.
type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]listener
	pool      *workerpool.Pool
	timeout   time.Duration
	log       *slog.Logger
}

// NewBus creates a bus whose async listeners run on pool. A nil pool makes
// FireAsync spawn a goroutine per listener.
func NewBus(pool *workerpool.Pool) *Bus {
	return &Bus{
		listeners: map[string][]listener{},
		pool:      pool,
		timeout:   time.Minute,
		log:       logger.L,
	}
}

// SetTimeout bounds each async listener run.
func (b *Bus) SetTimeout(d time.Duration) { b.timeout = d }

// Listen registers fn for event under a name used in logs and metrics.
func (b *Bus) Listen(event, name string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[event] = append(b.listeners[event], listener{name: name, fn: fn})
}

// Listeners returns the listener names registered for event.
func (b *Bus) Listeners(event string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.listeners[event]))
	for _, l := range b.listeners[event] {
		names = append(names, l.name)
	}
	return names
}

// Fire runs every listener in order and returns their joined errors.
func (b *Bus) Fire(ctx context.Context, event string, payload any) error {
	var errs []error
	for _, l := range b.snapshot(event) {
		if err := b.call(ctx, event, l, payload); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", l.name, err))
		}
	}
	return errors.Join(errs...)
}

// FireAsync hands each listener to the pool and returns at once. Listener
// errors and panics are logged, never returned.
func (b *Bus) FireAsync(event string, payload any) {
	for _, l := range b.snapshot(event) {
		l := l
		task := func() {
			ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
			defer cancel()
			defer func() {
				if r := recover(); r != nil {
					metrics.BackgroundTasks.WithLabelValues(event, "panic").Inc()
					b.log.Error("event listener panicked", "event", event, "listener", l.name, "panic", r)
				}
			}()
			if err := b.call(ctx, event, l, payload); err != nil {
				b.log.Warn("event listener failed", "event", event, "listener", l.name, "error", err)
			}
		}

		if b.pool == nil {
			go task()
			continue
		}
		switch err := b.pool.Submit(task); {
		case errors.Is(err, workerpool.ErrPoolFull):
			b.log.Warn("worker pool saturated, running listener on its own goroutine", "event", event, "listener", l.name)
			go task()
		case err != nil:
			b.log.Error("event dropped", "event", event, "listener", l.name, "error", err)
		}
	}
}

func (b *Bus) call(ctx context.Context, event string, l listener, payload any) error {
	err := l.fn(ctx, payload)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.BackgroundTasks.WithLabelValues(event, status).Inc()
	return err
}

func (b *Bus) snapshot(event string) []listener {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]listener(nil), b.listeners[event]...)
}
