// Package schedule runs named tasks on intervals or 5-field cron
// expressions.
//
//	s := schedule.New()
//	s.Every(1).Hours().Name("lowstock.sweep").Run(sweep)
//	s.Cron("0 3 * * *").Name("export.nightly").WithoutOverlapping().Run(export)
//	s.Start(ctx)
package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/artisanmart/storefront/pkg/logger"
)

// Task is the work run on schedule. ctx is cancelled when the scheduler
// stops.
type Task func(ctx context.Context)

type entry struct {
	id        string
	interval  time.Duration
	cron      *CronSpec
	cronExpr  string
	task      Task
	noOverlap bool
	before    Task
	after     Task

	mu      sync.Mutex
	lastRun time.Time
	running bool
}

// Entry describes a registered task.
type Entry struct {
	ID        string
	Frequency string
	LastRun   time.Time
}

// Scheduler owns a set of entries and the loop that dispatches them.
type Scheduler struct {
	mu      sync.Mutex
	entries map[string]*entry
	wg      sync.WaitGroup
	seq     int
}

func New() *Scheduler {
	return &Scheduler{entries: map[string]*entry{}}
}

// Builder configures one entry before it is registered with Run.
type Builder struct {
	s   *Scheduler
	e   *entry
	err error
}

// Every starts an interval entry of n units.
func (s *Scheduler) Every(n int) *Frequency { return &Frequency{s: s, n: n} }

func (s *Scheduler) Hourly() *Builder { return s.Every(1).Hours() }

// Cron starts an entry driven by a cron expression. Parse errors surface
// from Run.
func (s *Scheduler) Cron(expr string) *Builder {
	spec, err := ParseCron(expr)
	return &Builder{s: s, e: &entry{cron: spec, cronExpr: expr}, err: err}
}

type Frequency struct {
	s *Scheduler
	n int
}

func (f *Frequency) build(unit time.Duration) *Builder {
	b := &Builder{s: f.s, e: &entry{interval: time.Duration(f.n) * unit}}
	if f.n <= 0 {
		b.err = fmt.Errorf("schedule: interval must be positive, got %d", f.n)
	}
	return b
}

func (f *Frequency) Seconds() *Builder { return f.build(time.Second) }
func (f *Frequency) Minutes() *Builder { return f.build(time.Minute) }
func (f *Frequency) Hours() *Builder   { return f.build(time.Hour) }
func (f *Frequency) Days() *Builder    { return f.build(24 * time.Hour) }

// WithoutOverlapping skips a run while the previous one is still going.
func (b *Builder) WithoutOverlapping() *Builder {
	b.e.noOverlap = true
	return b
}

func (b *Builder) Before(fn Task) *Builder {
	b.e.before = fn
	return b
}

// After runs once the task returns, even if it panicked.
func (b *Builder) After(fn Task) *Builder {
	b.e.after = fn
	return b
}

// Name sets the entry id. Registering an id again replaces the old entry.
func (b *Builder) Name(id string) *Builder {
	b.e.id = id
	return b
}

// Run registers fn.
func (b *Builder) Run(fn Task) error {
	if b.err != nil {
		return b.err
	}
	b.e.task = fn

	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if b.e.id == "" {
		b.s.seq++
		b.e.id = fmt.Sprintf("task-%d", b.s.seq)
	}
	b.s.entries[b.e.id] = b.e
	return nil
}

// Remove unregisters id. It reports whether the entry existed.
func (s *Scheduler) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	return ok
}

// List returns the registered entries sorted by id.
func (s *Scheduler) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		freq := e.cronExpr
		if freq == "" {
			freq = "every " + e.interval.String()
		}
		e.mu.Lock()
		out = append(out, Entry{ID: e.id, Frequency: freq, LastRun: e.lastRun})
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Start ticks every second until ctx is done. Wait blocks until in-flight
// tasks have returned.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		logger.Info("schedule: scheduler started")
		for {
			select {
			case <-ctx.Done():
				logger.Info("schedule: scheduler stopped")
				return
			case now := <-ticker.C:
				s.RunDue(ctx, now)
			}
		}
	}()
}

// Wait blocks until every dispatched task has finished.
func (s *Scheduler) Wait() { s.wg.Wait() }

// RunDue dispatches every entry due at now and returns their ids.
func (s *Scheduler) RunDue(ctx context.Context, now time.Time) []string {
	s.mu.Lock()
	current := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		current = append(current, e)
	}
	s.mu.Unlock()

	var ran []string
	for _, e := range current {
		if s.dispatch(ctx, e, now) {
			ran = append(ran, e.id)
		}
	}
	sort.Strings(ran)
	return ran
}

func (e *entry) due(now time.Time) bool {
	if e.cron != nil {
		// A cron entry fires once per matching minute.
		if !e.lastRun.IsZero() && e.lastRun.Truncate(time.Minute).Equal(now.Truncate(time.Minute)) {
			return false
		}
		return e.cron.Match(now)
	}
	return e.lastRun.IsZero() || now.Sub(e.lastRun) >= e.interval
}

func (s *Scheduler) dispatch(ctx context.Context, e *entry, now time.Time) bool {
	e.mu.Lock()
	if !e.due(now) {
		e.mu.Unlock()
		return false
	}
	if e.noOverlap && e.running {
		e.mu.Unlock()
		logger.Warn("schedule: skipping overlapping task", "id", e.id)
		return false
	}
	e.running = true
	e.lastRun = now
	e.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("schedule: task panicked", "id", e.id, "panic", r)
			}
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
			if e.after != nil {
				e.after(ctx)
			}
		}()

		if e.before != nil {
			e.before(ctx)
		}
		logger.Debug("schedule: running task", "id", e.id)
		e.task(ctx)
	}()
	return true
}
