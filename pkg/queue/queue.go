// Package queue runs background jobs through a pluggable driver.
//
//	m := queue.NewManager(queue.NewMemoryDriver(), queue.WithFailedJobStore(db))
//	m.Register(jobs.SendMailJob{}.JobName(), func() queue.Job { return &jobs.SendMailJob{Mailer: mailer} })
//	m.Start(ctx, 4)
//
//	m.Dispatch(ctx, jobs.SendMailJob{To: "buyer@example.com"})
//	m.DispatchAfter(ctx, jobs.RetryExportJob{RunID: 7}, 2*time.Second)
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/artisanmart/storefront/pkg/logger"
	"github.com/artisanmart/storefront/pkg/metrics"
)

// Job is a unit of background work. Its exported fields are the payload.
type Job interface {
	Handle(ctx context.Context) error
}

// Named lets a job choose the name it is registered under. Jobs without it
// are registered under their Go type name.
type Named interface {
	JobName() string
}

// Driver stores serialized jobs.
type Driver interface {
	Push(ctx context.Context, payload []byte) error
	// Pop blocks until a payload is ready. A nil payload with a nil error
	// means nothing arrived before the driver's poll timeout.
	Pop(ctx context.Context) ([]byte, error)
}

// DelayedDriver is a Driver that can hold jobs until they are due.
type DelayedDriver interface {
	Driver
	PushDelayed(ctx context.Context, payload []byte, delay time.Duration) error
}

var ErrUnknownJob = errors.New("queue: unknown job type")

// FailedJob is a job that exhausted its attempts.
type FailedJob struct {
	Type     string
	Payload  string
	Err      string
	Attempts int
	FailedAt time.Time
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxRetry sets how many attempts a job gets before it is recorded as
// failed.
func WithMaxRetry(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxRetry = n
		}
	}
}

// WithBackoff sets the pause between in-worker attempts.
func WithBackoff(fn func(attempt int) time.Duration) Option {
	return func(m *Manager) { m.backoff = fn }
}

// WithFailedJobStore persists exhausted jobs to the failed_jobs table.
func WithFailedJobStore(db *gorm.DB) Option {
	return func(m *Manager) { m.db = db }
}

// Manager owns the driver, the job registry and the workers.
type Manager struct {
	mu       sync.RWMutex
	driver   Driver
	registry map[string]func() Job
	maxRetry int
	backoff  func(int) time.Duration
	db       *gorm.DB
	failed   []FailedJob
	wg       sync.WaitGroup
}

func NewManager(d Driver, opts ...Option) *Manager {
	m := &Manager{
		driver:   d,
		registry: map[string]func() Job{},
		maxRetry: 3,
		backoff:  func(attempt int) time.Duration { return time.Duration(attempt) * time.Second },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register makes a job type available to workers. factory must return a
// pointer the payload can be decoded into; it is also where dependencies
// get attached.
func (m *Manager) Register(name string, factory func() Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry[name] = factory
}

// Registered reports whether name has a factory.
func (m *Manager) Registered(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.registry[name]
	return ok
}

// Dispatch queues job for immediate processing.
func (m *Manager) Dispatch(ctx context.Context, job Job) error {
	raw, err := encode(job)
	if err != nil {
		return err
	}
	return m.driver.Push(ctx, raw)
}

// DispatchAfter queues job to run once delay has passed. Drivers without
// native delay support hold the job in a timer in this process.
func (m *Manager) DispatchAfter(ctx context.Context, job Job, delay time.Duration) error {
	if delay <= 0 {
		return m.Dispatch(ctx, job)
	}
	raw, err := encode(job)
	if err != nil {
		return err
	}
	if dd, ok := m.driver.(DelayedDriver); ok {
		return dd.PushDelayed(ctx, raw, delay)
	}
	time.AfterFunc(delay, func() {
		if err := m.driver.Push(context.Background(), raw); err != nil {
			logger.Error("queue: delayed dispatch failed", "error", err)
		}
	})
	return nil
}

// JobName returns the name job is registered under.
func JobName(job Job) string {
	if n, ok := job.(Named); ok {
		return n.JobName()
	}
	return fmt.Sprintf("%T", job)
}

func encode(job Job) ([]byte, error) {
	name := JobName(job)
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("queue: marshal job %s: %w", name, err)
	}
	raw, err := json.Marshal(envelope{Type: name, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("queue: marshal envelope: %w", err)
	}
	return raw, nil
}

// Start launches n workers that run until ctx is cancelled. Wait blocks
// until they have returned.
func (m *Manager) Start(ctx context.Context, n int) {
	if n <= 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.work(ctx)
		}()
	}
	logger.Info("queue: workers started", "count", n)
}

// Wait blocks until every worker started by Start has exited.
func (m *Manager) Wait() { m.wg.Wait() }

func (m *Manager) work(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		raw, err := m.driver.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("queue: pop failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}
		if raw == nil {
			continue
		}
		if err := m.Process(ctx, raw); err != nil {
			logger.Error("queue: job dropped", "error", err)
		}
	}
}

// Process decodes one payload and runs it with retries. It returns an error
// only when the payload cannot be turned into a job.
func (m *Manager) Process(ctx context.Context, raw []byte) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("queue: bad envelope: %w", err)
	}

	m.mu.RLock()
	factory, ok := m.registry[env.Type]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, env.Type)
	}

	job := factory()
	if err := json.Unmarshal(env.Payload, job); err != nil {
		return fmt.Errorf("queue: unmarshal %s: %w", env.Type, err)
	}

	m.runWithRetry(ctx, job, env.Type, env.Payload)
	return nil
}

func (m *Manager) runWithRetry(ctx context.Context, job Job, typeName string, payload []byte) {
	var lastErr error
	for attempt := 1; attempt <= m.maxRetry; attempt++ {
		start := time.Now()
		err := job.Handle(ctx)
		if err == nil {
			metrics.RecordQueueJob(typeName, "success", start)
			logger.Debug("queue: job processed", "type", typeName, "attempt", attempt)
			return
		}
		metrics.RecordQueueJob(typeName, "error", start)
		lastErr = err
		logger.Warn("queue: job failed", "type", typeName, "attempt", attempt, "error", err)

		if attempt < m.maxRetry {
			select {
			case <-ctx.Done():
				m.recordFailed(typeName, payload, ctx.Err(), attempt)
				return
			case <-time.After(m.backoff(attempt)):
			}
		}
	}

	m.recordFailed(typeName, payload, lastErr, m.maxRetry)
	logger.Error("queue: job exhausted retries", "type", typeName, "error", lastErr)
}
