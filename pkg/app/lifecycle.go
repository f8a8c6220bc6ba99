package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/artisanmart/storefront/config"
	"github.com/artisanmart/storefront/internal/server"
	"github.com/artisanmart/storefront/pkg/cache"
	"github.com/artisanmart/storefront/pkg/database"
	"github.com/artisanmart/storefront/pkg/logger"
	"github.com/artisanmart/storefront/pkg/mail"
	"github.com/artisanmart/storefront/pkg/storage"
)

// Workers selects the background loops Start runs in this process.
type Workers struct {
	Queue     bool
	Scheduler bool
}

const lowStockSweep = "lowstock.sweep"

// AllWorkers is what serve runs.
var AllWorkers = Workers{Queue: true, Scheduler: true}

// Boot loads configuration and connects to the configured infrastructure.
// Redis is optional: when it cannot be reached the app runs uncached with
// the in-memory queue.
func Boot(ctx context.Context) (*Application, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("app: config: %w", err)
	}
	if err := logger.Setup(); err != nil {
		logger.Warn("app: mongo log sink unavailable", "error", err)
	}
	if err := database.Connect(); err != nil {
		return nil, err
	}

	infra := Infra{DB: database.DB, Mailer: mail.FromEnv()}
	rdb, err := cache.Connect(ctx)
	if err != nil {
		logger.Warn("app: redis unavailable, running without cache", "error", err)
	} else {
		infra.Redis = rdb
	}

	disks, err := storage.FromEnv(ctx)
	if err != nil {
		_ = database.Close(database.DB)
		return nil, fmt.Errorf("app: storage: %w", err)
	}
	infra.Disks = disks

	a, err := New(infra)
	if err != nil {
		_ = database.Close(database.DB)
		return nil, err
	}
	a.onClose = append(a.onClose, func() { _ = database.Close(a.DB) })
	if rdb != nil {
		a.onClose = append(a.onClose, func() { _ = rdb.Close() })
	}
	a.onClose = append(a.onClose, logger.Close)
	return a, nil
}

// Start opens the session registry and runs the selected workers until
// Stop. Schedules are loaded from the database before the scheduler ticks.
func (a *Application) Start(ctx context.Context, w Workers) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if a.cancel != nil {
		return errors.New("app: already started")
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.Sessions.Start()
	if w.Queue {
		a.Queue.Start(runCtx, config.QueueWorkers())
	}
	if w.Scheduler {
		if err := a.Schedule(ctx); err != nil {
			cancel()
			return err
		}
		a.Scheduler.Start(runCtx)
	}
	a.cancel = cancel
	return nil
}

// Schedule registers the periodic tasks: the hourly low-stock sweep and
// every active export schedule.
func (a *Application) Schedule(ctx context.Context) error {
	err := a.Scheduler.Hourly().Name(lowStockSweep).WithoutOverlapping().Run(func(ctx context.Context) {
		active, err := a.Services.LowStock.Sweep(ctx)
		if err != nil {
			logger.WithCtx(ctx).Error("lowstock: sweep failed", "error", err)
			return
		}
		logger.WithCtx(ctx).Debug("lowstock: sweep done", "active", active)
	})
	if err != nil {
		return fmt.Errorf("app: low-stock sweep: %w", err)
	}
	if err := a.Runner.Attach(ctx, a.Scheduler); err != nil {
		return fmt.Errorf("app: load export schedules: %w", err)
	}
	return nil
}

// Stop halts the workers and drains in-flight work, giving up when ctx
// ends. Safe to call without Start.
func (a *Application) Stop(ctx context.Context) error {
	a.runMu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.runMu.Unlock()
	if cancel != nil {
		cancel()
	}

	var errs []error
	for _, step := range []struct {
		name string
		fn   func()
	}{
		{"scheduler", a.Scheduler.Wait},
		{"queue", a.Queue.Wait},
		{"sessions", a.Sessions.Shutdown},
		{"worker pool", a.Pool.Shutdown},
	} {
		if err := waitCtx(ctx, step.fn); err != nil {
			errs = append(errs, fmt.Errorf("app: stop %s: %w", step.name, err))
		}
	}
	return errors.Join(errs...)
}

// Serve runs the HTTP and gRPC servers with every worker until a shutdown
// signal.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.Start(ctx, AllWorkers); err != nil {
		return err
	}
	return server.Start(a.Handler(), server.Options{
		Port:            config.AppPort(),
		GRPCPort:        config.GRPCPort(),
		ShutdownTimeout: config.ShutdownTimeout(),
		OnShutdown:      a.Stop,
	})
}

// Close releases connections opened by Boot.
func (a *Application) Close() {
	for i := len(a.onClose) - 1; i >= 0; i-- {
		a.onClose[i]()
	}
	a.onClose = nil
}

func (a *Application) health(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func waitCtx(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
