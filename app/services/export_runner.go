package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/artisanmart/storefront/app/mails"
	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/app/repositories"
	"github.com/artisanmart/storefront/pkg/apperr"
	"github.com/artisanmart/storefront/pkg/logger"
	"github.com/artisanmart/storefront/pkg/mail"
	"github.com/artisanmart/storefront/pkg/metrics"
	"github.com/artisanmart/storefront/pkg/orm"
	"github.com/artisanmart/storefront/pkg/schedule"
	"github.com/artisanmart/storefront/pkg/storage"
)

// Deliverer ships a rendered export and returns where it went.
type Deliverer interface {
	Deliver(ctx context.Context, s models.ScheduledExport, a Artifact) (string, error)
}

// EmailDeliverer mails the artifact to the schedule's recipient.
type EmailDeliverer struct {
	Mailer mail.Mailer
}

func (d EmailDeliverer) Deliver(ctx context.Context, s models.ScheduledExport, a Artifact) (string, error) {
	if s.Recipient == "" {
		return "", errors.New("export has no recipient")
	}
	if err := d.Mailer.Send(ctx, mails.Export(s, a.Name, a.ContentType, a.Data, a.Rows)); err != nil {
		return "", fmt.Errorf("mail export: %w", err)
	}
	return "mailto:" + s.Recipient, nil
}

// StorageDeliverer uploads the artifact under the schedule's prefix.
type StorageDeliverer struct {
	Disk storage.Disk
}

func (d StorageDeliverer) Deliver(ctx context.Context, s models.ScheduledExport, a Artifact) (string, error) {
	key := path.Join(strings.Trim(s.StoragePrefix, "/"), a.Name)
	if err := d.Disk.Put(ctx, key, a.Data, a.ContentType); err != nil {
		return "", fmt.Errorf("upload export: %w", err)
	}
	return key, nil
}

// RetryRequest asks for another attempt of a failed run after Delay.
type RetryRequest struct {
	ScheduleID    uint
	PreviousRunID uint
	Attempt       int
	Delay         time.Duration
}

// RetryScheduler queues a retry. In production it dispatches a delayed
// queue job.
type RetryScheduler func(ctx context.Context, req RetryRequest) error

// ExportRunner executes scheduled exports. Each attempt is one run record;
// failed attempts are retried with exponential backoff while the policy
// allows.
type ExportRunner struct {
	exports    *repositories.ExportRepository
	catalog    *CatalogService
	deliverers map[string]Deliverer
	now        func() time.Time

	mu        sync.RWMutex
	retry     RetryScheduler
	scheduler *schedule.Scheduler
}

func NewExportRunner(db *gorm.DB, catalog *CatalogService, deliverers map[string]Deliverer) *ExportRunner {
	return &ExportRunner{
		exports:    repositories.NewExportRepository(db),
		catalog:    catalog,
		deliverers: deliverers,
		now:        time.Now,
	}
}

// SetRetryScheduler wires how retries are queued. Without one, failed runs
// stay failed until retried by hand.
func (r *ExportRunner) SetRetryScheduler(fn RetryScheduler) {
	r.mu.Lock()
	r.retry = fn
	r.mu.Unlock()
}

// Run executes the first attempt of a schedule.
func (r *ExportRunner) Run(ctx context.Context, scheduleID uint, trigger string) (models.ScheduledExportRun, error) {
	return r.RunAttempt(ctx, scheduleID, 1, nil, trigger)
}

// RunAttempt renders and delivers one export attempt. A failed delivery is
// recorded on the run, not returned; the error is reserved for runs that
// could not be recorded at all.
func (r *ExportRunner) RunAttempt(ctx context.Context, scheduleID uint, attempt int, previousRunID *uint, trigger string) (models.ScheduledExportRun, error) {
	const op = "exports.run"
	log := logger.WithCtx(ctx).With("schedule_id", scheduleID, "attempt", attempt, "trigger", trigger)

	sched, err := r.exports.FindSchedule(ctx, scheduleID)
	if orm.IsNotFound(err) {
		return models.ScheduledExportRun{}, apperr.NotFound(op, "Scheduled export not found", ErrScheduleNotFound)
	}
	if err != nil {
		return models.ScheduledExportRun{}, apperr.Internal(op, err)
	}

	run := models.ScheduledExportRun{
		ScheduleID:    sched.ID,
		Status:        models.RunRunning,
		Attempt:       attempt,
		Trigger:       trigger,
		PreviousRunID: previousRunID,
		StartedAt:     r.now(),
	}
	if err := r.exports.CreateRun(ctx, &run); err != nil {
		return models.ScheduledExportRun{}, apperr.Internal(op, err)
	}

	location, rows, runErr := r.execute(ctx, sched)
	finished := r.now()
	run.FinishedAt = &finished
	if runErr != nil {
		run.Status = models.RunFailed
		run.Error = runErr.Error()
	} else {
		run.Status = models.RunSuccess
		run.Artifact = location
		run.Rows = rows
	}
	if err := r.exports.FinishRun(ctx, &run); err != nil {
		return run, apperr.Internal(op, err)
	}
	if err := r.exports.TouchLastRun(ctx, sched.ID, finished); err != nil {
		log.Warn("exports: last run not recorded", "error", err)
	}
	metrics.ExportRuns.WithLabelValues(run.Status).Inc()

	if runErr == nil {
		log.Info("exports: run succeeded", "run_id", run.ID, "artifact", location, "rows", rows)
		return run, nil
	}
	log.Warn("exports: run failed", "run_id", run.ID, "error", runErr)
	r.scheduleRetry(ctx, sched, run)
	return run, nil
}

// Retry starts a new attempt from a failed run.
func (r *ExportRunner) Retry(ctx context.Context, runID uint) (models.ScheduledExportRun, error) {
	const op = "exports.retry"

	prev, err := r.exports.FindRun(ctx, runID)
	if orm.IsNotFound(err) {
		return models.ScheduledExportRun{}, apperr.NotFound(op, "Export run not found", ErrRunNotFound)
	}
	if err != nil {
		return models.ScheduledExportRun{}, apperr.Internal(op, err)
	}
	if prev.Status != models.RunFailed {
		return models.ScheduledExportRun{}, apperr.Conflict(op,
			fmt.Sprintf("Run is %s, only failed runs can be retried", prev.Status), ErrRunNotRetryable)
	}
	return r.RunAttempt(ctx, prev.ScheduleID, prev.Attempt+1, &prev.ID, models.TriggerManual)
}

func (r *ExportRunner) execute(ctx context.Context, sched models.ScheduledExport) (string, int, error) {
	d, ok := r.deliverers[sched.Destination]
	if !ok {
		return "", 0, fmt.Errorf("no deliverer for destination %q", sched.Destination)
	}
	artifact, err := r.catalog.Export(ctx, sched.Format)
	if err != nil {
		return "", 0, err
	}
	location, err := d.Deliver(ctx, sched, artifact)
	if err != nil {
		return "", 0, err
	}
	return location, artifact.Rows, nil
}

func (r *ExportRunner) scheduleRetry(ctx context.Context, sched models.ScheduledExport, failed models.ScheduledExportRun) {
	policy := sched.Retry
	if !policy.Enabled || failed.Attempt >= policy.MaxAttempts {
		return
	}
	r.mu.RLock()
	retry := r.retry
	r.mu.RUnlock()
	if retry == nil {
		return
	}

	req := RetryRequest{
		ScheduleID:    sched.ID,
		PreviousRunID: failed.ID,
		Attempt:       failed.Attempt + 1,
		Delay:         policy.Backoff(failed.Attempt),
	}
	if err := retry(ctx, req); err != nil {
		logger.WithCtx(ctx).Error("exports: retry not scheduled", "schedule_id", sched.ID, "run_id", failed.ID, "error", err)
		return
	}
	logger.WithCtx(ctx).Info("exports: retry scheduled", "schedule_id", sched.ID, "attempt", req.Attempt, "delay", req.Delay)
}

func entryID(scheduleID uint) string { return fmt.Sprintf("export:%d", scheduleID) }

// Attach registers every active schedule on s and keeps s in sync with
// later schedule changes.
func (r *ExportRunner) Attach(ctx context.Context, s *schedule.Scheduler) error {
	r.mu.Lock()
	r.scheduler = s
	r.mu.Unlock()

	active, err := r.exports.ActiveSchedules(ctx)
	if err != nil {
		return fmt.Errorf("load schedules: %w", err)
	}
	var errs []error
	for _, sched := range active {
		if err := r.Sync(sched); err != nil {
			errs = append(errs, fmt.Errorf("schedule %d: %w", sched.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Sync registers, replaces or removes the cron entry of one schedule. It is
// a no-op before Attach.
func (r *ExportRunner) Sync(sched models.ScheduledExport) error {
	r.mu.RLock()
	s := r.scheduler
	r.mu.RUnlock()
	if s == nil {
		return nil
	}

	id := entryID(sched.ID)
	if !sched.Active {
		s.Remove(id)
		return nil
	}
	scheduleID := sched.ID
	return s.Cron(sched.Cron).Name(id).WithoutOverlapping().Run(func(ctx context.Context) {
		if _, err := r.Run(ctx, scheduleID, models.TriggerSchedule); err != nil {
			logger.WithCtx(ctx).Error("exports: scheduled run failed to start", "schedule_id", scheduleID, "error", err)
		}
	})
}

// Detach removes a schedule's cron entry.
func (r *ExportRunner) Detach(scheduleID uint) {
	r.mu.RLock()
	s := r.scheduler
	r.mu.RUnlock()
	if s != nil {
		s.Remove(entryID(scheduleID))
	}
}
