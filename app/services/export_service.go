package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/app/repositories"
	"github.com/artisanmart/storefront/pkg/apperr"
	"github.com/artisanmart/storefront/pkg/logger"
	"github.com/artisanmart/storefront/pkg/orm"
	"github.com/artisanmart/storefront/pkg/schedule"
)

// ScheduleInput is the admin form for a scheduled export.
type ScheduleInput struct {
	Name          string             `json:"name" validate:"required,max=255"`
	Cron          string             `json:"cron" validate:"required,max=100"`
	Format        string             `json:"format" validate:"required,in=csv|xlsx"`
	Destination   string             `json:"destination" validate:"required,in=email|storage"`
	Recipient     string             `json:"recipient" validate:"max=255"`
	StoragePrefix string             `json:"storagePrefix" validate:"max=255"`
	Retry         models.RetryPolicy `json:"retry"`
	Active        *bool              `json:"active"`
}

// ExportService manages export schedules and keeps the runner's cron
// entries in step with them.
type ExportService struct {
	exports *repositories.ExportRepository
	runner  *ExportRunner
}

func NewExportService(db *gorm.DB, runner *ExportRunner) *ExportService {
	return &ExportService{exports: repositories.NewExportRepository(db), runner: runner}
}

func (s *ExportService) List(ctx context.Context) ([]models.ScheduledExport, error) {
	list, err := s.exports.Schedules(ctx)
	if err != nil {
		return nil, apperr.Internal("exports.list", err)
	}
	return nonNil(list), nil
}

func (s *ExportService) Show(ctx context.Context, id uint) (models.ScheduledExport, error) {
	sched, err := s.exports.FindSchedule(ctx, id)
	if orm.IsNotFound(err) {
		return sched, apperr.NotFound("exports.show", "Scheduled export not found", ErrScheduleNotFound)
	}
	if err != nil {
		return sched, apperr.Internal("exports.show", err)
	}
	return sched, nil
}

func (s *ExportService) Create(ctx context.Context, in ScheduleInput) (models.ScheduledExport, error) {
	const op = "exports.create"
	var sched models.ScheduledExport
	if err := s.apply(op, &sched, in); err != nil {
		return sched, err
	}
	if err := s.exports.CreateSchedule(ctx, &sched); err != nil {
		return sched, apperr.Internal(op, err)
	}
	s.sync(ctx, sched)
	return sched, nil
}

func (s *ExportService) Update(ctx context.Context, id uint, in ScheduleInput) (models.ScheduledExport, error) {
	const op = "exports.update"
	sched, err := s.Show(ctx, id)
	if err != nil {
		return sched, err
	}
	if err := s.apply(op, &sched, in); err != nil {
		return sched, err
	}
	if err := s.exports.SaveSchedule(ctx, &sched); err != nil {
		return sched, apperr.Internal(op, err)
	}
	s.sync(ctx, sched)
	return sched, nil
}

// Delete removes the schedule with its run history.
func (s *ExportService) Delete(ctx context.Context, id uint) error {
	n, err := s.exports.DeleteSchedule(ctx, id)
	if err != nil {
		return apperr.Internal("exports.delete", err)
	}
	if n == 0 {
		return apperr.NotFound("exports.delete", "Scheduled export not found", ErrScheduleNotFound)
	}
	if s.runner != nil {
		s.runner.Detach(id)
	}
	return nil
}

// RunNow starts a manual attempt regardless of the cron expression. Inactive
// schedules are refused.
func (s *ExportService) RunNow(ctx context.Context, id uint) (models.ScheduledExportRun, error) {
	sched, err := s.Show(ctx, id)
	if err != nil {
		return models.ScheduledExportRun{}, err
	}
	if !sched.Active {
		return models.ScheduledExportRun{}, apperr.Conflict("exports.run", "Scheduled export is inactive", ErrScheduleInactive)
	}
	return s.runner.Run(ctx, id, models.TriggerManual)
}

func (s *ExportService) Retry(ctx context.Context, runID uint) (models.ScheduledExportRun, error) {
	return s.runner.Retry(ctx, runID)
}

func (s *ExportService) Runs(ctx context.Context, scheduleID uint, p orm.Page) ([]models.ScheduledExportRun, int64, error) {
	if _, err := s.Show(ctx, scheduleID); err != nil {
		return nil, 0, err
	}
	runs, total, err := s.exports.Runs(ctx, scheduleID, p)
	if err != nil {
		return nil, 0, apperr.Internal("exports.runs", err)
	}
	return nonNil(runs), total, nil
}

func (s *ExportService) apply(op string, sched *models.ScheduledExport, in ScheduleInput) error {
	cron := strings.Join(strings.Fields(in.Cron), " ")
	if _, err := schedule.ParseCron(cron); err != nil {
		return apperr.Validation(op, "The cron field is not a valid 5-field cron expression.", ErrInvalidCron)
	}
	recipient := strings.TrimSpace(in.Recipient)
	if in.Destination == models.DestinationEmail && recipient == "" {
		return apperr.Validation(op, "The recipient field is required for email exports.", nil)
	}

	sched.Name = strings.TrimSpace(in.Name)
	sched.Cron = cron
	sched.Format = in.Format
	sched.Destination = in.Destination
	sched.Recipient = recipient
	sched.StoragePrefix = strings.Trim(strings.TrimSpace(in.StoragePrefix), "/")
	sched.Retry = in.Retry
	if sched.Retry.MaxAttempts == 0 {
		sched.Retry.MaxAttempts = 1
	}
	sched.Active = in.Active == nil || *in.Active
	return nil
}

func (s *ExportService) sync(ctx context.Context, sched models.ScheduledExport) {
	if s.runner == nil {
		return
	}
	if err := s.runner.Sync(sched); err != nil {
		logger.WithCtx(ctx).Error("exports: schedule not registered", "schedule_id", sched.ID, "error", err)
	}
}
