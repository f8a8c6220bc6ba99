package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/pkg/orm"
)

// ExportRepository stores scheduled exports and their runs.
type ExportRepository struct {
	db *gorm.DB
}

func NewExportRepository(db *gorm.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

func (r *ExportRepository) WithTx(tx *gorm.DB) *ExportRepository {
	return &ExportRepository{db: tx}
}

func (r *ExportRepository) Schedules(ctx context.Context) ([]models.ScheduledExport, error) {
	var out []models.ScheduledExport
	err := r.db.WithContext(ctx).Order("id").Find(&out).Error
	return out, err
}

func (r *ExportRepository) ActiveSchedules(ctx context.Context) ([]models.ScheduledExport, error) {
	var out []models.ScheduledExport
	err := r.db.WithContext(ctx).Where("active = ?", true).Order("id").Find(&out).Error
	return out, err
}

func (r *ExportRepository) FindSchedule(ctx context.Context, id uint) (models.ScheduledExport, error) {
	var s models.ScheduledExport
	err := r.db.WithContext(ctx).First(&s, id).Error
	return s, err
}

func (r *ExportRepository) CreateSchedule(ctx context.Context, s *models.ScheduledExport) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *ExportRepository) SaveSchedule(ctx context.Context, s *models.ScheduledExport) error {
	return r.db.WithContext(ctx).Save(s).Error
}

// DeleteSchedule removes a schedule and its run history.
func (r *ExportRepository) DeleteSchedule(ctx context.Context, id uint) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("schedule_id = ?", id).Delete(&models.ScheduledExportRun{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.ScheduledExport{}, id)
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}

func (r *ExportRepository) TouchLastRun(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.ScheduledExport{}).
		Where("id = ?", id).
		UpdateColumn("last_run_at", at).Error
}

func (r *ExportRepository) CreateRun(ctx context.Context, run *models.ScheduledExportRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *ExportRepository) FindRun(ctx context.Context, id uint) (models.ScheduledExportRun, error) {
	var run models.ScheduledExportRun
	err := r.db.WithContext(ctx).First(&run, id).Error
	return run, err
}

// FinishRun stores the outcome columns of a run.
func (r *ExportRepository) FinishRun(ctx context.Context, run *models.ScheduledExportRun) error {
	return r.db.WithContext(ctx).Model(run).Select("status", "artifact", "rows", "error", "finished_at", "updated_at").
		Updates(run).Error
}

// Runs pages through a schedule's runs, newest first.
func (r *ExportRepository) Runs(ctx context.Context, scheduleID uint, p orm.Page) ([]models.ScheduledExportRun, int64, error) {
	q := r.db.Model(&models.ScheduledExportRun{}).Where("schedule_id = ?", scheduleID)
	var runs []models.ScheduledExportRun
	total, err := orm.Paginate(ctx, q, p, "id DESC", &runs)
	return runs, total, err
}
