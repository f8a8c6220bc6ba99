package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/artisanmart/storefront/pkg/logger"
)

// FailedJobRecord is a row in failed_jobs.
type FailedJobRecord struct {
	ID       uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	JobType  string    `gorm:"size:255;not null;index" json:"jobType"`
	Payload  string    `gorm:"type:text;not null" json:"payload"`
	Error    string    `gorm:"type:text" json:"error"`
	Attempts int       `gorm:"not null;default:0" json:"attempts"`
	FailedAt time.Time `gorm:"autoCreateTime" json:"failedAt"`
}

func (FailedJobRecord) TableName() string { return "failed_jobs" }

func (m *Manager) recordFailed(typeName string, payload []byte, lastErr error, attempts int) {
	msg := ""
	if lastErr != nil {
		msg = lastErr.Error()
	}
	fj := FailedJob{Type: typeName, Payload: string(payload), Err: msg, Attempts: attempts, FailedAt: time.Now()}

	m.mu.Lock()
	m.failed = append(m.failed, fj)
	m.mu.Unlock()

	if m.db == nil {
		return
	}
	rec := FailedJobRecord{
		JobType:  fj.Type,
		Payload:  fj.Payload,
		Error:    fj.Err,
		Attempts: fj.Attempts,
		FailedAt: fj.FailedAt,
	}
	if err := m.db.Create(&rec).Error; err != nil {
		logger.Error("queue: persist failed job", "type", typeName, "error", err)
	}
}

// FailedJobs returns the failures seen by this process, oldest first.
func (m *Manager) FailedJobs() []FailedJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]FailedJob(nil), m.failed...)
}

// StoredFailedJobs lists the failed_jobs table, newest first.
func (m *Manager) StoredFailedJobs(ctx context.Context) ([]FailedJobRecord, error) {
	if m.db == nil {
		return nil, nil
	}
	var out []FailedJobRecord
	if err := m.db.WithContext(ctx).Order("id desc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("queue: list failed jobs: %w", err)
	}
	return out, nil
}

// RetryFailed pushes a stored failure back onto the queue and deletes the
// record.
func (m *Manager) RetryFailed(ctx context.Context, id uint) error {
	if m.db == nil {
		return fmt.Errorf("queue: no failed job store configured")
	}
	var rec FailedJobRecord
	if err := m.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		return fmt.Errorf("queue: load failed job %d: %w", id, err)
	}
	raw, err := json.Marshal(envelope{Type: rec.JobType, Payload: json.RawMessage(rec.Payload)})
	if err != nil {
		return fmt.Errorf("queue: marshal envelope: %w", err)
	}
	if err := m.driver.Push(ctx, raw); err != nil {
		return err
	}
	return m.db.WithContext(ctx).Delete(&FailedJobRecord{}, rec.ID).Error
}
