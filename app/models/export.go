package models

import "time"

const (
	ExportFormatCSV  = "csv"
	ExportFormatXLSX = "xlsx"

	DestinationEmail   = "email"
	DestinationStorage = "storage"

	RunRunning = "running"
	RunSuccess = "success"
	RunFailed  = "failed"
)

type RetryPolicy struct {
	Enabled        bool `gorm:"not null" json:"enabled"`
	MaxAttempts    int  `gorm:"not null" json:"maxAttempts" validate:"gte=0,lte=10"`
	BackoffSeconds int  `gorm:"not null" json:"backoffSeconds" validate:"gte=0,lte=86400"`
}

// Backoff is the wait before attempt+1: BackoffSeconds * 2^(attempt-1).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(p.BackoffSeconds) * time.Second * time.Duration(1<<uint(attempt-1))
}

// ScheduledExport regenerates the catalog on a cron schedule.
type ScheduledExport struct {
	Model
	Name          string      `gorm:"size:255;not null" json:"name"`
	Cron          string      `gorm:"size:100;not null" json:"cron"`
	Format        string      `gorm:"size:10;not null" json:"format"`
	Destination   string      `gorm:"size:20;not null" json:"destination"`
	Recipient     string      `gorm:"size:255" json:"recipient,omitempty"`
	StoragePrefix string      `gorm:"size:255" json:"storagePrefix,omitempty"`
	Retry         RetryPolicy `gorm:"embedded;embeddedPrefix:retry_" json:"retry"`
	Active        bool        `gorm:"not null" json:"active"`
	LastRunAt     *time.Time  `json:"lastRunAt,omitempty"`
}

// ScheduledExportRun is one attempt. Retries point at the failed run they
// follow.
type ScheduledExportRun struct {
	Model
	ScheduleID    uint       `gorm:"not null;index" json:"scheduleId"`
	Status        string     `gorm:"size:20;not null;index" json:"status"`
	Attempt       int        `gorm:"not null" json:"attempt"`
	Trigger       string     `gorm:"size:20;not null" json:"trigger"`
	PreviousRunID *uint      `json:"previousRunId,omitempty"`
	Artifact      string     `gorm:"size:512" json:"artifact,omitempty"`
	Rows          int        `json:"rows"`
	Error         string     `gorm:"type:text" json:"error,omitempty"`
	StartedAt     time.Time  `json:"startedAt"`
	FinishedAt    *time.Time `json:"finishedAt,omitempty"`
}

// Run triggers.
const (
	TriggerSchedule = "schedule"
	TriggerRetry    = "retry"
	TriggerManual   = "manual"
)
