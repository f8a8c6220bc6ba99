// Package jobs holds the queued background work: outbound mail and delayed
// export retries.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artisanmart/storefront/app/mails"
	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/app/services"
	"github.com/artisanmart/storefront/pkg/apperr"
	"github.com/artisanmart/storefront/pkg/logger"
	"github.com/artisanmart/storefront/pkg/mail"
	"github.com/artisanmart/storefront/pkg/queue"
)

const (
	SendMailName    = "mail.send"
	RetryExportName = "exports.retry"
)

// SendMailJob delivers one message. Failures are retried by the queue and
// end up in failed_jobs.
type SendMailJob struct {
	Message *mail.Message `json:"message"`

	mailer mail.Mailer
}

func (SendMailJob) JobName() string { return SendMailName }

func (j *SendMailJob) Handle(ctx context.Context) error {
	if j.Message == nil {
		return errors.New("jobs: empty mail payload")
	}
	return j.mailer.Send(ctx, j.Message)
}

// RetryExportJob runs the next attempt of a failed scheduled export.
type RetryExportJob struct {
	ScheduleID    uint `json:"scheduleId"`
	PreviousRunID uint `json:"previousRunId"`
	Attempt       int  `json:"attempt"`

	runner *services.ExportRunner
}

func (RetryExportJob) JobName() string { return RetryExportName }

func (j *RetryExportJob) Handle(ctx context.Context) error {
	prev := j.PreviousRunID
	_, err := j.runner.RunAttempt(ctx, j.ScheduleID, j.Attempt, &prev, models.TriggerRetry)
	if apperr.KindOf(err) == apperr.KindNotFound {
		logger.WithCtx(ctx).Info("jobs: export retry dropped, schedule is gone", "schedule_id", j.ScheduleID)
		return nil
	}
	return err
}

// Register attaches the job types and their dependencies to m.
func Register(m *queue.Manager, mailer mail.Mailer, runner *services.ExportRunner) {
	m.Register(SendMailName, func() queue.Job { return &SendMailJob{mailer: mailer} })
	m.Register(RetryExportName, func() queue.Job { return &RetryExportJob{runner: runner} })
}

// Queue is the part of queue.Manager the helpers below need.
type Queue interface {
	Dispatch(ctx context.Context, job queue.Job) error
	DispatchAfter(ctx context.Context, job queue.Job, delay time.Duration) error
}

// QueueMail sends msg through the queue.
func QueueMail(ctx context.Context, q Queue, msg *mail.Message) error {
	if err := q.Dispatch(ctx, &SendMailJob{Message: msg}); err != nil {
		return fmt.Errorf("jobs: queue mail %q: %w", msg.Subject, err)
	}
	return nil
}

// QueuedMailer is a mail.Mailer that queues instead of sending inline.
type QueuedMailer struct {
	Queue Queue
}

func (m QueuedMailer) Send(ctx context.Context, msg *mail.Message) error {
	if len(msg.Recipients()) == 0 {
		return mail.ErrNoRecipients
	}
	return QueueMail(ctx, m.Queue, msg)
}

// ExportRetries returns the runner's retry hook: each retry becomes a
// delayed RetryExportJob.
func ExportRetries(q Queue) services.RetryScheduler {
	return func(ctx context.Context, req services.RetryRequest) error {
		return q.DispatchAfter(ctx, &RetryExportJob{
			ScheduleID:    req.ScheduleID,
			PreviousRunID: req.PreviousRunID,
			Attempt:       req.Attempt,
		}, req.Delay)
	}
}

// ForwardContact queues the store inbox copy of a contact message.
func ForwardContact(q Queue, inbox string) func(ctx context.Context, m models.ContactMessage) error {
	return func(ctx context.Context, m models.ContactMessage) error {
		if inbox == "" {
			return nil
		}
		msg, err := mails.Contact(m, inbox)
		if err != nil {
			return err
		}
		return QueueMail(ctx, q, msg)
	}
}
