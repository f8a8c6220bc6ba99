package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/app/repositories"
	"github.com/artisanmart/storefront/pkg/apperr"
	"github.com/artisanmart/storefront/pkg/logger"
	"github.com/artisanmart/storefront/pkg/orm"
)

type ContactInput struct {
	Name    string `json:"name" validate:"required,max=255"`
	Email   string `json:"email" validate:"required,email,max=255"`
	Subject string `json:"subject" validate:"max=255"`
	Message string `json:"message" validate:"required,max=5000"`
}

// ContactService stores contact form messages and hands them to the
// store inbox through the queue.
type ContactService struct {
	messages *repositories.ContactRepository
	forward  func(ctx context.Context, m models.ContactMessage) error
}

// NewContactService stores messages in db. forward, when set, queues the
// inbox email.
func NewContactService(db *gorm.DB, forward func(ctx context.Context, m models.ContactMessage) error) *ContactService {
	return &ContactService{messages: repositories.NewContactRepository(db), forward: forward}
}

// Submit stores the message. A failure to forward it is logged only; the
// message is already in the admin inbox.
func (s *ContactService) Submit(ctx context.Context, userID *uint, in ContactInput) (models.ContactMessage, error) {
	m := models.ContactMessage{UserID: userID, Name: in.Name, Email: in.Email, Subject: in.Subject, Message: in.Message}
	if err := s.messages.Create(ctx, &m); err != nil {
		return models.ContactMessage{}, apperr.Internal("contact.submit", err)
	}
	if s.forward != nil {
		if err := s.forward(ctx, m); err != nil {
			logger.WithCtx(ctx).Warn("contact: forward failed", "message_id", m.ID, "error", err)
		}
	}
	return m, nil
}

func (s *ContactService) List(ctx context.Context, p orm.Page) ([]models.ContactMessage, int64, error) {
	msgs, total, err := s.messages.List(ctx, p)
	if err != nil {
		return nil, 0, apperr.Internal("contact.list", err)
	}
	return nonNil(msgs), total, nil
}
