package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/artisanmart/storefront/app/mails"
	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/app/repositories"
	"github.com/artisanmart/storefront/pkg/apperr"
	"github.com/artisanmart/storefront/pkg/logger"
	"github.com/artisanmart/storefront/pkg/mail"
	"github.com/artisanmart/storefront/pkg/orm"
)

type SubscribeInput struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

// RestockService manages back-in-stock subscriptions and delivers them
// when a product becomes available again.
type RestockService struct {
	db       *gorm.DB
	subs     *repositories.StockNotificationRepository
	products *repositories.ProductRepository
	mailer   mail.Mailer
	now      func() time.Time
}

func NewRestockService(db *gorm.DB, mailer mail.Mailer) *RestockService {
	return &RestockService{
		db:       db,
		subs:     repositories.NewStockNotificationRepository(db),
		products: repositories.NewProductRepository(db),
		mailer:   mailer,
		now:      time.Now,
	}
}

// Subscribe records interest in a product. A pending subscription for the
// same email is a conflict; a delivered one is replaced by a fresh one.
func (s *RestockService) Subscribe(ctx context.Context, productID uint, email string, userID *uint) (models.StockNotification, error) {
	const op = "restock.subscribe"

	sub := models.StockNotification{ProductID: productID, Email: email, UserID: userID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if ok, err := s.products.WithTx(tx).Exists(ctx, productID); err != nil {
			return err
		} else if !ok {
			return apperr.NotFound(op, "Product not found", ErrProductNotFound)
		}

		subs := s.subs.WithTx(tx)
		existing, err := subs.Find(ctx, productID, email)
		switch {
		case err == nil && !existing.Notified:
			return apperr.Conflict(op, "You are already subscribed to this product", ErrAlreadySubscribed)
		case err == nil:
			if err := subs.Delete(ctx, existing.ID); err != nil {
				return err
			}
		case !orm.IsNotFound(err):
			return err
		}

		if err := subs.Create(ctx, &sub); err != nil {
			if orm.IsDuplicate(err) {
				return apperr.Conflict(op, "You are already subscribed to this product", ErrAlreadySubscribed)
			}
			return err
		}
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			err = apperr.Internal(op, err)
		}
		return models.StockNotification{}, err
	}
	return sub, nil
}

// NotifyRestocked mails every pending subscriber of a product and returns
// how many were told. Each subscription is claimed before its mail goes
// out, so overlapping runs never mail the same subscriber twice. A failed
// delivery releases the claim and the loop moves on.
func (s *RestockService) NotifyRestocked(ctx context.Context, productID uint) (int, error) {
	const op = "restock.notify"
	log := logger.WithCtx(ctx).With("product_id", productID)

	p, err := s.products.Find(ctx, productID)
	if err != nil {
		if orm.IsNotFound(err) {
			return 0, nil
		}
		return 0, apperr.Internal(op, err)
	}
	if p.Stock <= 0 {
		return 0, nil
	}

	pending, err := s.subs.Pending(ctx, productID)
	if err != nil {
		return 0, apperr.Internal(op, err)
	}

	sent := 0
	var errs []error
	for _, sub := range pending {
		claimed, err := s.subs.MarkNotified(ctx, sub.ID, s.now())
		if err != nil {
			log.Warn("restock: claim failed", "subscription_id", sub.ID, "error", err)
			errs = append(errs, err)
			continue
		}
		if !claimed {
			continue
		}

		msg, err := mails.Restocked(p, sub.Email)
		if err == nil {
			err = s.mailer.Send(ctx, msg)
		}
		if err != nil {
			log.Warn("restock: delivery failed", "subscription_id", sub.ID, "email", sub.Email, "error", err)
			if relErr := s.subs.Release(ctx, sub.ID); relErr != nil {
				log.Error("restock: release failed", "subscription_id", sub.ID, "error", relErr)
			}
			errs = append(errs, err)
			continue
		}
		sent++
	}
	if sent > 0 {
		log.Info("restock: subscribers notified", "count", sent)
	}
	return sent, errors.Join(errs...)
}
