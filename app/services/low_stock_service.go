package services

import (
	"context"
	"strconv"

	"gorm.io/gorm"

	"github.com/artisanmart/storefront/app/mails"
	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/app/repositories"
	"github.com/artisanmart/storefront/pkg/apperr"
	"github.com/artisanmart/storefront/pkg/logger"
	"github.com/artisanmart/storefront/pkg/notification"
	"github.com/artisanmart/storefront/pkg/orm"
)

type ThresholdInput struct {
	Threshold int `json:"threshold" validate:"gte=0,lte=100000"`
}

// Notifier delivers staff notifications. notification.Notifier implements it.
type Notifier interface {
	Send(ctx context.Context, address string, n notification.Notification) error
}

// LowStockService keeps one alert per product at or below the threshold.
type LowStockService struct {
	alerts           *repositories.LowStockRepository
	settings         *repositories.SettingRepository
	products         *repositories.ProductRepository
	notifier         Notifier
	adminEmail       string
	defaultThreshold int
}

func NewLowStockService(db *gorm.DB, notifier Notifier, adminEmail string, defaultThreshold int) *LowStockService {
	return &LowStockService{
		alerts:           repositories.NewLowStockRepository(db),
		settings:         repositories.NewSettingRepository(db),
		products:         repositories.NewProductRepository(db),
		notifier:         notifier,
		adminEmail:       adminEmail,
		defaultThreshold: defaultThreshold,
	}
}

// Threshold is the stored setting or, when unset, the configured default.
func (s *LowStockService) Threshold(ctx context.Context) (int, error) {
	n, ok, err := s.settings.Int(ctx, models.SettingLowStockThreshold)
	if err != nil {
		return 0, apperr.Internal("lowstock.threshold", err)
	}
	if !ok {
		return s.defaultThreshold, nil
	}
	return n, nil
}

// SetThreshold stores a new threshold and re-evaluates the catalog
// against it.
func (s *LowStockService) SetThreshold(ctx context.Context, n int) error {
	const op = "lowstock.threshold"
	if n < 0 {
		return apperr.Validation(op, "Threshold must not be negative", nil)
	}
	if err := s.settings.Set(ctx, models.SettingLowStockThreshold, strconv.Itoa(n)); err != nil {
		return apperr.Internal(op, err)
	}
	_, err := s.Sweep(ctx)
	return err
}

// Sweep evaluates every product and returns how many alerts are active.
// It catches stock changed outside the app, e.g. by a manual SQL fix.
func (s *LowStockService) Sweep(ctx context.Context) (int, error) {
	products, err := s.products.All(ctx)
	if err != nil {
		return 0, apperr.Internal("lowstock.sweep", err)
	}
	active := 0
	for _, p := range products {
		low, err := s.Evaluate(ctx, p.ID)
		if err != nil {
			return active, err
		}
		if low {
			active++
		}
	}
	return active, nil
}

// Evaluate raises, refreshes or clears the alert of one product. It
// reports whether an alert is active afterwards.
func (s *LowStockService) Evaluate(ctx context.Context, productID uint) (bool, error) {
	const op = "lowstock.evaluate"

	threshold, err := s.Threshold(ctx)
	if err != nil {
		return false, err
	}
	p, err := s.products.Find(ctx, productID)
	if orm.IsNotFound(err) {
		_, err = s.alerts.Delete(ctx, productID)
		return false, wrapInternal(op, err)
	}
	if err != nil {
		return false, apperr.Internal(op, err)
	}

	if p.Stock > threshold {
		_, err := s.alerts.Delete(ctx, productID)
		return false, wrapInternal(op, err)
	}

	alert := models.LowStockAlert{ProductID: p.ID, ProductName: p.Name, Stock: p.Stock, Threshold: threshold}
	created, err := s.alerts.Upsert(ctx, &alert)
	if err != nil {
		return false, apperr.Internal(op, err)
	}
	if created && s.notifier != nil && s.adminEmail != "" {
		if err := s.notifier.Send(ctx, s.adminEmail, mails.LowStock{Alert: alert}); err != nil {
			logger.WithCtx(ctx).Warn("lowstock: staff notification failed", "product_id", p.ID, "error", err)
		}
	}
	return true, nil
}

func (s *LowStockService) List(ctx context.Context, p orm.Page) ([]models.LowStockAlert, int64, error) {
	alerts, total, err := s.alerts.List(ctx, p)
	if err != nil {
		return nil, 0, apperr.Internal("lowstock.list", err)
	}
	return nonNil(alerts), total, nil
}

func wrapInternal(op string, err error) error {
	if err == nil {
		return nil
	}
	return apperr.Internal(op, err)
}
