package repositories

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/pkg/orm"
)

// StockNotificationRepository stores back-in-stock subscriptions.
type StockNotificationRepository struct {
	db *gorm.DB
}

func NewStockNotificationRepository(db *gorm.DB) *StockNotificationRepository {
	return &StockNotificationRepository{db: db}
}

func (r *StockNotificationRepository) WithTx(tx *gorm.DB) *StockNotificationRepository {
	return &StockNotificationRepository{db: tx}
}

func (r *StockNotificationRepository) Find(ctx context.Context, productID uint, email string) (models.StockNotification, error) {
	var n models.StockNotification
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND email = ?", productID, normalizeEmail(email)).
		First(&n).Error
	return n, err
}

func (r *StockNotificationRepository) Create(ctx context.Context, n *models.StockNotification) error {
	n.Email = normalizeEmail(n.Email)
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *StockNotificationRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.StockNotification{}, id).Error
}

// Pending lists the subscriptions of a product that were not told yet.
func (r *StockNotificationRepository) Pending(ctx context.Context, productID uint) ([]models.StockNotification, error) {
	var subs []models.StockNotification
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND notified = ?", productID, false).
		Order("id").
		Find(&subs).Error
	return subs, err
}

// MarkNotified flips one subscription to notified. It reports false when
// another delivery got there first.
func (r *StockNotificationRepository) MarkNotified(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.StockNotification{}).
		Where("id = ? AND notified = ?", id, false).
		UpdateColumns(map[string]any{"notified": true, "notified_at": at, "updated_at": at})
	return res.RowsAffected == 1, res.Error
}

// LowStockRepository stores the active low-stock alerts and the
// admin-editable settings they depend on.
type LowStockRepository struct {
	db *gorm.DB
}

func NewLowStockRepository(db *gorm.DB) *LowStockRepository {
	return &LowStockRepository{db: db}
}

// Upsert writes the alert for a product. It reports true when no alert
// existed before.
func (r *LowStockRepository) Upsert(ctx context.Context, a *models.LowStockAlert) (bool, error) {
	db := r.db.WithContext(ctx)
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoNothing: true,
	}).Create(a)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	err := db.Model(&models.LowStockAlert{}).
		Where("product_id = ?", a.ProductID).
		Updates(map[string]any{
			"stock":        a.Stock,
			"threshold":    a.Threshold,
			"product_name": a.ProductName,
		}).Error
	return false, err
}

// Delete clears the alert of a product, if any.
func (r *LowStockRepository) Delete(ctx context.Context, productID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("product_id = ?", productID).Delete(&models.LowStockAlert{})
	return res.RowsAffected, res.Error
}

func (r *LowStockRepository) Find(ctx context.Context, productID uint) (models.LowStockAlert, error) {
	var a models.LowStockAlert
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).First(&a).Error
	return a, err
}

// List pages through alerts, lowest stock first.
func (r *LowStockRepository) List(ctx context.Context, p orm.Page) ([]models.LowStockAlert, int64, error) {
	var alerts []models.LowStockAlert
	total, err := orm.Paginate(ctx, r.db.Model(&models.LowStockAlert{}), p, "stock ASC, product_id ASC", &alerts)
	return alerts, total, err
}

// SettingRepository reads and writes key/value settings.
type SettingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// Get returns the stored value and whether the key exists.
func (r *SettingRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var s models.Setting
	err := r.db.WithContext(ctx).Where("setting_key = ?", key).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return s.Value, true, nil
}

// Int reads an integer setting. Missing or malformed values return ok=false.
func (r *SettingRepository) Int(ctx context.Context, key string) (int, bool, error) {
	v, found, err := r.Get(ctx, key)
	if err != nil || !found {
		return 0, false, err
	}
	n, convErr := strconv.Atoi(v)
	if convErr != nil {
		return 0, false, nil
	}
	return n, true, nil
}

func (r *SettingRepository) Set(ctx context.Context, key, value string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&models.Setting{Key: key, Value: value}).Error
}

// Release undoes MarkNotified after a failed delivery.
func (r *StockNotificationRepository) Release(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.StockNotification{}).
		Where("id = ? AND notified = ?", id, true).
		UpdateColumns(map[string]any{"notified": false, "notified_at": nil}).Error
}
