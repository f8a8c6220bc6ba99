package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/pkg/orm"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) WithTx(tx *gorm.DB) *OrderRepository {
	return &OrderRepository{db: tx}
}

// Create inserts the order and its items.
func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	return r.db.WithContext(ctx).Omit("User").Create(o).Error
}

func (r *OrderRepository) Find(ctx context.Context, id uint) (models.Order, error) {
	var o models.Order
	err := r.db.WithContext(ctx).Preload("Items").Preload("User").First(&o, id).Error
	return o, err
}

// FindForUser loads an order only when it belongs to userID.
func (r *OrderRepository) FindForUser(ctx context.Context, id, userID uint) (models.Order, error) {
	var o models.Order
	err := r.db.WithContext(ctx).Preload("Items").
		Where("id = ? AND user_id = ?", id, userID).
		First(&o).Error
	return o, err
}

func (r *OrderRepository) FindByPaymentID(ctx context.Context, paymentID string) (models.Order, error) {
	var o models.Order
	err := r.db.WithContext(ctx).Preload("Items").Where("payment_id = ?", paymentID).First(&o).Error
	return o, err
}

// ListForUser pages through the buyer's orders, newest first.
func (r *OrderRepository) ListForUser(ctx context.Context, userID uint, p orm.Page) ([]models.Order, int64, error) {
	q := r.db.Model(&models.Order{}).Where("user_id = ?", userID)
	var orders []models.Order
	total, err := orm.Paginate(ctx, q, p, "created_at DESC, id DESC", &orders, "Items")
	return orders, total, err
}

// List pages through all orders, optionally by status.
func (r *OrderRepository) List(ctx context.Context, status models.OrderStatus, p orm.Page) ([]models.Order, int64, error) {
	q := r.db.Model(&models.Order{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var orders []models.Order
	total, err := orm.Paginate(ctx, q, p, "created_at DESC, id DESC", &orders, "Items", "User")
	return orders, total, err
}

// UpdateStatus moves an order from one status to another. It reports false
// when the order was no longer in from.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id uint, from, to models.OrderStatus, at time.Time) (bool, error) {
	cols := map[string]any{"status": to, "updated_at": at}
	if to == models.OrderDelivered {
		cols["delivered_at"] = at
	}
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumns(cols)
	return res.RowsAffected == 1, res.Error
}
