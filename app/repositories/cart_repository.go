package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/artisanmart/storefront/app/models"
)

type CartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) WithTx(tx *gorm.DB) *CartRepository {
	return &CartRepository{db: tx}
}

// ForUser loads the user's cart with its items. A user without a cart gets
// an empty, unsaved one.
func (r *CartRepository) ForUser(ctx context.Context, userID uint) (models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("user_id = ?", userID).
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
	}
	return cart, err
}

// Replace swaps the user's items for items, creating the cart on first use.
// Callers run it inside a transaction.
func (r *CartRepository) Replace(ctx context.Context, userID uint, items []models.CartItem) (models.Cart, error) {
	db := r.db.WithContext(ctx)

	var cart models.Cart
	err := db.Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cart = models.Cart{UserID: userID}
		err = db.Create(&cart).Error
	}
	if err != nil {
		return models.Cart{}, err
	}
	if err := db.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
		return models.Cart{}, err
	}
	for i := range items {
		items[i].ID = 0
		items[i].CartID = cart.ID
	}
	if len(items) > 0 {
		if err := db.Create(&items).Error; err != nil {
			return models.Cart{}, err
		}
	}
	if err := db.Model(&cart).UpdateColumn("updated_at", time.Now()).Error; err != nil {
		return models.Cart{}, err
	}
	cart.Items = items
	return cart, nil
}

// Clear empties the user's cart and keeps the cart row.
func (r *CartRepository) Clear(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).
		Where("cart_id IN (?)", r.db.Model(&models.Cart{}).Select("id").Where("user_id = ?", userID)).
		Delete(&models.CartItem{}).Error
}
