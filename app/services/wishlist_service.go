package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/app/repositories"
	"github.com/artisanmart/storefront/pkg/apperr"
	"github.com/artisanmart/storefront/pkg/orm"
)

type WishlistService struct {
	items    *repositories.WishlistRepository
	products *repositories.ProductRepository
}

func NewWishlistService(db *gorm.DB) *WishlistService {
	return &WishlistService{
		items:    repositories.NewWishlistRepository(db),
		products: repositories.NewProductRepository(db),
	}
}

func (s *WishlistService) List(ctx context.Context, userID uint) ([]models.WishlistItem, error) {
	items, err := s.items.List(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("wishlist.list", err)
	}
	if items == nil {
		items = []models.WishlistItem{}
	}
	return items, nil
}

func (s *WishlistService) Add(ctx context.Context, userID, productID uint) (models.WishlistItem, error) {
	const op = "wishlist.add"

	p, err := s.products.Find(ctx, productID)
	if orm.IsNotFound(err) {
		return models.WishlistItem{}, apperr.NotFound(op, "Product not found", ErrProductNotFound)
	}
	if err != nil {
		return models.WishlistItem{}, apperr.Internal(op, err)
	}

	item := models.WishlistItem{UserID: userID, ProductID: productID}
	if err := s.items.Add(ctx, &item); err != nil {
		if orm.IsDuplicate(err) {
			return models.WishlistItem{}, apperr.Conflict(op, "Product is already in your wishlist", ErrAlreadyWishlisted)
		}
		return models.WishlistItem{}, apperr.Internal(op, err)
	}
	item.Product = p
	return item, nil
}

func (s *WishlistService) Remove(ctx context.Context, userID, productID uint) error {
	n, err := s.items.Remove(ctx, userID, productID)
	if err != nil {
		return apperr.Internal("wishlist.remove", err)
	}
	if n == 0 {
		return apperr.NotFound("wishlist.remove", "Product is not in your wishlist", ErrNotWishlisted)
	}
	return nil
}
