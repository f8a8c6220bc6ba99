package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/app/repositories"
	"github.com/artisanmart/storefront/pkg/apperr"
)

type CartItemInput struct {
	ProductID uint `json:"productId" validate:"required"`
	Quantity  int  `json:"quantity" validate:"required,gte=1,lte=100"`
}

type CartInput struct {
	Items []CartItemInput `json:"items" validate:"max=50,dive"`
}

// CartService keeps one cart per user. Saved quantities never exceed the
// live stock at save time. Name and price are snapshotted when a product
// first enters the cart and kept while it stays there.
type CartService struct {
	db       *gorm.DB
	carts    *repositories.CartRepository
	products *repositories.ProductRepository
}

func NewCartService(db *gorm.DB) *CartService {
	return &CartService{
		db:       db,
		carts:    repositories.NewCartRepository(db),
		products: repositories.NewProductRepository(db),
	}
}

func (s *CartService) Get(ctx context.Context, userID uint) (models.Cart, error) {
	cart, err := s.carts.ForUser(ctx, userID)
	if err != nil {
		return models.Cart{}, apperr.Internal("cart.get", err)
	}
	return cart, nil
}

// Save replaces the whole cart. Repeated products are merged.
func (s *CartService) Save(ctx context.Context, userID uint, items []CartItemInput) (models.Cart, error) {
	const op = "cart.save"

	merged := make([]CartItemInput, 0, len(items))
	index := map[uint]int{}
	for _, it := range items {
		if it.Quantity < 1 || it.Quantity > models.MaxItemQuantity {
			return models.Cart{}, apperr.Validation(op,
				fmt.Sprintf("Quantity must be between 1 and %d", models.MaxItemQuantity), nil)
		}
		if i, ok := index[it.ProductID]; ok {
			merged[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(merged)
		merged = append(merged, it)
	}
	if len(merged) > models.MaxCartItems {
		return models.Cart{}, apperr.Validation(op,
			fmt.Sprintf("A cart holds at most %d items", models.MaxCartItems), ErrCartTooLarge)
	}

	var cart models.Cart
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		current, err := carts.ForUser(ctx, userID)
		if err != nil {
			return err
		}
		lines, err := s.snapshot(ctx, s.products.WithTx(tx), merged, current.Items)
		if err != nil {
			return err
		}
		cart, err = carts.Replace(ctx, userID, lines)
		return err
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			err = apperr.Internal(op, err)
		}
		return models.Cart{}, err
	}
	return cart, nil
}

// AddItem adds quantity of a product to the existing cart.
func (s *CartService) AddItem(ctx context.Context, userID uint, in CartItemInput) (models.Cart, error) {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return models.Cart{}, err
	}
	items := inputs(cart.Items)
	items = append(items, in)
	return s.Save(ctx, userID, items)
}

// RemoveItem drops a product from the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID uint) (models.Cart, error) {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return models.Cart{}, err
	}
	items := make([]CartItemInput, 0, len(cart.Items))
	found := false
	for _, it := range cart.Items {
		if it.ProductID == productID {
			found = true
			continue
		}
		items = append(items, CartItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	if !found {
		return models.Cart{}, apperr.NotFound("cart.remove", "Item not in cart", ErrProductNotFound)
	}
	return s.Save(ctx, userID, items)
}

func (s *CartService) Clear(ctx context.Context, userID uint) error {
	if err := s.carts.Clear(ctx, userID); err != nil {
		return apperr.Internal("cart.clear", err)
	}
	return nil
}

// snapshot builds the cart lines. Products already in the cart keep their
// stored name, price and image; stock is always checked live.
func (s *CartService) snapshot(ctx context.Context, products *repositories.ProductRepository, items []CartItemInput, current []models.CartItem) ([]models.CartItem, error) {
	const op = "cart.save"

	kept := make(map[uint]models.CartItem, len(current))
	for _, it := range current {
		kept[it.ProductID] = it
	}

	ids := make([]uint, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}
	live, err := products.FindMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]models.CartItem, 0, len(items))
	for _, it := range items {
		p, ok := live[it.ProductID]
		if !ok {
			return nil, apperr.NotFound(op, fmt.Sprintf("Product %d not found", it.ProductID), ErrProductNotFound)
		}
		if it.Quantity > models.MaxItemQuantity {
			return nil, apperr.Validation(op,
				fmt.Sprintf("At most %d of %s per order", models.MaxItemQuantity, p.Name), nil)
		}
		if it.Quantity > p.Stock {
			return nil, apperr.Conflict(op, fmt.Sprintf("Only %d of %s left in stock", p.Stock, p.Name), ErrCartItemStock)
		}
		if prev, ok := kept[p.ID]; ok {
			lines = append(lines, models.CartItem{
				ProductID: p.ID,
				Name:      prev.Name,
				Price:     prev.Price,
				Image:     prev.Image,
				Quantity:  it.Quantity,
			})
			continue
		}
		var image string
		if len(p.Images) > 0 {
			image = p.Images[0]
		}
		lines = append(lines, models.CartItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Image:     image,
			Quantity:  it.Quantity,
		})
	}
	return lines, nil
}

func inputs(items []models.CartItem) []CartItemInput {
	out := make([]CartItemInput, 0, len(items)+1)
	for _, it := range items {
		out = append(out, CartItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}
