package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/app/repositories"
	"github.com/artisanmart/storefront/pkg/apperr"
	"github.com/artisanmart/storefront/pkg/cache"
	"github.com/artisanmart/storefront/pkg/logger"
	"github.com/artisanmart/storefront/pkg/orm"
)

const productCachePrefix = "products:"

// ProductInput is the admin form for a product.
type ProductInput struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Description string          `json:"description" validate:"max=5000"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Category    string          `json:"category" validate:"required,max=100"`
	ArtisanName string          `json:"artisanName" validate:"max=255"`
	Images      []string        `json:"images" validate:"max=10"`
}

type ReviewInput struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// ProductPage is one cached page of the catalog.
type ProductPage struct {
	Products []models.Product `json:"products"`
	Total    int64            `json:"total"`
}

// CatalogService reads and edits the product catalog. Reads go through the
// cache; every write drops the cached catalog.
type CatalogService struct {
	db       *gorm.DB
	products *repositories.ProductRepository
	cache    *cache.Store
	ttl      time.Duration
	events   Dispatcher
}

func NewCatalogService(db *gorm.DB, store *cache.Store, ttl time.Duration, events Dispatcher) *CatalogService {
	if store == nil {
		store = cache.New(nil, "")
	}
	return &CatalogService{
		db:       db,
		products: repositories.NewProductRepository(db),
		cache:    store,
		ttl:      ttl,
		events:   orNop(events),
	}
}

func (s *CatalogService) List(ctx context.Context, f repositories.ProductFilter) (ProductPage, error) {
	f.Page = f.Page.Normalize()
	key := fmt.Sprintf("%slist:%s:%s:%d:%d", productCachePrefix,
		url.QueryEscape(strings.ToLower(strings.TrimSpace(f.Search))), url.QueryEscape(f.Category), f.Page.Page, f.Page.PerPage)

	var page ProductPage
	err := s.cache.Remember(ctx, key, s.ttl, &page, func(ctx context.Context) (any, error) {
		products, total, err := s.products.List(ctx, f)
		if err != nil {
			return nil, err
		}
		if products == nil {
			products = []models.Product{}
		}
		return ProductPage{Products: products, Total: total}, nil
	})
	if err != nil {
		return ProductPage{}, apperr.Internal("catalog.list", err)
	}
	return page, nil
}

// Show returns a product with its reviews.
func (s *CatalogService) Show(ctx context.Context, id uint) (models.Product, error) {
	var p models.Product
	err := s.cache.Remember(ctx, fmt.Sprintf("%s%d", productCachePrefix, id), s.ttl, &p, func(ctx context.Context) (any, error) {
		return s.products.FindWithReviews(ctx, id)
	})
	if orm.IsNotFound(err) {
		return models.Product{}, apperr.NotFound("catalog.show", "Product not found", ErrProductNotFound)
	}
	if err != nil {
		return models.Product{}, apperr.Internal("catalog.show", err)
	}
	return p, nil
}

func (s *CatalogService) Create(ctx context.Context, in ProductInput) (models.Product, error) {
	const op = "catalog.create"
	if in.Price.IsNegative() {
		return models.Product{}, apperr.Validation(op, "Price must not be negative", nil)
	}
	p := models.Product{}
	apply(&p, in)
	if err := s.products.Create(ctx, &p); err != nil {
		return models.Product{}, apperr.Internal(op, err)
	}
	s.invalidate(ctx)
	return p, nil
}

// Update replaces the editable fields of a product and fires stock events
// when its stock moved.
func (s *CatalogService) Update(ctx context.Context, id uint, in ProductInput) (models.Product, error) {
	const op = "catalog.update"
	if in.Price.IsNegative() {
		return models.Product{}, apperr.Validation(op, "Price must not be negative", nil)
	}

	var (
		p      models.Product
		before int
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := s.products.WithTx(tx)
		var err error
		if p, err = products.Find(ctx, id); err != nil {
			return err
		}
		before = p.Stock
		apply(&p, in)
		return products.Save(ctx, &p)
	})
	if orm.IsNotFound(err) {
		return models.Product{}, apperr.NotFound(op, "Product not found", ErrProductNotFound)
	}
	if err != nil {
		return models.Product{}, apperr.Internal(op, err)
	}

	s.invalidate(ctx)
	fireStock(s.events, StockChanged{ProductID: p.ID, Name: p.Name, Before: before, After: p.Stock})
	return p, nil
}

func (s *CatalogService) Delete(ctx context.Context, id uint) error {
	n, err := s.products.Delete(ctx, id)
	if err != nil {
		return apperr.Internal("catalog.delete", err)
	}
	if n == 0 {
		return apperr.NotFound("catalog.delete", "Product not found", ErrProductNotFound)
	}
	s.invalidate(ctx)
	return nil
}

// AddReview stores the user's only review of a product and refreshes its
// rating in the same transaction.
func (s *CatalogService) AddReview(ctx context.Context, productID uint, user models.User, in ReviewInput) (models.Review, error) {
	const op = "catalog.review"

	review := models.Review{ProductID: productID, UserID: user.ID, Name: user.Name, Rating: in.Rating, Comment: in.Comment}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := s.products.WithTx(tx)
		if ok, err := products.Exists(ctx, productID); err != nil {
			return err
		} else if !ok {
			return apperr.NotFound(op, "Product not found", ErrProductNotFound)
		}
		if err := products.CreateReview(ctx, &review); err != nil {
			if orm.IsDuplicate(err) {
				return apperr.Conflict(op, "You have already reviewed this product", ErrAlreadyReviewed)
			}
			return err
		}
		ratings, err := products.Ratings(ctx, productID)
		if err != nil {
			return err
		}
		avg, _ := AverageRating(ratings).Float64()
		return products.SetRating(ctx, productID, avg, len(ratings))
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			err = apperr.Internal(op, err)
		}
		return models.Review{}, err
	}
	s.invalidate(ctx)
	return review, nil
}

// AverageRating is the mean rounded to one decimal place.
func AverageRating(ratings []int) decimal.Decimal {
	if len(ratings) == 0 {
		return decimal.Zero
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return decimal.NewFromInt(int64(sum)).Div(decimal.NewFromInt(int64(len(ratings)))).Round(1)
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if err := s.cache.DelPrefix(ctx, productCachePrefix); err != nil {
		logger.WithCtx(ctx).Warn("catalog: cache invalidation failed", "error", err)
	}
}

func apply(p *models.Product, in ProductInput) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Price = in.Price.Round(2)
	p.Stock = in.Stock
	p.Category = strings.TrimSpace(in.Category)
	p.ArtisanName = strings.TrimSpace(in.ArtisanName)
	p.Images = models.StringList(in.Images)
}
