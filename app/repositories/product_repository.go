package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/pkg/orm"
)

// ProductFilter narrows a catalog listing.
type ProductFilter struct {
	Search   string
	Category string
	Page     orm.Page
}

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) WithTx(tx *gorm.DB) *ProductRepository {
	return &ProductRepository{db: tx}
}

// List returns one page of products matching f, newest first.
func (r *ProductRepository) List(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	q := r.db.Model(&models.Product{}).Scopes(orm.Search(f.Search, "name", "description", "artisan_name"))
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	var products []models.Product
	total, err := orm.Paginate(ctx, q, f.Page, "created_at DESC, id DESC", &products)
	return products, total, err
}

// All returns the whole catalog ordered by id.
func (r *ProductRepository) All(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).Order("id").Find(&products).Error
	return products, err
}

func (r *ProductRepository) Find(ctx context.Context, id uint) (models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).First(&p, id).Error
	return p, err
}

// FindWithReviews loads a product and its reviews, newest review first.
func (r *ProductRepository) FindWithReviews(ctx context.Context, id uint) (models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).
		Preload("Reviews", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		First(&p, id).Error
	return p, err
}

// FindMany loads the given products keyed by id. Missing ids are absent.
func (r *ProductRepository) FindMany(ctx context.Context, ids []uint) (map[uint]models.Product, error) {
	out := make(map[uint]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var products []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func (r *ProductRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// Save writes every column of p.
func (r *ProductRepository) Save(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *ProductRepository) Delete(ctx context.Context, id uint) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, id)
	return res.RowsAffected, res.Error
}

// Decrement takes qty units when at least qty are left. It reports false
// when the guard matched no row.
func (r *ProductRepository) Decrement(ctx context.Context, id uint, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	return res.RowsAffected == 1, res.Error
}

// Increment returns qty units to stock.
func (r *ProductRepository) Increment(ctx context.Context, id uint, qty int) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty)).Error
}

// Stock reads the current stock of one product.
func (r *ProductRepository) Stock(ctx context.Context, id uint) (int, error) {
	var p models.Product
	err := r.db.WithContext(ctx).Select("id", "stock").First(&p, id).Error
	return p.Stock, err
}

// CreateReview inserts a review. A second review by the same user fails
// with a unique violation.
func (r *ProductRepository) CreateReview(ctx context.Context, rv *models.Review) error {
	return r.db.WithContext(ctx).Create(rv).Error
}

// Ratings returns every rating given to a product.
func (r *ProductRepository) Ratings(ctx context.Context, productID uint) ([]int, error) {
	var ratings []int
	err := r.db.WithContext(ctx).Model(&models.Review{}).
		Where("product_id = ?", productID).
		Pluck("rating", &ratings).Error
	return ratings, err
}

// SetRating stores the recomputed review aggregate.
func (r *ProductRepository) SetRating(ctx context.Context, productID uint, avg float64, count int) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumns(map[string]any{"average_rating": avg, "num_reviews": count}).Error
}
