package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/pkg/orm"
)

type ContactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) Create(ctx context.Context, m *models.ContactMessage) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *ContactRepository) List(ctx context.Context, p orm.Page) ([]models.ContactMessage, int64, error) {
	var msgs []models.ContactMessage
	total, err := orm.Paginate(ctx, r.db.Model(&models.ContactMessage{}), p, "created_at DESC, id DESC", &msgs)
	return msgs, total, err
}
