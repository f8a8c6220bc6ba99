package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog entry. Stock is only ever decremented through a
// conditional update so it cannot go below zero.
type Product struct {
	Model
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`
	Name          string          `gorm:"size:255;not null;index" json:"name"`
	Description   string          `gorm:"type:text" json:"description"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	Stock         int             `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	Category      string          `gorm:"size:100;index" json:"category"`
	ArtisanName   string          `gorm:"size:255" json:"artisanName"`
	Images        StringList      `gorm:"type:text" json:"images"`
	AverageRating float64         `gorm:"not null;default:0" json:"averageRating"`
	NumReviews    int             `gorm:"not null;default:0" json:"numReviews"`
	Reviews       []Review        `json:"reviews,omitempty"`
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool { return p.Stock > 0 }

// Review is one user's rating of a product.
type Review struct {
	Model
	ProductID uint   `gorm:"not null;uniqueIndex:idx_review_product_user" json:"productId"`
	UserID    uint   `gorm:"not null;uniqueIndex:idx_review_product_user" json:"userId"`
	Name      string `gorm:"size:255" json:"name"`
	Rating    int    `gorm:"not null" json:"rating"`
	Comment   string `gorm:"type:text" json:"comment"`
}
