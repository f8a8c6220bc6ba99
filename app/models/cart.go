package models

import "github.com/shopspring/decimal"

const (
	MaxCartItems    = 50
	MaxItemQuantity = 100
)

// Cart belongs to exactly one user.
type Cart struct {
	Model
	UserID uint       `gorm:"not null;uniqueIndex" json:"userId"`
	Items  []CartItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
}

// CartItem keeps the name and price seen when the item was added.
type CartItem struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	CartID    uint            `gorm:"not null;index" json:"-"`
	ProductID uint            `gorm:"not null" json:"productId"`
	Name      string          `gorm:"size:255" json:"name"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Image     string          `gorm:"size:512" json:"image,omitempty"`
	Quantity  int             `gorm:"not null" json:"quantity"`
}

// Subtotal is the snapshot price times quantity.
func (c Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}
