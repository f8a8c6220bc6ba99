package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "Pending"
	OrderProcessing OrderStatus = "Processing"
	OrderShipped    OrderStatus = "Shipped"
	OrderDelivered  OrderStatus = "Delivered"
	OrderCancelled  OrderStatus = "Cancelled"
)

var OrderStatuses = []OrderStatus{OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled}

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Final statuses accept no further transitions.
func (s OrderStatus) Final() bool { return s == OrderDelivered || s == OrderCancelled }

// CanTransitionTo reports whether an admin may move an order from s to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return next.Valid() && !s.Final() && s != next
}

type Address struct {
	FullName   string `gorm:"size:255" json:"fullName" validate:"required,max=255"`
	Line1      string `gorm:"size:255" json:"address" validate:"required,max=255"`
	Line2      string `gorm:"size:255" json:"address2,omitempty" validate:"max=255"`
	City       string `gorm:"size:100" json:"city" validate:"required,max=100"`
	State      string `gorm:"size:100" json:"state,omitempty" validate:"max=100"`
	PostalCode string `gorm:"size:20" json:"postalCode" validate:"required,max=20"`
	Country    string `gorm:"size:100" json:"country" validate:"required,max=100"`
	Phone      string `gorm:"size:30" json:"phone,omitempty" validate:"max=30"`
}

// Order is written once per successful checkout. Items are copies of what
// was bought and are never re-priced.
type Order struct {
	Model
	UserID          uint            `gorm:"not null;index" json:"userId"`
	Reference       string          `gorm:"size:40;not null;uniqueIndex" json:"reference"`
	Items           []OrderItem     `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	PaymentOrderID  string          `gorm:"size:100;not null" json:"paymentOrderId"`
	PaymentID       string          `gorm:"size:100;not null;uniqueIndex" json:"paymentId"`
	PaymentSig      string          `gorm:"size:128;not null" json:"-"`
	ShippingAddress Address         `gorm:"embedded;embeddedPrefix:shipping_" json:"shippingAddress"`
	AmountPaid      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amountPaid"`
	Status          OrderStatus     `gorm:"size:20;not null;index" json:"status"`
	IsPaid          bool            `gorm:"not null" json:"isPaid"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
	User            *User           `json:"user,omitempty"`
}

type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	OrderID   uint            `gorm:"not null;index" json:"-"`
	ProductID uint            `gorm:"not null;index" json:"productId"`
	Name      string          `gorm:"size:255;not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Quantity  int             `gorm:"not null" json:"quantity"`
}

// LineTotal is price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
