package models

import "time"

// StockNotification asks to be told when a product is back in stock.
// Rows are hard-deleted so (product, email) stays unique.
type StockNotification struct {
	Model
	ProductID  uint       `gorm:"not null;uniqueIndex:idx_stock_notification" json:"productId"`
	Email      string     `gorm:"size:255;not null;uniqueIndex:idx_stock_notification" json:"email"`
	UserID     *uint      `gorm:"index" json:"userId,omitempty"`
	Notified   bool       `gorm:"not null;default:false;index" json:"notified"`
	NotifiedAt *time.Time `json:"notifiedAt,omitempty"`
}

// LowStockAlert is the single active alert for a product at or below the
// threshold.
type LowStockAlert struct {
	Model
	ProductID   uint   `gorm:"not null;uniqueIndex" json:"productId"`
	ProductName string `gorm:"size:255" json:"productName"`
	Stock       int    `gorm:"not null" json:"stock"`
	Threshold   int    `gorm:"not null" json:"threshold"`
}

// Setting is an admin-editable key/value pair.
type Setting struct {
	Key       string    `gorm:"primaryKey;column:setting_key;size:100" json:"key"`
	Value     string    `gorm:"size:255;not null" json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const SettingLowStockThreshold = "low_stock_threshold"
