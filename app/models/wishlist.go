package models

type WishlistItem struct {
	Model
	UserID    uint    `gorm:"not null;uniqueIndex:idx_wishlist_user_product" json:"userId"`
	ProductID uint    `gorm:"not null;uniqueIndex:idx_wishlist_user_product" json:"productId"`
	Product   Product `json:"product"`
}
