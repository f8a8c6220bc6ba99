package models

// All lists every model in creation order.
func All() []any {
	return []any{
		&User{},
		&Product{},
		&Review{},
		&Cart{},
		&CartItem{},
		&WishlistItem{},
		&Order{},
		&OrderItem{},
		&StockNotification{},
		&LowStockAlert{},
		&Setting{},
		&ScheduledExport{},
		&ScheduledExportRun{},
		&ContactMessage{},
	}
}
