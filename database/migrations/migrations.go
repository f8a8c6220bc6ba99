// Package migrations lists the storefront schema migrations in the order
// they run.
package migrations

import (
	"gorm.io/gorm"

	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/pkg/migration"
	"github.com/artisanmart/storefront/pkg/queue"
)

// All returns every migration, oldest first.
func All() []migration.Entry {
	return []migration.Entry{
		{Name: "20260101000000_create_users_table", Migration: tables(&models.User{})},
		{Name: "20260101000001_create_products_tables", Migration: tables(&models.Product{}, &models.Review{})},
		{Name: "20260101000002_create_carts_tables", Migration: tables(&models.Cart{}, &models.CartItem{}, &models.WishlistItem{})},
		{Name: "20260101000003_create_orders_tables", Migration: tables(&models.Order{}, &models.OrderItem{})},
		{Name: "20260101000004_create_stock_tables", Migration: tables(&models.StockNotification{}, &models.LowStockAlert{}, &models.Setting{})},
		{Name: "20260101000005_create_exports_tables", Migration: tables(&models.ScheduledExport{}, &models.ScheduledExportRun{})},
		{Name: "20260101000006_create_contact_messages_table", Migration: tables(&models.ContactMessage{})},
		{Name: "20260101000007_create_failed_jobs_table", Migration: tables(&queue.FailedJobRecord{})},
	}
}

// tables creates the given models going up and drops them in reverse going
// down.
func tables(dst ...any) migration.Func {
	return migration.Func{
		UpFn: func(db *gorm.DB) error {
			return db.AutoMigrate(dst...)
		},
		DownFn: func(db *gorm.DB) error {
			for i := len(dst) - 1; i >= 0; i-- {
				if err := db.Migrator().DropTable(dst[i]); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
