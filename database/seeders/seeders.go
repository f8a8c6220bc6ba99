package seeders

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/config"
	"github.com/artisanmart/storefront/pkg/auth"
)

// SeedAdmin creates the admin account from ADMIN_EMAIL and
// SEED_ADMIN_PASSWORD unless it already exists.
func SeedAdmin(ctx context.Context, db *gorm.DB) error {
	email := strings.ToLower(strings.TrimSpace(config.AdminEmail()))
	if email == "" {
		email = "admin@artisanmart.test"
	}
	hash, err := auth.HashPassword(config.Get("SEED_ADMIN_PASSWORD", "password"))
	if err != nil {
		return err
	}
	admin := models.User{Name: "Store Admin", Email: email, Password: hash, Role: models.RoleAdmin}
	return db.Where(models.User{Email: email}).FirstOrCreate(&admin).Error
}

var sampleProducts = []models.Product{
	{Name: "Hand-thrown Tea Bowl", Description: "Stoneware bowl with an ash glaze.", Price: decimal.RequireFromString("24.00"), Stock: 12, Category: "Pottery", ArtisanName: "Asha Rao"},
	{Name: "Indigo Block-print Scarf", Description: "Cotton scarf printed with carved teak blocks.", Price: decimal.RequireFromString("38.50"), Stock: 3, Category: "Textiles", ArtisanName: "Meera Joshi"},
	{Name: "Walnut Serving Board", Description: "Single-piece walnut board finished with beeswax.", Price: decimal.RequireFromString("55.00"), Stock: 7, Category: "Woodwork", ArtisanName: "Tomas Ek"},
	{Name: "Brass Bell Chime", Description: "Sand-cast brass chime on a jute cord.", Price: decimal.RequireFromString("19.99"), Stock: 0, Category: "Metalwork", ArtisanName: "Ravi Kumar"},
	{Name: "Woven Seagrass Basket", Description: "Coiled seagrass basket with handles.", Price: decimal.RequireFromString("29.00"), Stock: 20, Category: "Basketry", ArtisanName: "Lan Nguyen"},
}

// SeedProducts adds the sample catalog, matched by name.
func SeedProducts(ctx context.Context, db *gorm.DB) error {
	for _, p := range sampleProducts {
		p := p
		if err := db.Where(models.Product{Name: p.Name}).Attrs(p).FirstOrCreate(&p).Error; err != nil {
			return err
		}
	}
	return nil
}
