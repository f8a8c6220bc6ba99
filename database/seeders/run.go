// Package seeders fills a fresh database with an admin account and a small
// sample catalog. Every seeder is idempotent.
package seeders

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/artisanmart/storefront/pkg/logger"
)

// SeederFunc inserts rows. It must be safe to run twice.
type SeederFunc func(ctx context.Context, db *gorm.DB) error

type seederEntry struct {
	name string
	fn   SeederFunc
}

// registered in run order
var entries = []seederEntry{
	{name: "admin", fn: SeedAdmin},
	{name: "products", fn: SeedProducts},
}

// Names lists the seeders in run order.
func Names() []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.name)
	}
	return out
}

// RunAll executes every seeder in order and stops on the first error.
func RunAll(ctx context.Context, db *gorm.DB) error {
	for _, e := range entries {
		logger.Info("seeder: running", "name", e.name)
		if err := e.fn(ctx, db.WithContext(ctx)); err != nil {
			return fmt.Errorf("seeder %q: %w", e.name, err)
		}
	}
	return nil
}
