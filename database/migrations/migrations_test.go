package migrations_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanmart/storefront/database/migrations"
	"github.com/artisanmart/storefront/pkg/database"
	"github.com/artisanmart/storefront/pkg/migration"
)

func TestMigrateUpAndDown(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	ctx := context.Background()

	r := migration.New(db, migrations.All())
	ran, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Len(t, ran, len(migrations.All()))
	for _, table := range []string{"users", "products", "reviews", "orders", "order_items", "scheduled_exports", "failed_jobs"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	reverted, err := r.Rollback(ctx)
	require.NoError(t, err)
	assert.Len(t, reverted, len(migrations.All()))
	assert.False(t, db.Migrator().HasTable("users"))
	assert.False(t, db.Migrator().HasTable("failed_jobs"))
}
