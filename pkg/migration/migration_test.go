package migration_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/artisanmart/storefront/pkg/database"
	"github.com/artisanmart/storefront/pkg/migration"
)

type widget struct {
	ID   uint
	Name string
}

type gadget struct {
	ID uint
}

func table(model any, name string) migration.Func {
	return migration.Func{
		UpFn:   func(db *gorm.DB) error { return db.AutoMigrate(model) },
		DownFn: func(db *gorm.DB) error { return db.Migrator().DropTable(name) },
	}
}

func TestRunRollbackStatus(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	ctx := context.Background()

	first := []migration.Entry{{Name: "20260101000000_create_widgets", Migration: table(&widget{}, "widgets")}}
	ran, err := migration.New(db, first).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"20260101000000_create_widgets"}, ran)

	all := append(first, migration.Entry{Name: "20260102000000_create_gadgets", Migration: table(&gadget{}, "gadgets")})
	r := migration.New(db, all)
	ran, err = r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"20260102000000_create_gadgets"}, ran)

	ran, err = r.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, ran)

	status, err := r.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status, 2)
	assert.Equal(t, 1, status[0].Batch)
	assert.Equal(t, 2, status[1].Batch)

	reverted, err := r.Rollback(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"20260102000000_create_gadgets"}, reverted)
	assert.False(t, db.Migrator().HasTable("gadgets"))
	assert.True(t, db.Migrator().HasTable("widgets"))

	status, err = r.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status[1].Ran)
}

func TestDuplicateNamesRejected(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	m := table(&widget{}, "widgets")
	_, err = migration.New(db, []migration.Entry{{Name: "a", Migration: m}, {Name: "a", Migration: m}}).Run(context.Background())
	assert.ErrorIs(t, err, migration.ErrDuplicateName)
}
