package services_test

import (
	"context"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/pkg/database"
	"github.com/artisanmart/storefront/pkg/queue"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	require.NoError(t, db.AutoMigrate(&queue.FailedJobRecord{}))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// newSharedDB opens a file-backed sqlite database with several pooled
// connections, so concurrent transactions contend in the database rather
// than queueing for a single connection.
func newSharedDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "shop.db") + "?_busy_timeout=10000&_journal_mode=WAL&_txlock=immediate"
	db, err := database.Open("sqlite", dsn, database.PoolOptions{MaxOpen: 8, MaxIdle: 8})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string, stock int) models.Product {
	t.Helper()
	p := models.Product{
		Name:        name,
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
		Category:    "Pottery",
		ArtisanName: "Asha",
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func seedUser(t *testing.T, db *gorm.DB, email, role string) models.User {
	t.Helper()
	u := models.User{Name: "Test " + role, Email: email, Password: "x", Role: role}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func stockOf(t *testing.T, db *gorm.DB, id uint) int {
	t.Helper()
	var p models.Product
	require.NoError(t, db.Unscoped().First(&p, id).Error)
	return p.Stock
}

type fired struct {
	Event   string
	Payload any
}

// recordingBus captures fired events instead of running listeners.
type recordingBus struct {
	mu     sync.Mutex
	events []fired
}

func (b *recordingBus) FireAsync(event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, fired{Event: event, Payload: payload})
}

func (b *recordingBus) Named(event string) []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []any
	for _, e := range b.events {
		if e.Event == event {
			out = append(out, e.Payload)
		}
	}
	return out
}

var bg = context.Background()

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }
