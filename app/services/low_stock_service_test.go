package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/app/services"
	"github.com/artisanmart/storefront/pkg/mail"
	"github.com/artisanmart/storefront/pkg/notification"
	"github.com/artisanmart/storefront/pkg/orm"
)

func setStock(t *testing.T, db *gorm.DB, id uint, stock int) {
	t.Helper()
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", id).Update("stock", stock).Error)
}

func alertFor(t *testing.T, db *gorm.DB, productID uint) (models.LowStockAlert, bool) {
	t.Helper()
	var alerts []models.LowStockAlert
	require.NoError(t, db.Where("product_id = ?", productID).Find(&alerts).Error)
	if len(alerts) == 0 {
		return models.LowStockAlert{}, false
	}
	return alerts[0], true
}

func TestLowStockAlertLifecycle(t *testing.T) {
	db := newTestDB(t)
	p := seedProduct(t, db, "Terracotta planter", "22.00", 10)
	rec := &mail.Recorder{}
	svc := services.NewLowStockService(db, notification.New(rec, ""), "admin@example.com", 5)

	active, err := svc.Evaluate(bg, p.ID)
	require.NoError(t, err)
	assert.False(t, active)

	setStock(t, db, p.ID, 4)
	active, err = svc.Evaluate(bg, p.ID)
	require.NoError(t, err)
	assert.True(t, active)
	alert, ok := alertFor(t, db, p.ID)
	require.True(t, ok)
	assert.Equal(t, 4, alert.Stock)
	assert.Equal(t, 5, alert.Threshold)
	require.Len(t, rec.SentTo("admin@example.com"), 1)

	// A second evaluation refreshes the row without mailing again.
	setStock(t, db, p.ID, 2)
	_, err = svc.Evaluate(bg, p.ID)
	require.NoError(t, err)
	alert, ok = alertFor(t, db, p.ID)
	require.True(t, ok)
	assert.Equal(t, 2, alert.Stock)
	assert.Len(t, rec.SentTo("admin@example.com"), 1)

	var count int64
	require.NoError(t, db.Model(&models.LowStockAlert{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	setStock(t, db, p.ID, 6)
	active, err = svc.Evaluate(bg, p.ID)
	require.NoError(t, err)
	assert.False(t, active)
	_, ok = alertFor(t, db, p.ID)
	assert.False(t, ok)
}

func TestLowStockAtThresholdAlerts(t *testing.T) {
	db := newTestDB(t)
	p := seedProduct(t, db, "Jute rug", "80.00", 5)
	svc := services.NewLowStockService(db, nil, "", 5)

	active, err := svc.Evaluate(bg, p.ID)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestSetThresholdReevaluatesCatalog(t *testing.T) {
	db := newTestDB(t)
	a := seedProduct(t, db, "A", "1.00", 8)
	b := seedProduct(t, db, "B", "1.00", 3)
	svc := services.NewLowStockService(db, nil, "", 5)

	_, err := svc.Evaluate(bg, b.ID)
	require.NoError(t, err)

	require.NoError(t, svc.SetThreshold(bg, 10))
	n, err := svc.Threshold(bg)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	alerts, total, err := svc.List(bg, orm.Page{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, alerts, 2)
	assert.Equal(t, b.ID, alerts[0].ProductID, "lowest stock first")
	assert.Equal(t, a.ID, alerts[1].ProductID)

	require.NoError(t, svc.SetThreshold(bg, 2))
	_, total, err = svc.List(bg, orm.Page{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Zero(t, total)

	assert.Error(t, svc.SetThreshold(bg, -1))
}

func TestEvaluateMissingProductClearsAlert(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.LowStockAlert{ProductID: 77, ProductName: "gone", Stock: 1, Threshold: 5}).Error)
	svc := services.NewLowStockService(db, nil, "", 5)

	active, err := svc.Evaluate(bg, 77)
	require.NoError(t, err)
	assert.False(t, active)
	_, ok := alertFor(t, db, 77)
	assert.False(t, ok)
}

func TestSweepCatchesStockChangedOutsideTheApp(t *testing.T) {
	db := newTestDB(t)
	a := seedProduct(t, db, "A", "1.00", 8)
	b := seedProduct(t, db, "B", "1.00", 9)
	svc := services.NewLowStockService(db, nil, "", 5)

	setStock(t, db, a.ID, 2)
	setStock(t, db, b.ID, 4)

	active, err := svc.Sweep(bg)
	require.NoError(t, err)
	assert.Equal(t, 2, active)

	setStock(t, db, b.ID, 20)
	active, err = svc.Sweep(bg)
	require.NoError(t, err)
	assert.Equal(t, 1, active)
	_, ok := alertFor(t, db, b.ID)
	assert.False(t, ok)
}
