package services_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/app/services"
	"github.com/artisanmart/storefront/pkg/apperr"
)

func TestCartSaveSnapshotsAndMerges(t *testing.T) {
	db := newTestDB(t)
	mug := seedProduct(t, db, "Mug", "10.00", 5)
	bowl := seedProduct(t, db, "Bowl", "15.50", 2)
	svc := services.NewCartService(db)

	cart, err := svc.Save(bg, 1, []services.CartItemInput{
		{ProductID: mug.ID, Quantity: 2},
		{ProductID: bowl.ID, Quantity: 1},
		{ProductID: mug.ID, Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, "Mug", cart.Items[0].Name)
	assert.Equal(t, "45.50", cart.Subtotal().StringFixed(2))

	got, err := svc.Get(bg, 1)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
}

func TestCartRejectsMoreThanStock(t *testing.T) {
	db := newTestDB(t)
	bowl := seedProduct(t, db, "Bowl", "15.50", 2)
	svc := services.NewCartService(db)

	_, err := svc.Save(bg, 1, []services.CartItemInput{{ProductID: bowl.ID, Quantity: 3}})
	assert.ErrorIs(t, err, services.ErrCartItemStock)
	assert.Equal(t, "Only 2 of Bowl left in stock", apperr.Message(err))

	_, err = svc.Save(bg, 1, []services.CartItemInput{{ProductID: 999, Quantity: 1}})
	assert.ErrorIs(t, err, services.ErrProductNotFound)

	_, err = svc.Save(bg, 1, []services.CartItemInput{{ProductID: bowl.ID, Quantity: 0}})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCartItemLimit(t *testing.T) {
	db := newTestDB(t)
	svc := services.NewCartService(db)

	items := make([]services.CartItemInput, 51)
	for i := range items {
		items[i] = services.CartItemInput{ProductID: uint(i + 1), Quantity: 1}
	}
	_, err := svc.Save(bg, 1, items)
	assert.ErrorIs(t, err, services.ErrCartTooLarge)
}

func TestCartAddRemoveClear(t *testing.T) {
	db := newTestDB(t)
	mug := seedProduct(t, db, "Mug", "10.00", 5)
	bowl := seedProduct(t, db, "Bowl", "15.50", 2)
	svc := services.NewCartService(db)

	_, err := svc.AddItem(bg, 7, services.CartItemInput{ProductID: mug.ID, Quantity: 1})
	require.NoError(t, err)
	cart, err := svc.AddItem(bg, 7, services.CartItemInput{ProductID: bowl.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)

	cart, err = svc.RemoveItem(bg, 7, mug.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, bowl.ID, cart.Items[0].ProductID)

	_, err = svc.RemoveItem(bg, 7, mug.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	require.NoError(t, svc.Clear(bg, 7))
	cart, err = svc.Get(bg, 7)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCartKeepsAddTimeSnapshot(t *testing.T) {
	db := newTestDB(t)
	mug := seedProduct(t, db, "Mug", "10.00", 5)
	bowl := seedProduct(t, db, "Bowl", "15.50", 2)
	svc := services.NewCartService(db)

	_, err := svc.AddItem(bg, 3, services.CartItemInput{ProductID: mug.ID, Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", mug.ID).
		Updates(map[string]any{"price": decimal.RequireFromString("12.00"), "name": "Big Mug"}).Error)

	cart, err := svc.AddItem(bg, 3, services.CartItemInput{ProductID: bowl.ID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, "Mug", cart.Items[0].Name)
	assert.Equal(t, "10.00", cart.Items[0].Price.StringFixed(2))

	cart, err = svc.AddItem(bg, 3, services.CartItemInput{ProductID: mug.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, "10.00", cart.Items[0].Price.StringFixed(2))

	cart, err = svc.RemoveItem(bg, 3, bowl.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "10.00", cart.Items[0].Price.StringFixed(2))

	require.NoError(t, svc.Clear(bg, 3))
	cart, err = svc.AddItem(bg, 3, services.CartItemInput{ProductID: mug.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, "Big Mug", cart.Items[0].Name, "a fresh line takes the current snapshot")
	assert.Equal(t, "12.00", cart.Items[0].Price.StringFixed(2))
}
