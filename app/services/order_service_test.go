package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/app/services"
	"github.com/artisanmart/storefront/pkg/apperr"
	"github.com/artisanmart/storefront/pkg/orm"
)

func TestOrderTransitions(t *testing.T) {
	cases := []struct {
		from, to models.OrderStatus
		ok       bool
	}{
		{models.OrderProcessing, models.OrderShipped, true},
		{models.OrderShipped, models.OrderDelivered, true},
		{models.OrderPending, models.OrderCancelled, true},
		{models.OrderShipped, models.OrderProcessing, true},
		{models.OrderProcessing, models.OrderProcessing, false},
		{models.OrderDelivered, models.OrderCancelled, false},
		{models.OrderCancelled, models.OrderProcessing, false},
		{models.OrderProcessing, "Lost", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCancelRestoresStockAndFiresEvents(t *testing.T) {
	db := newTestDB(t)
	bus := &recordingBus{}
	buyer := seedUser(t, db, "buyer@example.com", models.RoleUser)
	lamp := seedProduct(t, db, "Brass lamp", "60.00", 2)

	order, err := newCheckout(db, nil).Place(bg, buyer.ID, signedRequest("gw_1", "pay_1", "120.00", line(lamp, 2)))
	require.NoError(t, err)
	require.Equal(t, 0, stockOf(t, db, lamp.ID))

	svc := services.NewOrderService(db, bus)
	updated, err := svc.UpdateStatus(bg, order.ID, models.OrderCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, updated.Status)
	assert.Equal(t, 2, stockOf(t, db, lamp.ID))

	status := bus.Named(services.EventOrderStatus)
	require.Len(t, status, 1)
	change := status[0].(services.OrderStatusChanged)
	assert.Equal(t, buyer.ID, change.UserID)
	assert.Equal(t, models.OrderProcessing, change.From)
	assert.Equal(t, models.OrderCancelled, change.To)
	assert.Len(t, bus.Named(services.EventProductRestocked), 1)

	_, err = svc.UpdateStatus(bg, order.ID, models.OrderProcessing)
	assert.ErrorIs(t, err, services.ErrInvalidTransition)
	assert.Equal(t, 2, stockOf(t, db, lamp.ID), "final orders never restock twice")
}

func TestDeliveredSetsTimestamp(t *testing.T) {
	db := newTestDB(t)
	buyer := seedUser(t, db, "buyer@example.com", models.RoleUser)
	mug := seedProduct(t, db, "Mug", "10.00", 5)
	order, err := newCheckout(db, nil).Place(bg, buyer.ID, signedRequest("gw_2", "pay_2", "10.00", line(mug, 1)))
	require.NoError(t, err)

	svc := services.NewOrderService(db, nil)
	_, err = svc.UpdateStatus(bg, order.ID, models.OrderShipped)
	require.NoError(t, err)
	delivered, err := svc.UpdateStatus(bg, order.ID, models.OrderDelivered)
	require.NoError(t, err)
	assert.NotNil(t, delivered.DeliveredAt)

	var stored models.Order
	require.NoError(t, db.First(&stored, order.ID).Error)
	assert.NotNil(t, stored.DeliveredAt)
	assert.Equal(t, 4, stockOf(t, db, mug.ID))

	_, err = svc.UpdateStatus(bg, 9999, models.OrderShipped)
	assert.ErrorIs(t, err, services.ErrOrderNotFound)
	_, err = svc.UpdateStatus(bg, order.ID, "Lost")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestBuyersOnlySeeTheirOrders(t *testing.T) {
	db := newTestDB(t)
	a := seedUser(t, db, "a@example.com", models.RoleUser)
	b := seedUser(t, db, "b@example.com", models.RoleUser)
	mug := seedProduct(t, db, "Mug", "10.00", 5)

	checkout := newCheckout(db, nil)
	order, err := checkout.Place(bg, a.ID, signedRequest("gw_3", "pay_3", "10.00", line(mug, 1)))
	require.NoError(t, err)
	_, err = checkout.Place(bg, b.ID, signedRequest("gw_4", "pay_4", "20.00", line(mug, 2)))
	require.NoError(t, err)

	svc := services.NewOrderService(db, nil)
	mine, total, err := svc.ListForUser(bg, a.ID, orm.Page{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, mine, 1)
	require.Len(t, mine[0].Items, 1)

	_, err = svc.ShowForUser(bg, order.ID, b.ID)
	assert.ErrorIs(t, err, services.ErrOrderNotFound)

	all, total, err := svc.List(bg, models.OrderProcessing, orm.Page{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)
}
