package app_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/pkg/crypt"
	"github.com/artisanmart/storefront/pkg/mail"
)

func checkoutBody(orderID, paymentID, amount string, p models.Product, qty int) map[string]any {
	return map[string]any{
		"orderId":   orderID,
		"paymentId": paymentID,
		"signature": crypt.Sign(paymentSecret, orderID, paymentID),
		"items": []map[string]any{
			{"productId": p.ID, "name": p.Name, "price": p.Price.StringFixed(2), "quantity": qty},
		},
		"amount": amount,
		"shippingAddress": map[string]any{
			"fullName": "Meera Shah", "address": "4 Loom Street", "city": "Ahmedabad",
			"postalCode": "380001", "country": "IN",
		},
	}
}

func TestCheckoutOverHTTP(t *testing.T) {
	h := newHarness(t)
	buyer := h.buyer(t, "meera@shop.test")
	vase := h.product(t, "Vase", "24.50", 2)

	code, body := h.do(t, http.MethodPut, "/api/cart", buyer, map[string]any{
		"items": []map[string]any{{"productId": vase.ID, "quantity": 1}},
	})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "24.50", body["subtotal"])

	t.Run("amount mismatch", func(t *testing.T) {
		code, body := h.do(t, http.MethodPost, "/api/checkout/verify", buyer,
			checkoutBody("order_a", "pay_a", "10.00", vase, 1))
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, false, body["success"])
		assert.Contains(t, body["message"], "Amount mismatch")
	})

	t.Run("missing shipping field", func(t *testing.T) {
		req := checkoutBody("order_b", "pay_b", "24.50", vase, 1)
		delete(req["shippingAddress"].(map[string]any), "city")
		code, body := h.do(t, http.MethodPost, "/api/checkout/verify", buyer, req)
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		errs := body["errors"].(map[string]any)
		assert.Contains(t, errs, "shippingAddress.city")
	})

	t.Run("invalid item", func(t *testing.T) {
		req := checkoutBody("order_c", "pay_c", "24.50", vase, 1)
		req["items"].([]map[string]any)[0]["quantity"] = 0
		code, body := h.do(t, http.MethodPost, "/api/checkout/verify", buyer, req)
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Contains(t, body["errors"].(map[string]any), "items.0.quantity")
	})

	code, body = h.do(t, http.MethodPost, "/api/checkout/verify", buyer,
		checkoutBody("order_1", "pay_1", "24.50", vase, 1))
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Order placed", body["message"])
	order := body["order"].(map[string]any)
	assert.True(t, decimal.RequireFromString(order["amountPaid"].(string)).Equal(decimal.RequireFromString("24.50")))
	assert.Equal(t, string(models.OrderProcessing), order["status"])
	require.Len(t, order["items"], 1)
	orderID := int(order["id"].(float64))

	code, body = h.do(t, http.MethodGet, "/api/cart", buyer, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["items"], "cart cleared by checkout")

	code, body = h.do(t, http.MethodPost, "/api/checkout/verify", buyer,
		checkoutBody("order_1", "pay_1", "24.50", vase, 1))
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Payment already processed", body["message"])

	code, body = h.do(t, http.MethodPost, "/api/checkout/verify", buyer,
		checkoutBody("order_2", "pay_2", "49.00", vase, 2))
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Insufficient stock for Vase", body["message"])

	var left models.Product
	require.NoError(t, h.app.DB.First(&left, vase.ID).Error)
	assert.Equal(t, 1, left.Stock)

	code, body = h.do(t, http.MethodGet, "/api/orders", buyer, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["pagination"].(map[string]any)["total"])

	code, _ = h.do(t, http.MethodGet, "/api/orders/"+itoa(orderID), h.buyer(t, "other@shop.test"), nil)
	assert.Equal(t, http.StatusNotFound, code, "orders are private to their buyer")

	code, body = h.do(t, http.MethodPut, "/api/admin/orders/"+itoa(orderID)+"/status", h.admin,
		map[string]string{"status": string(models.OrderShipped)})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, string(models.OrderShipped), body["order"].(map[string]any)["status"])

	code, _ = h.do(t, http.MethodPut, "/api/admin/orders/999/status", h.admin,
		map[string]string{"status": string(models.OrderShipped)})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRestockSubscriptionSurvivesFailedDelivery(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	bowl := h.product(t, "Bowl", "18.00", 0)

	sub, err := h.app.Services.Restock.Subscribe(ctx, bowl.ID, "fan@shop.test", nil)
	require.NoError(t, err)
	require.NoError(t, h.app.DB.Model(&models.Product{}).Where("id = ?", bowl.ID).Update("stock", 3).Error)

	h.mails.Fail = func(*mail.Message) error { return errors.New("550 mailbox unavailable") }
	sent, err := h.app.Services.Restock.NotifyRestocked(ctx, bowl.ID)
	assert.Error(t, err)
	assert.Zero(t, sent)

	var stored models.StockNotification
	require.NoError(t, h.app.DB.First(&stored, sub.ID).Error)
	assert.False(t, stored.Notified, "undelivered subscription stays pending")

	h.mails.Fail = nil
	sent, err = h.app.Services.Restock.NotifyRestocked(ctx, bowl.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, h.mails.Sent(), 1)
	assert.Equal(t, []string{"fan@shop.test"}, h.mails.Sent()[0].Recipients())

	require.NoError(t, h.app.DB.First(&stored, sub.ID).Error)
	assert.True(t, stored.Notified)
}
