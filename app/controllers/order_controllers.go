package controllers

import (
	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/app/services"
	"github.com/artisanmart/storefront/pkg/ctx"
	"github.com/artisanmart/storefront/pkg/response"
)

type CheckoutController struct {
	checkout *services.CheckoutService
}

func NewCheckoutController(checkout *services.CheckoutService) *CheckoutController {
	return &CheckoutController{checkout: checkout}
}

// Verify checks the gateway's payment proof and places the order.
func (cc *CheckoutController) Verify(c *ctx.Context) {
	var req services.CheckoutRequest
	if !c.BindJSON(&req) {
		return
	}
	order, err := cc.checkout.Place(c.Context(), c.UserID(), req)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created("Order placed", response.Payload{"order": order})
}

type OrderController struct {
	orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

func (oc *OrderController) Index(c *ctx.Context) {
	p := pageOf(c)
	orders, total, err := oc.orders.ListForUser(c.Context(), c.UserID(), p)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("Orders fetched", response.Payload{"orders": orders, "pagination": paginated(p, total)})
}

func (oc *OrderController) Show(c *ctx.Context) {
	id, ok := c.ParamID("id")
	if !ok {
		return
	}
	order, err := oc.orders.ShowForUser(c.Context(), id, c.UserID())
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("Order fetched", response.Payload{"order": order})
}

func (oc *OrderController) AdminIndex(c *ctx.Context) {
	p := pageOf(c)
	orders, total, err := oc.orders.List(c.Context(), models.OrderStatus(c.Query("status")), p)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("Orders fetched", response.Payload{"orders": orders, "pagination": paginated(p, total)})
}

func (oc *OrderController) UpdateStatus(c *ctx.Context) {
	id, ok := c.ParamID("id")
	if !ok {
		return
	}
	var in services.StatusInput
	if !c.BindJSON(&in) {
		return
	}
	order, err := oc.orders.UpdateStatus(c.Context(), id, in.Status)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("Order status updated", response.Payload{"order": order})
}
