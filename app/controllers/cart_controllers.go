package controllers

import (
	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/app/services"
	"github.com/artisanmart/storefront/pkg/ctx"
	"github.com/artisanmart/storefront/pkg/response"
)

type CartController struct {
	carts *services.CartService
}

func NewCartController(carts *services.CartService) *CartController {
	return &CartController{carts: carts}
}

func cartPayload(cart models.Cart) response.Payload {
	items := cart.Items
	if items == nil {
		items = []models.CartItem{}
	}
	return response.Payload{"items": items, "subtotal": cart.Subtotal().StringFixed(2)}
}

func (cc *CartController) Show(c *ctx.Context) {
	cart, err := cc.carts.Get(c.Context(), c.UserID())
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("Cart fetched", cartPayload(cart))
}

func (cc *CartController) Save(c *ctx.Context) {
	var in services.CartInput
	if !c.BindJSON(&in) {
		return
	}
	cart, err := cc.carts.Save(c.Context(), c.UserID(), in.Items)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("Cart saved", cartPayload(cart))
}

func (cc *CartController) AddItem(c *ctx.Context) {
	var in services.CartItemInput
	if !c.BindJSON(&in) {
		return
	}
	cart, err := cc.carts.AddItem(c.Context(), c.UserID(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("Item added", cartPayload(cart))
}

func (cc *CartController) RemoveItem(c *ctx.Context) {
	id, ok := c.ParamID("productId")
	if !ok {
		return
	}
	cart, err := cc.carts.RemoveItem(c.Context(), c.UserID(), id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("Item removed", cartPayload(cart))
}

func (cc *CartController) Clear(c *ctx.Context) {
	if err := cc.carts.Clear(c.Context(), c.UserID()); err != nil {
		c.Fail(err)
		return
	}
	c.OK("Cart cleared", cartPayload(models.Cart{}))
}

type WishlistController struct {
	wishlist *services.WishlistService
}

func NewWishlistController(wishlist *services.WishlistService) *WishlistController {
	return &WishlistController{wishlist: wishlist}
}

func (wc *WishlistController) Index(c *ctx.Context) {
	items, err := wc.wishlist.List(c.Context(), c.UserID())
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("Wishlist fetched", response.Payload{"items": items})
}

func (wc *WishlistController) Add(c *ctx.Context) {
	id, ok := c.ParamID("productId")
	if !ok {
		return
	}
	item, err := wc.wishlist.Add(c.Context(), c.UserID(), id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created("Added to wishlist", response.Payload{"item": item})
}

func (wc *WishlistController) Remove(c *ctx.Context) {
	id, ok := c.ParamID("productId")
	if !ok {
		return
	}
	if err := wc.wishlist.Remove(c.Context(), c.UserID(), id); err != nil {
		c.Fail(err)
		return
	}
	c.OK("Removed from wishlist", nil)
}
