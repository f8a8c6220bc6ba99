// Package routes maps the storefront API onto the router.
package routes

import (
	"github.com/artisanmart/storefront/app/controllers"
	"github.com/artisanmart/storefront/app/services"
	"github.com/artisanmart/storefront/pkg/ctx"
	"github.com/artisanmart/storefront/pkg/middleware"
	"github.com/artisanmart/storefront/pkg/rbac"
	"github.com/artisanmart/storefront/pkg/router"
	"github.com/artisanmart/storefront/pkg/ws"
)

// Services are the domain services the controllers are built from.
type Services struct {
	Auth     *services.AuthService
	Catalog  *services.CatalogService
	Carts    *services.CartService
	Wishlist *services.WishlistService
	Checkout *services.CheckoutService
	Orders   *services.OrderService
	Restock  *services.RestockService
	LowStock *services.LowStockService
	Contact  *services.ContactService
	Exports  *services.ExportService
	Sessions *ws.Registry
}

// RegisterAPI mounts every /api route.
func RegisterAPI(r *router.Router, s Services) {
	var (
		authController     = controllers.NewAuthController(s.Auth)
		productController  = controllers.NewProductController(s.Catalog, s.Restock, s.Auth)
		cartController     = controllers.NewCartController(s.Carts)
		wishlistController = controllers.NewWishlistController(s.Wishlist)
		checkoutController = controllers.NewCheckoutController(s.Checkout)
		orderController    = controllers.NewOrderController(s.Orders)
		contactController  = controllers.NewContactController(s.Contact)
		lowStockController = controllers.NewLowStockController(s.LowStock)
		exportController   = controllers.NewExportController(s.Exports)
		sessionController  = controllers.NewSessionController(s.Sessions)
	)

	api := r.Group("/api")

	// Public
	api.Post("/auth/register", "auth.register", ctx.Wrap(authController.Register))
	api.Post("/auth/login", "auth.login", ctx.Wrap(authController.Login))
	api.Get("/products", "products.index", ctx.Wrap(productController.Index))
	api.Get("/products/{id}", "products.show", ctx.Wrap(productController.Show))
	api.Post("/products/{id}/notify", "products.notify", ctx.Wrap(productController.Notify))
	api.Post("/contact", "contact.store", ctx.Wrap(contactController.Store))
	api.Get("/ws", "ws.connect", ctx.Wrap(sessionController.Connect))

	// Signed-in buyers
	user := api.Group("", middleware.Authenticate)
	user.Get("/auth/me", "auth.me", ctx.Wrap(authController.Me))
	user.Post("/products/{id}/reviews", "products.reviews.store", ctx.Wrap(productController.Review))

	user.Get("/cart", "cart.show", ctx.Wrap(cartController.Show))
	user.Put("/cart", "cart.save", ctx.Wrap(cartController.Save))
	user.Delete("/cart", "cart.clear", ctx.Wrap(cartController.Clear))
	user.Post("/cart/items", "cart.items.add", ctx.Wrap(cartController.AddItem))
	user.Delete("/cart/items/{productId}", "cart.items.remove", ctx.Wrap(cartController.RemoveItem))

	user.Get("/wishlist", "wishlist.index", ctx.Wrap(wishlistController.Index))
	user.Post("/wishlist/{productId}", "wishlist.add", ctx.Wrap(wishlistController.Add))
	user.Delete("/wishlist/{productId}", "wishlist.remove", ctx.Wrap(wishlistController.Remove))

	user.Post("/checkout/verify", "checkout.verify", ctx.Wrap(checkoutController.Verify))
	user.Get("/orders", "orders.index", ctx.Wrap(orderController.Index))
	user.Get("/orders/{id}", "orders.show", ctx.Wrap(orderController.Show))

	// Admin
	admin := api.Group("/admin", middleware.Authenticate, rbac.Admin())
	admin.Post("/products", "admin.products.store", ctx.Wrap(productController.Store))
	admin.Get("/products/export", "admin.products.export", ctx.Wrap(productController.Export))
	admin.Post("/products/import", "admin.products.import", ctx.Wrap(productController.Import))
	admin.Put("/products/{id}", "admin.products.update", ctx.Wrap(productController.Update))
	admin.Delete("/products/{id}", "admin.products.destroy", ctx.Wrap(productController.Destroy))

	admin.Get("/orders", "admin.orders.index", ctx.Wrap(orderController.AdminIndex))
	admin.Put("/orders/{id}/status", "admin.orders.status", ctx.Wrap(orderController.UpdateStatus))

	admin.Get("/low-stock", "admin.lowstock.index", ctx.Wrap(lowStockController.Index))
	admin.Put("/low-stock/threshold", "admin.lowstock.threshold", ctx.Wrap(lowStockController.Threshold))

	admin.Get("/exports", "admin.exports.index", ctx.Wrap(exportController.Index))
	admin.Post("/exports", "admin.exports.store", ctx.Wrap(exportController.Store))
	admin.Put("/exports/{id}", "admin.exports.update", ctx.Wrap(exportController.Update))
	admin.Delete("/exports/{id}", "admin.exports.destroy", ctx.Wrap(exportController.Destroy))
	admin.Post("/exports/{id}/run", "admin.exports.run", ctx.Wrap(exportController.Run))
	admin.Get("/exports/{id}/runs", "admin.exports.runs", ctx.Wrap(exportController.Runs))
	admin.Post("/exports/runs/{runId}/retry", "admin.exports.retry", ctx.Wrap(exportController.Retry))

	admin.Get("/contacts", "admin.contacts.index", ctx.Wrap(contactController.Index))
}
