package router

import (
	"github.com/gamestore/storefront/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// Handlers are the storefront's HTTP handlers
type Handlers struct {
	Cart     *handler.CartHandler
	Badge    *handler.BadgeHandler
	Checkout *handler.CheckoutHandler
	Catalog  *handler.CatalogHandler
	Admin    *handler.AdminHandler
	System   *handler.SystemHandler
}

// Guards are the middleware protecting route groups
type Guards struct {
	// Admin rejects everyone but administrators
	Admin gin.HandlerFunc
	// Checkout limits how often a session may start a payment
	Checkout gin.HandlerFunc
}

// Paths are the configurable pages payment providers return to
type Paths struct {
	Success string
	Failure string
}

// Storefront returns the route groups of the storefront
func Storefront(h Handlers, g Guards, p Paths) []*DomainGroup {
	catalog := NewDomainGroup("catalog", "")
	catalog.GET("/", h.Catalog.Products).
		GET("/productos", h.Catalog.Products).
		GET(handler.FavoritesPath, h.Catalog.Favorites).
		POST("/favoritos/:id", h.Catalog.AddFavorite).
		POST("/favoritos/:id/eliminar", h.Catalog.RemoveFavorite).
		DELETE("/favoritos/:id", h.Catalog.RemoveFavorite)

	cart := NewDomainGroup("cart", handler.CartPath)
	cart.GET("", h.Cart.Show).
		POST("/agregar", h.Cart.Add).
		POST("/lineas/:id/cantidad", h.Cart.Quantity).
		PUT("/lineas/:id/cantidad", h.Cart.Quantity).
		POST("/lineas/:id/eliminar", h.Cart.Remove).
		DELETE("/lineas/:id", h.Cart.Remove).
		GET("/badge", h.Badge.Show).
		GET("/badge/stream", h.Badge.Stream)
	// the payment view creates a pending order, so it shares the checkout limit
	cart.Group("payment", "").
		Use(g.Checkout).
		GET("/pago", h.Checkout.Payment)

	checkout := NewDomainGroup("checkout", "/checkout")
	checkout.GET("/paypal/return", h.Checkout.PayPalReturn).
		GET("/paypal/cancel", h.Checkout.PayPalCancel).
		POST("/paypal/error", h.Checkout.PayPalError)
	checkout.Group("start", "").
		Use(g.Checkout).
		POST("/paypal", h.Checkout.PayPal).
		POST("/paypal/capture", h.Checkout.PayPalCapture).
		POST("/mercadopago", h.Checkout.MercadoPago)

	results := NewDomainGroup("results", "")
	results.GET(p.Success, h.Checkout.Succeeded).
		GET(p.Failure, h.Checkout.Cancelled)

	admin := NewDomainGroup("admin", handler.AdminPath)
	admin.Use(g.Admin).
		GET("", h.Admin.Dashboard).
		GET("/inventario", h.Admin.Inventory).
		POST("/inventario", h.Admin.AddProduct).
		POST("/inventario/limpiar-stock", h.Admin.DisableOutOfStock).
		POST("/inventario/:id", h.Admin.EditProduct).
		POST("/inventario/:id/estado", h.Admin.SetProductActive).
		POST("/inventario/:id/eliminar", h.Admin.DeleteProduct).
		GET("/pedidos", h.Admin.Orders).
		GET("/pedidos/:id", h.Admin.Order).
		POST("/pedidos/:id/estado", h.Admin.SetOrderState).
		GET("/usuarios", h.Admin.Users).
		POST("/usuarios", h.Admin.AddUser).
		POST("/usuarios/:id", h.Admin.EditUser).
		POST("/usuarios/:id/eliminar", h.Admin.DeleteUser)

	system := NewDomainGroup("system", "")
	system.GET("/health", h.System.Health)

	return []*DomainGroup{catalog, cart, checkout, results, admin, system}
}
