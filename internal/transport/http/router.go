package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/openmart/shopcart/internal/handlers"
	"github.com/openmart/shopcart/internal/session"
)

type Deps struct {
	SessionGate    echo.MiddlewareFunc
	AuthHandler    *handlers.AuthHandler
	ProductHandler *handlers.ProductHandler
	CartHandler    *handlers.CartHandler
	OrderHandler   *handlers.OrderHandler
	SearchHandler  *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	api := e.Group("/api", d.SessionGate)

	auth := api.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/logout", d.AuthHandler.Logout)
	auth.GET("/me", d.AuthHandler.Me)

	products := api.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/search", d.SearchHandler.Search)
	products.GET("/:id", d.ProductHandler.GetProduct)

	admin := api.Group("/admin", session.Require)
	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)

	cart := api.Group("/cart")
	cart.GET("/:userId", d.CartHandler.GetCart)
	cart.DELETE("/:userId", d.CartHandler.ClearCart)
	cart.POST("/:userId/items", d.CartHandler.AddItem)
	cart.DELETE("/:userId/items/:productId", d.CartHandler.RemoveItem)
	cart.GET("/:userId/total", d.CartHandler.GetTotal)

	orders := api.Group("/orders")
	orders.POST("/:userId", d.OrderHandler.CreateOrder)
	orders.GET("/:userId", d.OrderHandler.GetUserOrders)
	orders.PUT("/:userId/:orderId/cancel", d.OrderHandler.CancelOrder)
	orders.PUT("/:userId/:orderId/confirm", d.OrderHandler.ConfirmOrder)
}
