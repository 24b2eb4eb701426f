package server

import (
	"stockroom/internal/handler"
	"stockroom/internal/middleware"

	"github.com/labstack/echo/v4"
)

// Handlers はルーティングに必要なhandler一式
type Handlers struct {
	Health       *handler.HealthHandler
	Products     *handler.ProductHandler
	AdminProduct *handler.AdminProductHandler
	Orders       *handler.OrderHandler
}

func RegisterRoutes(e *echo.Echo, h Handlers, adminJWTSecret string) {
	h.Health.RegisterRoutes(e)
	h.Products.RegisterRoutes(e)
	h.AdminProduct.RegisterRoutes(e, middleware.AdminGuards(adminJWTSecret)...)
	h.Orders.RegisterRoutes(e)
}
