package server

import (
	"app/internal/handler"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, productH *handler.ProductHandler, orderH *handler.OrderHandler, userH *handler.UserHandler) {
	productH.RegisterRoutes(e)
	orderH.RegisterRoutes(e)
	userH.RegisterRoutes(e)
}
