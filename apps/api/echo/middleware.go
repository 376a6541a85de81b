package echoapi

import (
	"github.com/labstack/echo/v4"
)

// noStoreMiddleware keeps browsers from caching dashboard state, which changes with every load.
func noStoreMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctx.Response().Header().Set("Cache-Control", "no-store")
			return next(ctx)
		}
	}
}
