package router

import (
	"github.com/labstack/echo/v4"

	"convo/internal/adapter/api/handler"
)

// SetupDevRouter registers development-only endpoints. Callers must gate on
// the environment; these routes never exist in production.
func SetupDevRouter(e *echo.Echo, devTokenHandler *handler.DevTokenHandler) {
	e.POST("/v1/dev/token", devTokenHandler.CreateToken)
}
