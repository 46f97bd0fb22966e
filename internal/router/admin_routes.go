package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/leave-request-service/internal/handler"
	"github.com/iliyamo/leave-request-service/internal/middleware"
	"github.com/iliyamo/leave-request-service/internal/model"
)

// RegisterAdmin registers the balance reset endpoints.  The reset cycle
// (e.g. yearly) is driven by whoever calls them.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string, caching Caching) {
	g := e.Group("/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.Use(caching.write()...)
	g.POST("/users/:id/reset-leave-days", h.ResetUser)
	g.POST("/reset-leave-days", h.ResetAll)
}
