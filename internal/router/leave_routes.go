package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/leave-request-service/internal/handler"
	"github.com/iliyamo/leave-request-service/internal/middleware"
	"github.com/iliyamo/leave-request-service/internal/model"
)

// RegisterLeave registers /v1/leave-requests.  Every route requires a
// valid JWT.  Any user may submit, read and withdraw their own requests;
// listing everything and changing a status require the ADMIN role.
func RegisterLeave(e *echo.Echo, h *handler.LeaveHandler, jwtSecret string, caching Caching) {
	g := e.Group("/v1/leave-requests", middleware.JWTAuth(jwtSecret))
	admin := middleware.RequireRole(model.RoleAdmin)

	g.POST("", h.Create, caching.write()...)
	g.GET("/mine", h.Mine, caching.read()...)
	g.GET("/:id", h.Get, caching.read()...)
	g.DELETE("/:id", h.Delete, caching.write()...)

	g.GET("", h.List, append([]echo.MiddlewareFunc{admin}, caching.read()...)...)
	g.PATCH("/:id/status", h.SetStatus, append([]echo.MiddlewareFunc{admin}, caching.write()...)...)
}
