package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/leave-request-service/internal/handler"
	"github.com/iliyamo/leave-request-service/internal/middleware"
)

// Caching wraps authenticated routes.  Cache serves repeated reads and
// Invalidate clears cached reads after a successful write.  Either may be
// nil.
type Caching struct {
	Cache      echo.MiddlewareFunc
	Invalidate echo.MiddlewareFunc
}

func (c Caching) read() []echo.MiddlewareFunc {
	if c.Cache == nil {
		return nil
	}
	return []echo.MiddlewareFunc{c.Cache}
}

func (c Caching) write() []echo.MiddlewareFunc {
	if c.Invalidate == nil {
		return nil
	}
	return []echo.MiddlewareFunc{c.Invalidate}
}

// Setup installs the global middleware: panic recovery, CORS for the web
// front-end, the JSON error handler and, when given, the rate limiter.
func Setup(e *echo.Echo, corsOrigins []string, rateLimit echo.MiddlewareFunc) {
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	if rateLimit != nil {
		e.Use(rateLimit)
	}
}

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the authentication routes.  Register, login,
// refresh and logout live under /v1/auth without a session; /v1/me needs
// a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, caching Caching) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me, caching.read()...)
}
