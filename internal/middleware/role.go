package middleware

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
)

// RequireRole rejects the request with 403 unless JWTAuth stored one of the
// given roles.  Mount it after JWTAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if role, _ := c.Get(CtxRole).(string); role != "" && slices.Contains(roles, role) {
				return next(c)
			}
			return c.JSON(http.StatusForbidden, echo.Map{"error": "unauthorized", "message": "insufficient privileges"})
		}
	}
}
