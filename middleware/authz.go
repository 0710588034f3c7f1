package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"go.pilab.hu/portal/internal/auth/rbac"
	"go.pilab.hu/portal/log"
)

// RequirePermission rejects callers whose roles do not grant perm. It must
// run after Authenticate.
func RequirePermission(perm string, logger log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFromContext(c)
			if !ok {
				logger.Warn(c.Request().Context(), "no claims on a protected route", map[string]interface{}{"path": c.Path()})
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication is required.")
			}
			if !rbac.HasPermission(claims.Roles, perm) {
				logger.Warn(c.Request().Context(), "permission denied", map[string]interface{}{
					"path": c.Path(), "user_id": claims.UserID, "permission": perm,
				})
				return echo.NewHTTPError(http.StatusForbidden, "You are not allowed to access this resource.")
			}
			return next(c)
		}
	}
}

// SecurityHeaders adds common security headers to responses.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			return next(c)
		}
	}
}
