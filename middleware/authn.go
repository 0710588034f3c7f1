// Package middleware holds the echo middleware of the reference server.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"go.pilab.hu/portal/domain"
	"go.pilab.hu/portal/log"
)

// claimsContextKey is the echo context key holding *domain.Claims.
const claimsContextKey = "portal.claims"

// TokenVerifier validates a raw access token.
type TokenVerifier interface {
	Verify(raw string) (*domain.Claims, error)
}

// Authenticate requires a valid access token in the Authorization header.
// Both "Bearer <token>" and the bare token are accepted. The claims are
// stored on the echo context and on the request context.
func Authenticate(verifier TokenVerifier, logger log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication is required.")
			}

			claims, err := verifier.Verify(raw)
			if err != nil {
				logger.Debug(c.Request().Context(), "access token rejected", map[string]interface{}{
					"path": c.Path(), "error": err.Error(),
				})
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired access token.")
			}

			c.Set(claimsContextKey, claims)
			c.SetRequest(c.Request().WithContext(domain.WithClaims(c.Request().Context(), claims)))
			return next(c)
		}
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

// ClaimsFromContext returns the claims stored by Authenticate.
func ClaimsFromContext(c echo.Context) (*domain.Claims, bool) {
	claims, ok := c.Get(claimsContextKey).(*domain.Claims)
	return claims, ok
}
