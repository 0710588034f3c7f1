package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	portalapi "go.pilab.hu/portal/api/echo"
	"go.pilab.hu/portal/config"
	"go.pilab.hu/portal/internal/validation"
	"go.pilab.hu/portal/log"
	"go.pilab.hu/portal/middleware"
)

// APIPrefix is where the portal routes are mounted.
const APIPrefix = "/api"

// NewEcho builds the router: telemetry, request logging, recovery, the
// portal routes under APIPrefix, /metrics and /health.
func NewEcho(cfg *config.PortalConfig, appLogger log.Logger, portal *portalapi.PortalAPI, reg *prometheus.Registry) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(appLogger)
	e.Validator = validation.New()

	e.Use(otelecho.Middleware(cfg.OtelServiceName))
	e.Use(middleware.OTelStatus())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return p == "/health" || p == "/metrics"
		},
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := map[string]interface{}{
				"method":     v.Method,
				"path":       v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"user_agent": c.Request().UserAgent(),
			}
			if v.Error != nil {
				appLogger.Warn(c.Request().Context(), "HTTP request failed", fields, map[string]interface{}{"error": v.Error.Error()})
				return nil
			}
			appLogger.Info(c.Request().Context(), "HTTP request", fields)
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(middleware.SecurityHeaders())
	// Multipart overhead on top of the document ceiling.
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dK", cfg.MaxUploadBytes/1024+64)))

	portal.RegisterRoutes(e.Group(APIPrefix))

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	return e
}

// NewHTTPServer wraps the router in an http.Server listening on cfg.HTTPPort.
func NewHTTPServer(cfg *config.PortalConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
