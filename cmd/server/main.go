package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	portalapi "go.pilab.hu/portal/api/echo"
	"go.pilab.hu/portal/config"
	"go.pilab.hu/portal/domain"
	"go.pilab.hu/portal/internal/audit"
	"go.pilab.hu/portal/internal/auth"
	"go.pilab.hu/portal/internal/metrics"
	"go.pilab.hu/portal/internal/server"
	"go.pilab.hu/portal/internal/telemetry"
	"go.pilab.hu/portal/log"
	"go.pilab.hu/portal/tracing"
)

func main() {
	// Load configuration first
	cfg, err := config.LoadConfig()
	if err != nil {
		stdLog := zerolog.New(os.Stdout).With().Timestamp().Logger()
		stdLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	appLogger := log.NewZerologAdapter(log.ParseLevel(cfg.LogLevel), cfg.LogPretty)
	ctx := context.Background()
	appLogger.Info(ctx, "Starting insurance portal reference server...", map[string]interface{}{
		"http_port":    cfg.HTTPPort,
		"log_level":    cfg.LogLevel,
		"otel_service": cfg.OtelServiceName,
	})

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Error(ctx, "Server stopped with error", err)
		os.Exit(1)
	}
	appLogger.Info(ctx, "Server gracefully stopped.")
}

func run(ctx context.Context, cfg *config.PortalConfig, appLogger log.Logger) error {
	tracerProvider, err := tracing.InitTracerProvider(cfg.OtelServiceName)
	if err != nil {
		return fmt.Errorf("initialize TracerProvider: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.InitCustomMetrics(reg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	meterProvider, err := telemetry.InitMeterProvider(reg)
	if err != nil {
		return fmt.Errorf("initialize MeterProvider: %w", err)
	}

	store := portalapi.NewStore(portalapi.DefaultCatalog(), cfg.RefreshTTL)
	defer store.Close()

	hasher := auth.NewBcryptPasswordHasher(bcrypt.DefaultCost)
	if err := seedAdmin(cfg, store, hasher); err != nil {
		return err
	}
	if cfg.AdminEmail != "" {
		appLogger.Info(ctx, "Admin account seeded", map[string]interface{}{"email": cfg.AdminEmail})
	}

	tokens := auth.NewTokenIssuer(cfg.JWTSecretKey, time.Duration(cfg.AccessTokenTTLMin)*time.Minute)
	portal := portalapi.NewPortalAPI(store, hasher, tokens, appLogger,
		portalapi.WithMaxUploadBytes(cfg.MaxUploadBytes),
		portalapi.WithRefreshTTL(cfg.RefreshTTL),
		portalapi.WithSecureCookies(cfg.SecureCookies),
		portalapi.WithAuditRecorder(audit.New(os.Stdout, cfg.OtelServiceName)),
	)

	httpServer := server.NewHTTPServer(cfg, server.NewEcho(cfg, appLogger, portal, reg))
	serveErr := make(chan error, 1)
	go func() {
		appLogger.Info(ctx, fmt.Sprintf("HTTP server listening on port %s", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		appLogger.Info(ctx, fmt.Sprintf("Received signal: %v. Shutting down server...", sig))
	case runErr = <-serveErr:
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "HTTP server shutdown error", err)
	}
	appLogger.Info(shutdownCtx, "Shutting down TracerProvider...")
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "TracerProvider shutdown error", err)
	}
	if err := telemetry.Shutdown(shutdownCtx, meterProvider); err != nil {
		appLogger.Error(shutdownCtx, "MeterProvider shutdown error", err)
	}
	return runErr
}

func seedAdmin(cfg *config.PortalConfig, store *portalapi.Store, hasher auth.PasswordHasher) error {
	if cfg.AdminEmail == "" {
		return nil
	}
	if err := domain.ValidatePassword(cfg.AdminPassword); err != nil {
		return fmt.Errorf("ADMIN_PASSWORD: %w", err)
	}
	hash, err := hasher.Hash(cfg.AdminPassword)
	if err != nil {
		return err
	}
	_, err = store.CreateUser(domain.SignupRequest{
		FirstName: "Portal",
		LastName:  "Admin",
		Email:     cfg.AdminEmail,
	}, hash, domain.RoleAdmin)
	return err
}
