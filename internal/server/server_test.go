package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	portalapi "go.pilab.hu/portal/api/echo"
	"go.pilab.hu/portal/config"
	"go.pilab.hu/portal/internal/auth"
	"go.pilab.hu/portal/internal/metrics"
	"go.pilab.hu/portal/log"
)

func testConfig() *config.PortalConfig {
	return &config.PortalConfig{
		HTTPPort:        "0",
		OtelServiceName: "portal-test",
		MaxUploadBytes:  config.DefaultMaxUploadBytes,
	}
}

func TestNewEcho_Routes(t *testing.T) {
	store := portalapi.NewStore(portalapi.DefaultCatalog(), time.Hour)
	t.Cleanup(store.Close)
	portal := portalapi.NewPortalAPI(store, auth.NewBcryptPasswordHasher(bcrypt.MinCost),
		auth.NewTokenIssuer("secret", time.Minute), log.Nop())

	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.InitCustomMetrics(reg))
	srv := httptest.NewServer(NewEcho(testConfig(), log.Nop(), portal, reg))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp, err = http.Get(srv.URL + APIPrefix + "/users/profile")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "portal_")
}

func TestNewHTTPServer(t *testing.T) {
	srv := NewHTTPServer(&config.PortalConfig{HTTPPort: "8080"}, http.NewServeMux())
	assert.Equal(t, ":8080", srv.Addr)
	assert.NotZero(t, srv.ReadHeaderTimeout)
}
