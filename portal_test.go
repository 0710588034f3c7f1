package portal

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	portalapi "go.pilab.hu/portal/api/echo"
	"go.pilab.hu/portal/config"
	"go.pilab.hu/portal/domain"
	perrors "go.pilab.hu/portal/errors"
	"go.pilab.hu/portal/internal/auth"
	"go.pilab.hu/portal/internal/metrics"
	"go.pilab.hu/portal/internal/server"
	"go.pilab.hu/portal/log"
	"go.pilab.hu/portal/upload"
	"go.pilab.hu/portal/wizard"
)

const password = "Str0ng!pass"

type env struct {
	store *portalapi.Store
	cfg   *config.PortalConfig
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := portalapi.NewStore(portalapi.DefaultCatalog(), time.Hour)
	t.Cleanup(store.Close)

	api := portalapi.NewPortalAPI(store, auth.NewBcryptPasswordHasher(bcrypt.MinCost),
		auth.NewTokenIssuer("e2e-secret", 15*time.Minute), log.Nop())

	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.InitCustomMetrics(reg))

	cfg := &config.PortalConfig{
		RequestTimeout:  5 * time.Second,
		CatalogCache:    config.CatalogCacheMemory,
		CatalogCacheTTL: time.Minute,
		MaxUploadBytes:  config.DefaultMaxUploadBytes,
		OtelServiceName: "portal-e2e",
	}
	srv := httptest.NewServer(server.NewEcho(cfg, log.Nop(), api, reg))
	t.Cleanup(srv.Close)
	cfg.APIBaseURL = srv.URL + server.APIPrefix

	return &env{store: store, cfg: cfg}
}

func (e *env) portal(t *testing.T, opts ...Option) *Portal {
	t.Helper()
	p, err := New(e.cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func signIn(t *testing.T, p *Portal, email string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, p.Sessions.Signup(ctx, domain.SignupRequest{
		FirstName:       "Aina",
		LastName:        "Rahman",
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
	}))
	status, err := p.Sessions.Login(ctx, email, password)
	require.NoError(t, err)
	require.Equal(t, domain.Authenticated, status)

	status, err = p.Sessions.EnterProtected(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.Authenticated, status)
}

func TestPortal_HomePurchase(t *testing.T) {
	e := newEnv(t)
	p := e.portal(t)
	ctx := context.Background()

	signIn(t, p, "aina@example.com")
	profile := p.State.Snapshot().Profile
	require.NotNil(t, profile)
	assert.Equal(t, "aina@example.com", profile.Email)

	_, err := p.Wizard.SelectCategory(ctx, domain.CategoryHome)
	require.NoError(t, err)
	catalog, err := p.Wizard.AwaitCatalog(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, catalog)

	_, err = p.Wizard.SelectPolicy("pol-home-shield")
	require.NoError(t, err)
	_, err = p.Wizard.ConfirmCoverage()
	require.NoError(t, err)
	_, err = p.Wizard.SubmitUnderwriting(domain.HomeAnswers{PropertyType: domain.PropertyLanded, NumberOfRooms: 3})
	require.NoError(t, err)
	assert.IsType(t, wizard.QuotationView{}, p.Wizard.Content())

	q, err := p.Wizard.RequestQuote(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, q.QuoteID)
	assert.Equal(t, "pol-home-shield", q.Policy.ID)
	assert.True(t, q.Breakdown.Balanced())

	pdf := []byte("%PDF-1.4\n%%EOF\n")
	require.NoError(t, p.Wizard.Upload(ctx, upload.File{
		Name:        "identity.pdf",
		ContentType: upload.ContentTypePDF,
		Size:        int64(len(pdf)),
		Body:        bytes.NewReader(pdf),
	}))
	docs, err := e.store.Documents(profile.ID, q.QuoteID)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	issued, err := p.Wizard.Pay(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, issued.UserPolicyID)
	assert.Equal(t, domain.PolicyTypeHome, issued.Type)
	assert.Len(t, issued.PaymentSchedule, q.TermLengthInMonths)
	assert.Equal(t, wizard.PhaseComplete, p.Wizard.Snapshot().Phase)

	own, err := p.Policies.ListOwn(ctx)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, issued.UserPolicyID, own[0].UserPolicyID)

	view, err := p.Viewer.Open(ctx, issued.UserPolicyID)
	require.NoError(t, err)
	require.NotNil(t, view.Detail)
	assert.NoError(t, view.Detail.PaymentsErr)

	var doc bytes.Buffer
	require.NoError(t, p.Policies.Download(ctx, issued.UserPolicyID, &doc))
	assert.True(t, bytes.HasPrefix(doc.Bytes(), []byte("%PDF")))

	summary, err := p.Policies.DashboardSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ActivePolicies)

	_, err = p.Policies.IssuanceStats(ctx)
	assert.ErrorIs(t, err, perrors.ErrForbidden)
}

func TestPortal_InvalidUnderwritingIsNotSent(t *testing.T) {
	e := newEnv(t)
	p := e.portal(t)
	ctx := context.Background()
	signIn(t, p, "life@example.com")

	_, err := p.Wizard.SelectCategory(ctx, domain.CategoryLife)
	require.NoError(t, err)
	_, err = p.Wizard.AwaitCatalog(ctx)
	require.NoError(t, err)
	_, err = p.Wizard.SelectPolicy("pol-life-care")
	require.NoError(t, err)
	_, err = p.Wizard.ConfirmCoverage()
	require.NoError(t, err)

	_, err = p.Wizard.SubmitUnderwriting(domain.LifeAnswers{Age: 17, HealthStatus: domain.HealthGood})
	assert.ErrorIs(t, err, perrors.ErrInvalidAnswers)
	assert.Equal(t, wizard.StepInformation, p.Wizard.Snapshot().Step())
}

func TestPortal_LogoutClearsSession(t *testing.T) {
	e := newEnv(t)
	p := e.portal(t)
	ctx := context.Background()
	signIn(t, p, "bye@example.com")

	require.NoError(t, p.Sessions.Logout(ctx))
	assert.Equal(t, domain.Unauthenticated, p.Sessions.Status())
	assert.Nil(t, p.State.Snapshot().Profile)

	// The refresh cookie was revoked server side.
	status, err := p.Sessions.EnsureSession(ctx)
	assert.Equal(t, domain.Unauthenticated, status)
	assert.True(t, perrors.IsKind(err, perrors.KindAuth))
}

func TestPortal_SessionResumesFromCookies(t *testing.T) {
	e := newEnv(t)
	first := e.portal(t)
	signIn(t, first, "resume@example.com")

	second := e.portal(t)
	second.Client.SetCookies(first.Client.Cookies())

	status, err := second.Sessions.EnsureSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Authenticated, status)
}

func TestPortal_RedisCatalogCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	e := newEnv(t)
	e.cfg.CatalogCache = config.CatalogCacheRedis
	e.cfg.RedisAddr = mr.Addr()
	p := e.portal(t, WithRedisClient(rc))
	signIn(t, p, "cache@example.com")

	policies, err := p.Catalog.PoliciesByCategory(context.Background(), domain.CategoryAuto)
	require.NoError(t, err)
	require.NotEmpty(t, policies)
	assert.True(t, mr.Exists("portal:catalog:auto"))
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(&config.PortalConfig{APIBaseURL: "not a url"})
	assert.Error(t, err)
}
