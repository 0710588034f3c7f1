package session

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"go.pilab.hu/portal/domain"
	perrors "go.pilab.hu/portal/errors"
	"go.pilab.hu/portal/internal/metrics"
	"go.pilab.hu/portal/log"
)

const refreshKey = "refresh"

// AuthGateway is the remote authentication contract.
type AuthGateway interface {
	Signup(ctx context.Context, req domain.SignupRequest) error
	Login(ctx context.Context, email, password string) error
	Refresh(ctx context.Context) (domain.AccessToken, error)
	Logout(ctx context.Context) error
	OwnProfile(ctx context.Context) (*domain.User, error)
}

// Manager owns the session lifecycle: silent refresh, login, logout and
// the cached profile.
type Manager struct {
	gateway AuthGateway
	store   *Store
	state   *Dispatcher
	logger  log.Logger

	group singleflight.Group

	// mu orders credential writes against Login and Invalidate. epoch
	// changes on both, and a refresh that started under an older epoch
	// neither stores nor clears anything.
	mu    sync.Mutex
	epoch uint64
}

// NewManager wires a manager. state may be shared with other components.
func NewManager(gateway AuthGateway, store *Store, state *Dispatcher, logger log.Logger) *Manager {
	if logger == nil {
		logger = log.Nop()
	}
	return &Manager{
		gateway: gateway,
		store:   store,
		state:   state,
		logger:  logger.With(map[string]interface{}{"component": "session"}),
	}
}

// State returns the shared application state.
func (m *Manager) State() *Dispatcher {
	return m.state
}

// Status reports whether a valid credential is currently held.
func (m *Manager) Status() domain.SessionStatus {
	if m.store.IsAuthenticated() {
		return domain.Authenticated
	}
	return domain.Unauthenticated
}

// EnsureSession silently refreshes the access credential. Concurrent callers
// share one refresh call and observe the same outcome. A failed refresh
// clears the session and is not retried.
func (m *Manager) EnsureSession(ctx context.Context) (domain.SessionStatus, error) {
	ch := m.group.DoChan(refreshKey, func() (interface{}, error) {
		return m.refresh(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Shared {
			metrics.SessionRefreshSharedTotal.Inc()
		}
		if res.Err != nil {
			return domain.Unauthenticated, res.Err
		}
		return domain.Authenticated, nil
	case <-ctx.Done():
		return domain.Unauthenticated, ctx.Err()
	}
}

func (m *Manager) refresh(ctx context.Context) (interface{}, error) {
	m.mu.Lock()
	epoch := m.epoch
	m.mu.Unlock()

	tok, err := m.gateway.Refresh(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != epoch {
		metrics.SessionRefreshTotal.WithLabelValues("discarded").Inc()
		m.logger.Debug(ctx, "stale refresh result discarded")
		if err != nil {
			return nil, err
		}
		return nil, perrors.NewAuth("The session changed while refreshing.", nil)
	}
	if err != nil {
		metrics.SessionRefreshTotal.WithLabelValues("failed").Inc()
		m.logger.Info(ctx, "silent refresh failed", map[string]interface{}{"kind": string(perrors.KindOf(err))})
		m.clearLocked()
		return nil, err
	}
	if !tok.Valid(m.store.now()) {
		metrics.SessionRefreshTotal.WithLabelValues("failed").Inc()
		m.clearLocked()
		return nil, perrors.NewAuth("The service returned an unusable access token.", nil)
	}

	metrics.SessionRefreshTotal.WithLabelValues("ok").Inc()
	m.store.Set(tok)
	m.state.Dispatch(SessionEstablished{})
	return tok, nil
}

// Login authenticates and then fetches the first access credential.
func (m *Manager) Login(ctx context.Context, email, password string) (domain.SessionStatus, error) {
	if email == "" || password == "" {
		return domain.Unauthenticated, perrors.NewValidation("invalid_credentials", "Email and password are required")
	}
	if err := m.gateway.Login(ctx, email, password); err != nil {
		return domain.Unauthenticated, fmt.Errorf("login: %w", err)
	}
	// A refresh started before the login carries the old cookie.
	m.mu.Lock()
	m.epoch++
	m.mu.Unlock()
	m.group.Forget(refreshKey)
	return m.EnsureSession(ctx)
}

// Signup validates the form locally and registers the account.
func (m *Manager) Signup(ctx context.Context, req domain.SignupRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if err := m.gateway.Signup(ctx, req); err != nil {
		return fmt.Errorf("signup: %w", err)
	}
	return nil
}

// Logout ends the remote session. Local state is cleared whatever the
// remote outcome; a remote failure is still returned.
func (m *Manager) Logout(ctx context.Context) error {
	err := m.gateway.Logout(ctx)
	m.Invalidate()
	if err != nil {
		m.logger.Warn(ctx, "remote logout failed, local session cleared", map[string]interface{}{"error": err.Error()})
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Invalidate drops the credential and profile without a network call.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.clearLocked()
}

func (m *Manager) clearLocked() {
	m.store.Clear()
	m.state.Dispatch(SessionCleared{}, ResetProfile{})
}

// LoadOwnProfile refreshes the cached profile. On failure the previously
// cached profile is kept.
func (m *Manager) LoadOwnProfile(ctx context.Context) error {
	u, err := m.gateway.OwnProfile(ctx)
	if err != nil {
		m.logger.Warn(ctx, "profile load failed", map[string]interface{}{"kind": string(perrors.KindOf(err))})
		return fmt.Errorf("load profile: %w", err)
	}
	m.state.Dispatch(SetProfile{User: u})
	return nil
}

// EnterProtected runs the checks made on every protected-route entry:
// a silent refresh, then a profile load. A profile failure other than an
// auth failure does not block entry.
func (m *Manager) EnterProtected(ctx context.Context) (domain.SessionStatus, error) {
	status, err := m.EnsureSession(ctx)
	if status != domain.Authenticated {
		return status, err
	}
	if err := m.LoadOwnProfile(ctx); err != nil && perrors.IsKind(err, perrors.KindAuth) {
		return domain.Unauthenticated, err
	}
	return domain.Authenticated, nil
}

// RequireRole gates role-restricted views on the cached profile.
func (m *Manager) RequireRole(roles ...domain.Role) error {
	p := m.state.Snapshot().Profile
	if p == nil {
		return perrors.NewAuth("You are not signed in.", nil)
	}
	if !domain.HasRole(p.Roles, roles...) {
		return perrors.NewNotFoundOrForbidden(403, "", "You are not allowed to view this page.")
	}
	return nil
}
