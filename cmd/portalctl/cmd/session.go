package cmd

import (
	"context"
	"fmt"

	"go.pilab.hu/portal"
	"go.pilab.hu/portal/cmd/portalctl/config"
	portalconfig "go.pilab.hu/portal/config"
	"go.pilab.hu/portal/domain"
)

// session is the portal core bound to the current CLI context.
type session struct {
	cur    *config.Context
	portal *portal.Portal
}

// openSession builds the portal core for the current context and loads
// the context's stored cookies. Settings other than the endpoint come from
// the portal configuration (portal.yaml and environment).
func openSession() (*session, error) {
	cur, err := config.GetCurrentContext()
	if err != nil {
		return nil, err
	}

	cfg, err := portalconfig.LoadConfig()
	if err != nil {
		return nil, err
	}
	cfg.APIBaseURL = cur.APIBaseURL

	p, err := portal.New(cfg, portal.WithLogger(appLogger))
	if err != nil {
		return nil, err
	}
	p.Client.SetCookies(cur.HTTPCookies())
	return &session{cur: cur, portal: p}, nil
}

// enter restores the signed-in session from the stored cookies.
func (s *session) enter(ctx context.Context) error {
	if !s.cur.LoggedIn() {
		return fmt.Errorf("not logged in to context '%s'. Run '%s login'", s.cur.Name, config.AppName)
	}
	status, err := s.portal.Sessions.EnterProtected(ctx)
	if status != domain.Authenticated {
		s.cur.ClearSession()
		if saveErr := config.SaveConfig(); saveErr != nil {
			appLogger.Warn(ctx, "failed to clear expired session", map[string]interface{}{"error": saveErr.Error()})
		}
		return fmt.Errorf("session expired, run '%s login' again: %w", config.AppName, err)
	}
	return nil
}

// save persists the current cookies, which the service may have rotated.
func (s *session) save() error {
	if s.cur.LoggedIn() {
		s.cur.SetHTTPCookies(s.portal.Client.Cookies())
	}
	return config.SaveConfig()
}

func (s *session) close() {
	if err := s.portal.Close(); err != nil {
		appLogger.Warn(context.Background(), "failed to release portal resources", map[string]interface{}{"error": err.Error()})
	}
}

// withSession runs fn inside the signed-in session and saves it afterwards.
func withSession(ctx context.Context, fn func(s *session) error) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.enter(ctx); err != nil {
		return err
	}
	runErr := fn(s)
	if err := s.save(); err != nil && runErr == nil {
		return err
	}
	return runErr
}
