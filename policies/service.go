// Package policies serves the issued-policy views: list, detail with its
// payment schedule, document download and the dashboards.
package policies

import (
	"context"
	"fmt"
	"io"

	"go.pilab.hu/portal/domain"
	"go.pilab.hu/portal/log"
)

// Remote is the subset of the portal API the views need.
type Remote interface {
	OwnPolicies(ctx context.Context) ([]domain.PolicySummary, error)
	PolicyDetail(ctx context.Context, userPolicyID string) (*domain.PolicyDetails, error)
	PolicyPayments(ctx context.Context, userPolicyID string) ([]domain.UserPolicyPayment, error)
	DownloadPolicyDocument(ctx context.Context, userPolicyID string, w io.Writer) error
	DashboardSummary(ctx context.Context) (domain.DashboardSummary, error)
	IssuanceStats(ctx context.Context) (domain.IssuanceStats, error)
}

// RoleGate checks the cached profile's roles.
type RoleGate interface {
	RequireRole(roles ...domain.Role) error
}

// Detail is a policy with its payment schedule. PaymentsErr is set when
// the schedule could not be loaded; the detail is still usable.
type Detail struct {
	Policy      *domain.PolicyDetails
	Payments    []domain.UserPolicyPayment
	PaymentsErr error
}

// Issued converts the detail to the read model.
func (d *Detail) Issued() domain.IssuedPolicy {
	return domain.NewIssuedPolicy(*d.Policy, d.Payments)
}

type Service struct {
	remote Remote
	gate   RoleGate
	logger log.Logger
}

// NewService creates the service. gate may be nil when no role-gated view
// is used.
func NewService(remote Remote, gate RoleGate, logger log.Logger) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{remote: remote, gate: gate, logger: logger}
}

func (s *Service) ListOwn(ctx context.Context) ([]domain.PolicySummary, error) {
	return s.remote.OwnPolicies(ctx)
}

// Detail loads the policy, then its payments. Payments are requested only
// after the policy loaded; a payments failure is not fatal.
func (s *Service) Detail(ctx context.Context, userPolicyID string) (*Detail, error) {
	p, err := s.remote.PolicyDetail(ctx, userPolicyID)
	if err != nil {
		return nil, fmt.Errorf("load policy %s: %w", userPolicyID, err)
	}

	d := &Detail{Policy: p}
	d.Payments, d.PaymentsErr = s.remote.PolicyPayments(ctx, userPolicyID)
	if d.PaymentsErr != nil {
		s.logger.Warn(ctx, "payment schedule unavailable", map[string]interface{}{
			"user_policy_id": userPolicyID, "error": d.PaymentsErr.Error(),
		})
	}
	return d, nil
}

// LoadIssued loads the issued policy read model.
func (s *Service) LoadIssued(ctx context.Context, userPolicyID string) (domain.IssuedPolicy, error) {
	d, err := s.Detail(ctx, userPolicyID)
	if err != nil {
		return domain.IssuedPolicy{}, err
	}
	return d.Issued(), nil
}

// Download streams the policy document into w.
func (s *Service) Download(ctx context.Context, userPolicyID string, w io.Writer) error {
	if err := s.remote.DownloadPolicyDocument(ctx, userPolicyID, w); err != nil {
		return fmt.Errorf("download policy %s: %w", userPolicyID, err)
	}
	return nil
}

func (s *Service) DashboardSummary(ctx context.Context) (domain.DashboardSummary, error) {
	return s.remote.DashboardSummary(ctx)
}

// IssuanceStats is admin only; the role gate is checked before any call.
func (s *Service) IssuanceStats(ctx context.Context) (domain.IssuanceStats, error) {
	if s.gate != nil {
		if err := s.gate.RequireRole(domain.RoleAdmin); err != nil {
			return domain.IssuanceStats{}, err
		}
	}
	return s.remote.IssuanceStats(ctx)
}
