package client

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"go.pilab.hu/portal/api"
	"go.pilab.hu/portal/domain"
)

// OwnProfile returns the signed-in user's profile.
func (c *Client) OwnProfile(ctx context.Context) (*domain.User, error) {
	var u domain.User
	if err := c.do(ctx, request{
		op:     "own_profile",
		method: http.MethodGet,
		path:   api.PathProfile,
		bearer: true,
		out:    &u,
	}); err != nil {
		return nil, err
	}
	return &u, nil
}

// OwnPolicies lists the user's issued policies.
func (c *Client) OwnPolicies(ctx context.Context) ([]domain.PolicySummary, error) {
	var out domain.OwnPoliciesResponse
	err := c.do(ctx, request{
		op:     "own_policies",
		method: http.MethodGet,
		path:   api.PathOwnPolicies,
		bearer: true,
		out:    &out,
	})
	return out.Policies, err
}

// PolicyDetail returns one issued policy.
func (c *Client) PolicyDetail(ctx context.Context, userPolicyID string) (*domain.PolicyDetails, error) {
	var d domain.PolicyDetails
	if err := c.do(ctx, request{
		op:     "policy_detail",
		method: http.MethodGet,
		path:   api.PolicyPath(url.PathEscape(userPolicyID)),
		bearer: true,
		out:    &d,
	}); err != nil {
		return nil, err
	}
	return &d, nil
}

// PolicyPayments returns the payment schedule of an issued policy.
func (c *Client) PolicyPayments(ctx context.Context, userPolicyID string) ([]domain.UserPolicyPayment, error) {
	var out []domain.UserPolicyPayment
	err := c.do(ctx, request{
		op:     "policy_payments",
		method: http.MethodGet,
		path:   api.PolicyPath(url.PathEscape(userPolicyID)) + "/payments",
		bearer: true,
		out:    &out,
	})
	return out, err
}

// DownloadPolicyDocument streams the policy document into w.
func (c *Client) DownloadPolicyDocument(ctx context.Context, userPolicyID string, w io.Writer) error {
	return c.do(ctx, request{
		op:     "policy_download",
		method: http.MethodGet,
		path:   api.PolicyPath(url.PathEscape(userPolicyID)) + "/download",
		bearer: true,
		sink:   w,
	})
}

// DashboardSummary returns the standard user's dashboard counters.
func (c *Client) DashboardSummary(ctx context.Context) (domain.DashboardSummary, error) {
	var s domain.DashboardSummary
	err := c.do(ctx, request{
		op:     "dashboard_summary",
		method: http.MethodGet,
		path:   api.PathSummary,
		bearer: true,
		out:    &s,
	})
	return s, err
}

// IssuanceStats returns the admin issuance series.
func (c *Client) IssuanceStats(ctx context.Context) (domain.IssuanceStats, error) {
	var s domain.IssuanceStats
	err := c.do(ctx, request{
		op:     "issuance_stats",
		method: http.MethodGet,
		path:   api.PathIssuance,
		bearer: true,
		out:    &s,
	})
	return s, err
}
