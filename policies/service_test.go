package policies

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/portal/domain"
	perrors "go.pilab.hu/portal/errors"
)

type mockRemote struct{ mock.Mock }

func (m *mockRemote) OwnPolicies(ctx context.Context) ([]domain.PolicySummary, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).([]domain.PolicySummary)
	return p, args.Error(1)
}

func (m *mockRemote) PolicyDetail(ctx context.Context, id string) (*domain.PolicyDetails, error) {
	args := m.Called(ctx, id)
	d, _ := args.Get(0).(*domain.PolicyDetails)
	return d, args.Error(1)
}

func (m *mockRemote) PolicyPayments(ctx context.Context, id string) ([]domain.UserPolicyPayment, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).([]domain.UserPolicyPayment)
	return p, args.Error(1)
}

func (m *mockRemote) DownloadPolicyDocument(ctx context.Context, id string, w io.Writer) error {
	args := m.Called(ctx, id, w)
	if body, ok := args.Get(0).(string); ok {
		_, _ = io.WriteString(w, body)
	}
	return args.Error(1)
}

func (m *mockRemote) DashboardSummary(ctx context.Context) (domain.DashboardSummary, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(domain.DashboardSummary)
	return s, args.Error(1)
}

func (m *mockRemote) IssuanceStats(ctx context.Context) (domain.IssuanceStats, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(domain.IssuanceStats)
	return s, args.Error(1)
}

type mockGate struct{ mock.Mock }

func (m *mockGate) RequireRole(roles ...domain.Role) error {
	return m.Called(roles).Error(0)
}

func sampleDetail() *domain.PolicyDetails {
	d := &domain.PolicyDetails{}
	d.Policy.Name = "Home Shield"
	d.Policy.Type = domain.PolicyTypeHome
	d.UserPolicy.UserPolicyID = "up-1"
	d.UserPolicy.Status = domain.PolicyStatusActive
	return d
}

func TestDetail_LoadsPaymentsAfterPolicy(t *testing.T) {
	remote := new(mockRemote)
	payments := []domain.UserPolicyPayment{{Amount: 63.34, Status: domain.PaymentStatusPaid}}
	remote.On("PolicyDetail", mock.Anything, "up-1").Return(sampleDetail(), nil).Once()
	remote.On("PolicyPayments", mock.Anything, "up-1").Return(payments, nil).Once()

	d, err := NewService(remote, nil, nil).Detail(context.Background(), "up-1")
	require.NoError(t, err)
	assert.Equal(t, "Home Shield", d.Policy.Policy.Name)
	assert.Equal(t, payments, d.Payments)
	assert.NoError(t, d.PaymentsErr)
	remote.AssertExpectations(t)
}

func TestDetail_PolicyFailureSkipsPayments(t *testing.T) {
	remote := new(mockRemote)
	remote.On("PolicyDetail", mock.Anything, "up-9").
		Return(nil, perrors.NewNotFoundOrForbidden(404, "/users/policies/up-9", "")).Once()

	_, err := NewService(remote, nil, nil).Detail(context.Background(), "up-9")
	require.Error(t, err)
	assert.True(t, perrors.IsKind(err, perrors.KindNotFoundOrForbidden))
	remote.AssertNotCalled(t, "PolicyPayments", mock.Anything, mock.Anything)
}

func TestDetail_PaymentsFailureIsNotFatal(t *testing.T) {
	remote := new(mockRemote)
	remote.On("PolicyDetail", mock.Anything, "up-1").Return(sampleDetail(), nil).Once()
	remote.On("PolicyPayments", mock.Anything, "up-1").
		Return(nil, perrors.NewServer(500, "", "", "/users/policies/up-1/payments")).Once()

	s := NewService(remote, nil, nil)
	d, err := s.Detail(context.Background(), "up-1")
	require.NoError(t, err)
	assert.Error(t, d.PaymentsErr)

	issued := d.Issued()
	assert.Equal(t, "up-1", issued.UserPolicyID)
	assert.Empty(t, issued.PaymentSchedule)
}

func TestDownload(t *testing.T) {
	remote := new(mockRemote)
	remote.On("DownloadPolicyDocument", mock.Anything, "up-1", mock.Anything).Return("%PDF-1.7", nil).Once()

	var buf bytes.Buffer
	require.NoError(t, NewService(remote, nil, nil).Download(context.Background(), "up-1", &buf))
	assert.Equal(t, "%PDF-1.7", buf.String())
}

func TestIssuanceStats_RoleGate(t *testing.T) {
	remote := new(mockRemote)
	gate := new(mockGate)
	gate.On("RequireRole", []domain.Role{domain.RoleAdmin}).Return(perrors.ErrForbidden).Once()

	_, err := NewService(remote, gate, nil).IssuanceStats(context.Background())
	assert.ErrorIs(t, err, perrors.ErrForbidden)
	remote.AssertNotCalled(t, "IssuanceStats", mock.Anything)

	gate.On("RequireRole", []domain.Role{domain.RoleAdmin}).Return(nil).Once()
	stats := domain.IssuanceStats{Data: []domain.IssuancePoint{{Date: "2026-10-01", PoliciesIssued: 3}}}
	remote.On("IssuanceStats", mock.Anything).Return(stats, nil).Once()

	got, err := NewService(remote, gate, nil).IssuanceStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, got.Total())
}

func TestListOwn_PropagatesAuthError(t *testing.T) {
	remote := new(mockRemote)
	remote.On("OwnPolicies", mock.Anything).Return(nil, perrors.NewAuth("", errors.New("401"))).Once()

	_, err := NewService(remote, nil, nil).ListOwn(context.Background())
	assert.True(t, perrors.IsKind(err, perrors.KindAuth))
}
