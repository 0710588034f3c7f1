package session

import (
	"context"

	"github.com/stretchr/testify/mock"

	"go.pilab.hu/portal/domain"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Signup(ctx context.Context, req domain.SignupRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *mockGateway) Login(ctx context.Context, email, password string) error {
	args := m.Called(ctx, email, password)
	return args.Error(0)
}

func (m *mockGateway) Refresh(ctx context.Context) (domain.AccessToken, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.AccessToken), args.Error(1)
}

func (m *mockGateway) Logout(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockGateway) OwnProfile(ctx context.Context) (*domain.User, error) {
	args := m.Called(ctx)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}
