package mocks

import (
	"context"
	"crypto/rsa"

	"github.com/stretchr/testify/mock"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
)

type MockKeyManager struct {
	mock.Mock
}

func (m *MockKeyManager) EnsureKey(ctx context.Context) (*models.SigningKey, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SigningKey), args.Error(1)
}

func (m *MockKeyManager) Rotate(ctx context.Context) (*models.SigningKey, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SigningKey), args.Error(1)
}

func (m *MockKeyManager) RotateIfDue(ctx context.Context) (*models.SigningKey, bool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.SigningKey), args.Bool(1), args.Error(2)
}

func (m *MockKeyManager) SigningKey(ctx context.Context) (*models.SigningKey, *rsa.PrivateKey, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.SigningKey), args.Get(1).(*rsa.PrivateKey), args.Error(2)
}

func (m *MockKeyManager) VerificationKey(ctx context.Context, kid string) (*models.SigningKey, error) {
	args := m.Called(ctx, kid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SigningKey), args.Error(1)
}

func (m *MockKeyManager) PublicKeys(ctx context.Context) ([]*models.SigningKey, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SigningKey), args.Error(1)
}

func (m *MockKeyManager) PurgeExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
