package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
)

type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) IssueTokenPair(ctx context.Context, userID string, scopes []string) (*models.TokenPair, error) {
	args := m.Called(ctx, userID, scopes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenPair), args.Error(1)
}

func (m *MockTokenService) IssueResetToken(ctx context.Context, userID string) (string, time.Time, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockTokenService) VerifyToken(ctx context.Context, tokenString string, expectedType constants.TokenType) (*models.TokenData, error) {
	args := m.Called(ctx, tokenString, expectedType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenData), args.Error(1)
}

func (m *MockTokenService) RevokeToken(ctx context.Context, jti, subjectID string, tokenType constants.TokenType, reason string) error {
	args := m.Called(ctx, jti, subjectID, tokenType, reason)
	return args.Error(0)
}

func (m *MockTokenService) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	args := m.Called(ctx, jti)
	return args.Bool(0), args.Error(1)
}

func (m *MockTokenService) ExtractUnverified(tokenString string) (*models.TokenData, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenData), args.Error(1)
}
