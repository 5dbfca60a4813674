package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/service"
)

type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) Allow(ctx context.Context, identifier string) (*service.RateLimitDecision, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RateLimitDecision), args.Error(1)
}

func (m *MockRateLimiter) Reset(ctx context.Context, identifier string) error {
	args := m.Called(ctx, identifier)
	return args.Error(0)
}
