package repository

import (
	"context"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
)

// UserDirectory looks up and updates the account records the login and
// password reset flows operate on. Account creation and profile management
// belong to the wider application, not this service.
type UserDirectory interface {
	// FindByEmail returns the account with the given login identifier.
	// Returns a credentials_invalid error when no account exists, so
	// lookup misses and password mismatches are indistinguishable.
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// FindByID returns the account with the given identifier
	FindByID(ctx context.Context, id string) (*models.User, error)

	// Save writes back a modified account record (reactivation, tier
	// change, password update)
	Save(ctx context.Context, user *models.User) error
}
