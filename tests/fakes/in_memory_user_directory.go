package fakes

import (
	"context"
	"strings"
	"sync"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/repository"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
)

// InMemoryUserDirectory is a map-backed UserDirectory for tests.
type InMemoryUserDirectory struct {
	mu    sync.RWMutex
	byID  map[string]*models.User
	email map[string]string // lowercased email -> user id
}

// NewInMemoryUserDirectory creates an empty directory.
func NewInMemoryUserDirectory() *InMemoryUserDirectory {
	return &InMemoryUserDirectory{
		byID:  make(map[string]*models.User),
		email: make(map[string]string),
	}
}

// FindByEmail looks up an account by email, case-insensitively.
func (d *InMemoryUserDirectory) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.email[strings.ToLower(email)]
	if !ok {
		return nil, errors.ErrCredentialsInvalid()
	}
	cp := *d.byID[id]
	return &cp, nil
}

// FindByID looks up an account by identifier.
func (d *InMemoryUserDirectory) FindByID(ctx context.Context, id string) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	user, ok := d.byID[id]
	if !ok {
		return nil, errors.ErrCredentialsInvalid()
	}
	cp := *user
	return &cp, nil
}

// Save inserts or replaces an account record.
func (d *InMemoryUserDirectory) Save(ctx context.Context, user *models.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *user
	d.byID[user.ID] = &cp
	d.email[strings.ToLower(user.Email)] = user.ID
	return nil
}

var _ repository.UserDirectory = (*InMemoryUserDirectory)(nil)
