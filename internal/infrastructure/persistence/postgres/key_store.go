package postgres

import (
	"context"
	stderrors "errors"
	"time"

	"gorm.io/gorm"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/repository"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
)

var _ repository.KeyStore = (*keyStore)(nil)

// keyStore is the GORM-backed signing key store. Rows are append-only:
// rotation inserts, retention deletes, nothing updates.
type keyStore struct {
	db *gorm.DB
}

// NewKeyStore creates a SQL-backed signing key store.
func NewKeyStore(db *gorm.DB) repository.KeyStore {
	return &keyStore{db: db}
}

// Create inserts a new signing key record.
func (s *keyStore) Create(ctx context.Context, key *models.SigningKey) error {
	if err := s.db.WithContext(ctx).Create(key).Error; err != nil {
		return errors.ErrStorageFailure("key.create", err)
	}
	return nil
}

// GetByKID returns the key with the given identifier, expired or not.
func (s *keyStore) GetByKID(ctx context.Context, kid string) (*models.SigningKey, error) {
	var key models.SigningKey
	err := s.db.WithContext(ctx).Where("kid = ?", kid).First(&key).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrKeyNotFound(kid)
		}
		return nil, errors.ErrStorageFailure("key.get", err)
	}
	return &key, nil
}

// ListUsable returns all keys expiring after the given instant, newest
// first, so the first entry is the current signing key.
func (s *keyStore) ListUsable(ctx context.Context, now time.Time) ([]*models.SigningKey, error) {
	var keys []*models.SigningKey
	err := s.db.WithContext(ctx).
		Where("expires_at > ?", now.UTC()).
		Order("created_at DESC").
		Find(&keys).Error
	if err != nil {
		return nil, errors.ErrStorageFailure("key.list", err)
	}
	return keys, nil
}

// DeleteExpiredBefore removes keys that expired before the cutoff.
func (s *keyStore) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at < ?", cutoff.UTC()).
		Delete(&models.SigningKey{})
	if result.Error != nil {
		return 0, errors.ErrStorageFailure("key.purge", result.Error)
	}
	return result.RowsAffected, nil
}
