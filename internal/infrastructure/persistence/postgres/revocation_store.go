package postgres

import (
	"context"
	"time"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/repository"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

var _ repository.RevocationStore = (*revocationStore)(nil)

// revocationStore keeps the durable revocation record in Postgres. Unlike
// the Redis deny-list, rows survive a cache flush and let the deny-list be
// rebuilt; the janitor purges rows once their retention window ends.
type revocationStore struct {
	db  *DBConnection
	log logger.Logger
}

// NewRevocationStore creates a Postgres-backed revocation store.
//
// Parameters:
//   - db: database connection manager
//   - log: logger instance
//
// Returns:
//   - repository.RevocationStore: revocation store instance
func NewRevocationStore(db *DBConnection, log logger.Logger) repository.RevocationStore {
	return &revocationStore{
		db:  db,
		log: log.WithComponent("revocation_store"),
	}
}

// Revoke inserts the revocation record. ON CONFLICT DO NOTHING makes
// re-revoking the same jti a no-op rather than an error.
func (s *revocationStore) Revoke(ctx context.Context, record *models.RevokedToken) error {
	if record == nil || record.JTI == "" {
		return errors.ErrInvalidRequest("revocation record needs a jti")
	}

	query := `
		INSERT INTO revoked_tokens (
			jti, subject_id, token_type, reason, revoked_at, expires_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
		ON CONFLICT (jti) DO NOTHING
	`

	_, err := s.db.Pool().Exec(ctx, query,
		record.JTI,
		record.SubjectID,
		string(record.TokenType),
		record.Reason,
		record.RevokedAt.UTC(),
		record.ExpiresAt.UTC(),
	)
	if err != nil {
		s.log.Error(ctx, "failed to write revocation record", err,
			logger.String("jti", record.JTI),
		)
		return errors.ErrStorageFailure("revocation.write", err)
	}
	return nil
}

// IsRevoked reports membership. Only rows still inside their retention
// window count: a row past expires_at denies nothing, because every token
// carrying that jti has itself expired.
func (s *revocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM revoked_tokens
			WHERE jti = $1 AND expires_at > NOW()
		)
	`

	var revoked bool
	if err := s.db.Pool().QueryRow(ctx, query, jti).Scan(&revoked); err != nil {
		return false, errors.ErrStorageFailure("revocation.check", err)
	}
	return revoked, nil
}

// PurgeExpiredBefore removes rows whose retention window ended before the
// cutoff.
func (s *revocationStore) PurgeExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM revoked_tokens
		WHERE expires_at < $1
	`

	start := time.Now()
	result, err := s.db.Pool().Exec(ctx, query, cutoff.UTC())
	if err != nil {
		s.log.Error(ctx, "failed to purge revocation records", err)
		return 0, errors.ErrStorageFailure("revocation.purge", err)
	}

	purged := result.RowsAffected()
	if purged > 0 {
		s.log.Info(ctx, "purged expired revocation records",
			logger.Int64("purged", purged),
			logger.Duration("elapsed_ms", time.Since(start)),
		)
	}
	return purged, nil
}
