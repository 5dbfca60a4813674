package postgres

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/repository"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

var _ repository.UserDirectory = (*userDirectory)(nil)

// userDirectory reads and updates account records in Postgres. A lookup
// miss surfaces as credentials_invalid so callers cannot distinguish an
// unknown identifier from a wrong password.
type userDirectory struct {
	db  *DBConnection
	log logger.Logger
}

// NewUserDirectory creates a Postgres-backed user directory.
//
// Parameters:
//   - db: database connection manager
//   - log: logger instance
//
// Returns:
//   - repository.UserDirectory: user directory instance
func NewUserDirectory(db *DBConnection, log logger.Logger) repository.UserDirectory {
	return &userDirectory{
		db:  db,
		log: log.WithComponent("user_directory"),
	}
}

const userColumns = `
	id, email, password_hash, tier, deactivated_at, created_at, updated_at
`

// FindByEmail returns the account with the given login identifier.
// Matching is case-insensitive on the stored email.
func (d *userDirectory) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`
	return d.scanUser(ctx, query, strings.TrimSpace(email))
}

// FindByID returns the account with the given identifier.
func (d *userDirectory) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`
	return d.scanUser(ctx, query, id)
}

func (d *userDirectory) scanUser(ctx context.Context, query string, arg string) (*models.User, error) {
	user := &models.User{}
	var deactivatedAt *time.Time

	err := d.db.Pool().QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Tier,
		&deactivatedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrCredentialsInvalid()
		}
		d.log.Error(ctx, "user lookup failed", err)
		return nil, errors.ErrStorageFailure("user.find", err)
	}

	user.DeactivatedAt = deactivatedAt
	return user, nil
}

// Save writes back a modified account record. The upsert keeps the write
// path identical for reactivation, tier changes, and password updates.
func (d *userDirectory) Save(ctx context.Context, user *models.User) error {
	if user == nil || user.ID == "" {
		return errors.ErrInvalidRequest("user record needs an id")
	}

	query := `
		INSERT INTO users (
			id, email, password_hash, tier, deactivated_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash,
			tier = EXCLUDED.tier,
			deactivated_at = EXCLUDED.deactivated_at,
			updated_at = NOW()
	`

	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := d.db.Pool().Exec(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		string(user.Tier),
		user.DeactivatedAt,
		createdAt,
	)
	if err != nil {
		d.log.Error(ctx, "user save failed", err,
			logger.String("user_id", user.ID),
		)
		return errors.ErrStorageFailure("user.save", err)
	}
	return nil
}
