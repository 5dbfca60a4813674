package postgres

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/repository"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

var _ repository.UserDirectory = (*gormUserDirectory)(nil)

// gormUserDirectory serves the single-node profile where accounts share
// the SQLite file with the signing keys. The pgx directory is the
// production Postgres path.
type gormUserDirectory struct {
	db  *gorm.DB
	log logger.Logger
}

// NewGormUserDirectory creates a user directory on a GORM handle.
//
// Parameters:
//   - db: open database handle
//   - log: logger instance
//
// Returns:
//   - repository.UserDirectory: user directory instance
func NewGormUserDirectory(db *gorm.DB, log logger.Logger) repository.UserDirectory {
	return &gormUserDirectory{
		db:  db,
		log: log.WithComponent("user_directory"),
	}
}

// FindByEmail returns the account with the given login identifier.
// Matching is case-insensitive on the stored email.
func (d *gormUserDirectory) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := d.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", strings.TrimSpace(email)).
		First(&user).Error
	if err != nil {
		return nil, d.mapLookupError(ctx, err)
	}
	return &user, nil
}

// FindByID returns the account with the given identifier.
func (d *gormUserDirectory) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := d.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, d.mapLookupError(ctx, err)
	}
	return &user, nil
}

func (d *gormUserDirectory) mapLookupError(ctx context.Context, err error) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.ErrCredentialsInvalid()
	}
	d.log.Error(ctx, "user lookup failed", err)
	return errors.ErrStorageFailure("user.find", err)
}

// Save upserts the account record, keyed on id.
func (d *gormUserDirectory) Save(ctx context.Context, user *models.User) error {
	if user == nil || user.ID == "" {
		return errors.ErrInvalidRequest("user record needs an id")
	}

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.UpdatedAt = time.Now().UTC()

	err := d.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"email", "password_hash", "tier", "deactivated_at", "updated_at",
			}),
		}).
		Create(user).Error
	if err != nil {
		d.log.Error(ctx, "user save failed", err,
			logger.String("user_id", user.ID),
		)
		return errors.ErrStorageFailure("user.save", err)
	}
	return nil
}
