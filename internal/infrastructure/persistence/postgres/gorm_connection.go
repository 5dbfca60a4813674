package postgres

import (
	"context"
	"fmt"

	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/config"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

// NewGormDB opens the GORM handle selected by the database driver
// configuration. Postgres serves production; SQLite covers single-node
// profiles and tests (":memory:" path).
//
// Parameters:
//   - cfg: database configuration
//   - log: logger instance
//
// Returns:
//   - *gorm.DB: open database handle
//   - error: open error if any
func NewGormDB(cfg config.DatabaseConfig, log logger.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = "climbauth.db"
		}
		dialector = sqlite.Open(path)
	case "postgres", "":
		dialector = gormpostgres.Open(cfg.GetDSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("database open failed: %w", err)
	}

	log.Info(context.Background(), "database handle opened",
		logger.String("driver", cfg.Driver),
	)
	return db, nil
}

// Migrate creates or updates the tables backing the SQL stores.
//
// Parameters:
//   - db: open database handle
//
// Returns:
//   - error: migration error if any
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.SigningKey{},
		&models.User{},
		&models.RevokedToken{},
	)
}
