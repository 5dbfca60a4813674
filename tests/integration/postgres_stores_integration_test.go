//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/config"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	postgresinfra "github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/infrastructure/persistence/postgres"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

const (
	pgDatabase = "climbauth_test"
	pgUser     = "climbauth"
	pgPassword = "climbauth-secret"
)

// startPostgres brings up a disposable Postgres, runs the migrations, and
// returns a database configuration pointing at it.
func startPostgres(t *testing.T) config.DatabaseConfig {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase(pgDatabase),
		postgres.WithUsername(pgUser),
		postgres.WithPassword(pgPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Driver:   "postgres",
		Host:     host,
		Port:     port.Int(),
		User:     pgUser,
		Password: pgPassword,
		Database: pgDatabase,
		SSLMode:  "disable",
		MaxConns: 4,
	}

	db, err := postgresinfra.NewGormDB(cfg, logger.NewNoopLogger())
	require.NoError(t, err)
	require.NoError(t, postgresinfra.Migrate(db))

	return cfg
}

func TestPostgresStores(t *testing.T) {
	skipIfNoDocker(t)
	ctx := context.Background()

	cfg := startPostgres(t)
	log := logger.NewNoopLogger()

	conn, err := postgresinfra.NewDBConnection(ctx, cfg, log)
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	t.Run("user directory round trip", func(t *testing.T) {
		directory := postgresinfra.NewUserDirectory(conn, log)

		user := &models.User{
			ID:           "user-1001",
			Email:        "Lena@crag.example",
			PasswordHash: "$2a$04$notarealhashnotarealhashnotarealhash",
			Tier:         constants.TierPro,
			CreatedAt:    time.Now().UTC(),
		}
		require.NoError(t, directory.Save(ctx, user))

		// Lookup is case-insensitive on the identifier.
		found, err := directory.FindByEmail(ctx, "lena@CRAG.example")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
		assert.Equal(t, constants.TierPro, found.Tier)

		found, err = directory.FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Email, found.Email)

		// Deactivation survives the upsert path.
		now := time.Now().UTC()
		found.DeactivatedAt = &now
		require.NoError(t, directory.Save(ctx, found))
		found, err = directory.FindByID(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, found.DeactivatedAt)
		assert.True(t, found.IsDeactivated())

		// A missing account answers exactly like a bad credential.
		_, err = directory.FindByEmail(ctx, "ghost@crag.example")
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, constants.ErrCodeCredentialsInvalid))
	})

	t.Run("revocation store retention", func(t *testing.T) {
		store := postgresinfra.NewRevocationStore(conn, log)

		jti := uuid.New().String()
		now := time.Now()
		require.NoError(t, store.Revoke(ctx, &models.RevokedToken{
			JTI:       jti,
			SubjectID: "user-1001",
			TokenType: constants.TokenTypeRefresh,
			Reason:    "logout",
			RevokedAt: now,
			ExpiresAt: now.Add(time.Hour),
		}))

		revoked, err := store.IsRevoked(ctx, jti)
		require.NoError(t, err)
		assert.True(t, revoked)

		// Duplicate revocation is a no-op.
		require.NoError(t, store.Revoke(ctx, &models.RevokedToken{
			JTI:       jti,
			SubjectID: "user-1001",
			TokenType: constants.TokenTypeRefresh,
			Reason:    "logout",
			RevokedAt: now,
			ExpiresAt: now.Add(time.Hour),
		}))

		// A row past its token expiry stops denying and the janitor can
		// purge it.
		stale := uuid.New().String()
		require.NoError(t, store.Revoke(ctx, &models.RevokedToken{
			JTI:       stale,
			SubjectID: "user-1001",
			TokenType: constants.TokenTypeAccess,
			Reason:    "logout",
			RevokedAt: now.Add(-2 * time.Hour),
			ExpiresAt: now.Add(-time.Hour),
		}))
		revoked, err = store.IsRevoked(ctx, stale)
		require.NoError(t, err)
		assert.False(t, revoked)

		purged, err := store.PurgeExpiredBefore(ctx, now)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, purged, int64(1))

		revoked, err = store.IsRevoked(ctx, jti)
		require.NoError(t, err)
		assert.True(t, revoked, "live record must survive the purge")
	})

	t.Run("signing key store", func(t *testing.T) {
		db, err := postgresinfra.NewGormDB(cfg, log)
		require.NoError(t, err)
		store := postgresinfra.NewKeyStore(db)

		now := time.Now().UTC()
		fresh := models.NewSigningKey("kid-fresh", "-----BEGIN PUBLIC KEY-----", "ciphertext",
			now, 24*time.Hour, 24*time.Hour)
		old := models.NewSigningKey("kid-old", "-----BEGIN PUBLIC KEY-----", "ciphertext",
			now.Add(-72*time.Hour), 24*time.Hour, 24*time.Hour)
		require.NoError(t, store.Create(ctx, fresh))
		require.NoError(t, store.Create(ctx, old))

		got, err := store.GetByKID(ctx, "kid-fresh")
		require.NoError(t, err)
		assert.Equal(t, fresh.KID, got.KID)

		usable, err := store.ListUsable(ctx, now)
		require.NoError(t, err)
		kids := make([]string, 0, len(usable))
		for _, k := range usable {
			kids = append(kids, k.KID)
		}
		assert.Contains(t, kids, "kid-fresh")
		assert.NotContains(t, kids, "kid-old")

		removed, err := store.DeleteExpiredBefore(ctx, now.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)

		_, err = store.GetByKID(ctx, "kid-old")
		require.Error(t, err)
	})
}
