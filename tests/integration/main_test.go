//go:build integration

// Package integration exercises the Redis and Postgres backed stores
// against real servers. The Redis server is started once for the whole
// package by TestMain via dockertest; the Postgres tests manage their own
// testcontainers instance. Set SKIP_DOCKER_TESTS=true to skip everything
// that needs a Docker daemon.
package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	goredis "github.com/redis/go-redis/v9"
)

// redisAddr points at the package-wide Redis container once TestMain has
// brought it up.
var redisAddr string

func skipIfNoDocker(t *testing.T) {
	t.Helper()
	if os.Getenv("SKIP_DOCKER_TESTS") == "true" {
		t.Skip("Skipping Docker-dependent tests")
	}
}

func TestMain(m *testing.M) {
	if os.Getenv("SKIP_DOCKER_TESTS") == "true" {
		os.Exit(m.Run())
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not connect to docker: %s", err)
	}

	resource, err := pool.Run("redis", "7-alpine", nil)
	if err != nil {
		log.Fatalf("Could not start redis: %s", err)
	}
	redisAddr = "localhost:" + resource.GetPort("6379/tcp")

	if err := pool.Retry(func() error {
		client := goredis.NewClient(&goredis.Options{Addr: redisAddr})
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return client.Ping(ctx).Err()
	}); err != nil {
		log.Fatalf("Could not connect to redis: %s", err)
	}

	code := m.Run()

	// You can't defer this because os.Exit doesn't care for defer
	if err := pool.Purge(resource); err != nil {
		log.Fatalf("Could not purge redis: %s", err)
	}

	os.Exit(code)
}
