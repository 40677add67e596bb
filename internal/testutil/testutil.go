package testutil

import (
	"context"
	"fmt"
	"testing"

	"event-ticket-gate/config"
	"event-ticket-gate/internal/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Setup connects to the test Postgres (port 5433) and Redis (port 6380) and applies the schema.
func Setup() (*pgxpool.Pool, *redis.Client, func(), error) {
	cfg := config.LoadTestConfig()

	testDB, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize test database: %w", err)
	}

	if err := database.Migrate(context.Background(), testDB); err != nil {
		testDB.Close()
		return nil, nil, nil, fmt.Errorf("failed to migrate test database: %w", err)
	}

	testRdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		testDB.Close()
		return nil, nil, nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	cleanup := func() {
		testDB.Close()
		testRdb.Close()
	}

	return testDB, testRdb, cleanup, nil
}

// SetupRedisOnly is for tests that only need Redis (inventory, audit stream).
func SetupRedisOnly() (*redis.Client, func(), error) {
	cfg := config.LoadTestConfig()
	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize redis: %w", err)
	}
	cleanup := func() { rdb.Close() }
	return rdb, cleanup, nil
}

// RequireInfra skips the calling test when the integration containers are down.
func RequireInfra(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Skipf("integration infrastructure unavailable: %v", err)
	}
}

// UniqueEmail lets packages share the test database without truncating it.
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%s@example.com", prefix, uuid.NewString())
}
