// Package testutil holds the payroll service's test helpers: a shared
// PostgreSQL testcontainer with the schema applied, sqlmock wrappers, a
// recording event publisher and domain fixtures.
package testutil

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/paycore/paycore-backend/migrations"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresImage can be overridden with PAYCORE_TEST_POSTGRES_IMAGE
const PostgresImage = "postgres:15-alpine"

// PostgresContainer is a throwaway PostgreSQL with the payroll schema
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// StartPostgres runs a PostgreSQL container, waits until it accepts
// connections and applies the embedded migrations
func StartPostgres(ctx context.Context) (*PostgresContainer, *sqlx.DB, error) {
	image := PostgresImage
	if v := os.Getenv("PAYCORE_TEST_POSTGRES_IMAGE"); v != "" {
		image = v
	}

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(image),
		postgres.WithDatabase("paycore_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			// postgres restarts once after init; the second line is the real one
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	pc := &PostgresContainer{PostgresContainer: container}
	pc.DSN, err = container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", pc.DSN)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, nil, fmt.Errorf("failed to connect to test database: %w", err)
	}

	if err := migrations.Apply(ctx, db); err != nil {
		_ = container.Terminate(ctx)
		return nil, nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return pc, db, nil
}
