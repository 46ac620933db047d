// Package testinfra starts throwaway services for integration tests.
package testinfra

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	PostgresImage    = "postgres:16-alpine"
	PostgresUser     = "msgload"
	PostgresPassword = "msgload"
	PostgresDB       = "msgload"

	// SkipContainersEnv disables container-backed tests when set to 1.
	SkipContainersEnv = "MSGLOAD_SKIP_CONTAINERS"
)

type PostgresContainer struct {
	*postgres.PostgresContainer
	ConnString string
}

// StartPostgres runs a disposable PostgreSQL server and returns its URL.
func StartPostgres(ctx context.Context) (*PostgresContainer, error) {
	ctr, err := postgres.Run(ctx,
		PostgresImage,
		postgres.WithUsername(PostgresUser),
		postgres.WithPassword(PostgresPassword),
		postgres.WithDatabase(PostgresDB),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres: %w", err)
	}

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		ctr.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get connection string: %w", err)
	}

	return &PostgresContainer{PostgresContainer: ctr, ConnString: connStr}, nil
}

// RequirePostgres starts a container for the calling test and terminates it
// on cleanup. The test is skipped under -short or when SkipContainersEnv is 1.
func RequirePostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	if os.Getenv(SkipContainersEnv) == "1" {
		t.Skipf("skipping container test: %s=1", SkipContainersEnv)
	}

	ctx := context.Background()
	ctr, err := StartPostgres(ctx)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() {
		ctr.Terminate(context.Background()) //nolint:errcheck
	})
	return ctr
}
