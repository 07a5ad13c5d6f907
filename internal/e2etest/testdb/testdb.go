// Package testdb starts a throwaway postgres for storage tests.
package testdb

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type TestDBInstance struct {
	DSN       string
	container *postgres.PostgresContainer
}

func NewTestDBInstance() (instance *TestDBInstance, err error) {
	ctx := context.Background()

	// testcontainers panics when no docker host can be found.
	defer func() {
		if r := recover(); r != nil {
			instance, err = nil, fmt.Errorf("docker is not available: %v", r)
		}
	}()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("webstore"),
		postgres.WithUsername("webstore"),
		postgres.WithPassword("webstore"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &TestDBInstance{DSN: dsn, container: container}, nil
}

func (db *TestDBInstance) Down() {
	if db.container != nil {
		_ = db.container.Terminate(context.Background())
	}
}
