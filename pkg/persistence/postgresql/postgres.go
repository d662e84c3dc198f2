// Package postgresql provides PostgreSQL persistence for workflows and the
// execution event log.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"github.com/nudgekit/nudgekit/pkg/persistence/sqlbase"
)

// Persistence implements the workflow store and execution event log on
// PostgreSQL. Visitor tags and usage counters live in Redis, not here.
type Persistence struct {
	db           *sql.DB
	logger       *slog.Logger
	workflowRepo *WorkflowRepository
	eventRepo    *ExecutionEventRepository
}

// NewPersistence connects, migrates, and returns the PostgreSQL layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:           database,
		logger:       logger,
		workflowRepo: NewWorkflowRepository(database, logger),
		eventRepo:    NewExecutionEventRepository(database, logger),
	}, nil
}

func (p *Persistence) WorkflowRepository() *WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) ExecutionEventRepository() *ExecutionEventRepository {
	return p.eventRepo
}

// HealthCheck verifies database connectivity.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
