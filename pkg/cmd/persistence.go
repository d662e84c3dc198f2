package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nudgekit/nudgekit/pkg/persistence"
	"github.com/nudgekit/nudgekit/pkg/persistence/file"
	"github.com/nudgekit/nudgekit/pkg/persistence/memory"
	"github.com/nudgekit/nudgekit/pkg/persistence/postgresql"
	"github.com/nudgekit/nudgekit/pkg/persistence/redis"
)

// NewPersistence composes the storage backends. Workflows and the execution
// event log come from the database URL (postgres:// in production, file://
// for local workflow definitions); tags and usage counters come from Redis.
// Empty URLs fall back to the in-memory store, which only suits tests and
// single-process development.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL, redisURL string) persistence.Persistence {
	composite := &persistence.Composite{}

	mem := memory.NewPersistence()

	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		pg, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(err)
		}

		composite.Workflows = pg.WorkflowRepository()
		composite.Events = pg.ExecutionEventRepository()
		composite.HealthChecks = append(composite.HealthChecks, pg.HealthCheck)
		composite.Closers = append(composite.Closers, pg.Close)
	case strings.HasPrefix(databaseURL, "file://"):
		composite.Workflows = file.NewWorkflowRepository(databaseURL)
		composite.Events = mem.ExecutionEventRepository()
	default:
		composite.Workflows = mem.WorkflowRepository()
		composite.Events = mem.ExecutionEventRepository()
	}

	if redisURL != "" {
		rd, err := redis.NewPersistence(ctx, logger, redisURL)
		if err != nil {
			panic(err)
		}

		composite.Tags = rd.VisitorTagRepository()
		composite.Subscriptions = rd.SubscriptionRepository()
		composite.HealthChecks = append(composite.HealthChecks, rd.HealthCheck)
		composite.Closers = append(composite.Closers, rd.Close)
	} else {
		composite.Tags = mem.VisitorTagRepository()
		composite.Subscriptions = mem.SubscriptionRepository()
	}

	return composite
}
