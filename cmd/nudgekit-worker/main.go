// Package main provides the nudgekit action worker: it consumes queued
// action dispatches and executes them with retry and dead-lettering.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/nudgekit/nudgekit/pkg/cmd"
	"github.com/nudgekit/nudgekit/pkg/dispatch"
	"github.com/nudgekit/nudgekit/pkg/log"
	"github.com/nudgekit/nudgekit/pkg/otelhelper"
)

func main() {
	command := &cli.Command{
		Name:                  "nudgekit-worker",
		EnableShellCompletion: true,
		Usage:                 "Start workers to execute queued workflow actions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for workflows and the event log",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis connection URL for tags and usage counters",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Action queue provider (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "webhook-hmac-secret",
				Usage:   "Secret for signing outbound webhook payloads",
				Sources: cli.EnvVars("WEBHOOK_HMAC_SECRET"),
			},
			&cli.StringFlag{
				Name:    "email-endpoint",
				Usage:   "Outbound email delivery endpoint",
				Sources: cli.EnvVars("EMAIL_ENDPOINT"),
			},
			&cli.StringFlag{
				Name:    "email-api-key",
				Usage:   "API key for the email delivery endpoint",
				Sources: cli.EnvVars("EMAIL_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "email-from",
				Usage:   "From address for workflow emails",
				Sources: cli.EnvVars("EMAIL_FROM"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OTLP traces for action executions",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("nudgekit-worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing Nudgekit worker")

			persistence := cmd.NewPersistence(ctx, logger,
				command.String("database-url"),
				command.String("redis-url"))

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			registry := cmd.NewRegistry(logger, persistence, cmd.TransportConfig{
				EmailEndpoint: command.String("email-endpoint"),
				EmailAPIKey:   command.String("email-api-key"),
				EmailFrom:     command.String("email-from"),
				WebhookSecret: command.String("webhook-hmac-secret"),
				Timeout:       30 * time.Second,
			})

			eventBus := cmd.NewEventBus(command.String("event-bus"), "worker", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			executor := dispatch.NewExecutor(
				persistence.WorkflowRepository(),
				persistence.ExecutionEventRepository(),
				registry,
				logger,
			)

			if command.Bool("tracing") {
				tracer, err := otelhelper.NewTracer(ctx, "nudgekit-worker")
				if err != nil {
					return err
				}

				executor = executor.WithTracer(tracer)
			}

			worker := dispatch.NewWorker(eventBus, executor, logger)

			runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := worker.Start(runCtx); err != nil {
				logger.ErrorContext(runCtx, "Failed to start worker", "error", err)

				return err
			}

			<-runCtx.Done()
			logger.Info("Shutting down worker")

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
