package main

import (
	"context"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/nudgekit/nudgekit/pkg/analytics"
	"github.com/nudgekit/nudgekit/pkg/cmd"
	"github.com/nudgekit/nudgekit/pkg/dispatch"
	"github.com/nudgekit/nudgekit/pkg/log"
)

const defaultPort = 9080

func main() {
	logger := log.WithModule("engine")

	command := &cli.Command{
		Name:                  "nudgekit-engine",
		Usage:                 "Run the visitor automation engine and its HTTP API",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
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
				Name:    "event-bus",
				Usage:   "Action queue provider (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
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
			&cli.IntFlag{
				Name:    "retention-hours",
				Usage:   "Hours to keep execution events before cleanup",
				Value:   analytics.DefaultRetentionHours,
				Sources: cli.EnvVars("RETENTION_HOURS"),
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

			logger.InfoContext(ctx, "Initializing Nudgekit engine")

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
				Timeout:       5 * time.Second,
			})

			busProvider := command.String("event-bus")

			eventBus := cmd.NewEventBus(busProvider, "engine", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			// An in-process bus has no external worker to drain it, so
			// queued dispatches must be consumed here. Subscribe before
			// the API serves events: the channel is not persistent.
			if cmd.InProcessProvider(busProvider) {
				executor := dispatch.NewExecutor(
					persistence.WorkflowRepository(),
					persistence.ExecutionEventRepository(),
					registry,
					logger,
				)

				worker := dispatch.NewWorker(eventBus, executor, logger)
				if err := worker.Start(ctx); err != nil {
					return err
				}

				logger.InfoContext(ctx, "Started in-process action worker",
					"provider", busProvider)
			}

			maintenance := analytics.NewMaintenance(
				persistence.ExecutionEventRepository(),
				persistence.SubscriptionRepository(),
				command.Int("retention-hours"),
				logger,
			)
			if err := maintenance.Start(ctx); err != nil {
				return err
			}
			defer maintenance.Stop()

			api := NewAPI(logger, persistence, registry, eventBus)

			return api.Start(command.Int("port"))
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		logger.Error("Engine terminated", "error", err)
		os.Exit(1)
	}
}
