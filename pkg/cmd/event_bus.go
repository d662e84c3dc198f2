// Package cmd provides common initialization for the command-line binaries.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/nudgekit/nudgekit/pkg/channels/gochannel"
	"github.com/nudgekit/nudgekit/pkg/channels/kafka"
	"github.com/nudgekit/nudgekit/pkg/eventbus"
)

// NewEventBus creates the action queue for the given provider. "kafka" is
// the production choice; "gochannel" keeps everything in-process for local
// development and tests.
func NewEventBus(provider, serviceName string, logger *slog.Logger) eventbus.EventBus {
	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), serviceName)
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			panic(fmt.Errorf("failed to create GoChannel pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}

// InProcessProvider reports whether the provider has no external broker. A
// gochannel bus only delivers to subscribers on the same instance, so any
// process publishing to one must also run a worker on it.
func InProcessProvider(provider string) bool {
	return provider == "gochannel" || provider == ""
}
