// Package registry maps action node types onto their implementations. The
// action set is closed: dispatch goes through this single table, never
// through reflection on the type string.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/nudgekit/nudgekit/pkg/protocol"
)

type Registry struct {
	logger          *slog.Logger
	actionFactories map[string]protocol.ActionFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:          logger.With("module", "registry"),
		actionFactories: make(map[string]protocol.ActionFactory),
	}
}

func (r *Registry) RegisterAction(factory protocol.ActionFactory) {
	r.actionFactories[factory.ID()] = factory
}

// CreateAction builds the action for a node type from its settings. Settings
// are schema-checked first so a factory never sees a shape it cannot handle.
func (r *Registry) CreateAction(actionType string, settings map[string]any) (protocol.Action, error) {
	factory, ok := r.actionFactories[actionType]
	if !ok {
		return nil, fmt.Errorf("action type %q not registered", actionType)
	}

	if err := r.ValidateSettings(actionType, settings); err != nil {
		return nil, err
	}

	return factory.Create(settings)
}

// ActionTypes returns the registered action node types.
func (r *Registry) ActionTypes() []string {
	types := make([]string, 0, len(r.actionFactories))
	for actionType := range r.actionFactories {
		types = append(types, actionType)
	}

	return types
}

// HealthCheck reports whether the registry is usable.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.actionFactories) == 0 {
		return "no action factories registered", false
	}

	return fmt.Sprintf("%d action factories registered", len(r.actionFactories)), true
}
