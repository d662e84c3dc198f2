package persistence

import "context"

// Composite assembles a Persistence from repositories served by different
// backends: workflows and the event log usually live in PostgreSQL while
// tags and usage counters live in Redis.
type Composite struct {
	Workflows     WorkflowRepository
	Tags          VisitorTagRepository
	Events        ExecutionEventRepository
	Subscriptions SubscriptionRepository

	HealthChecks []func(ctx context.Context) error
	Closers      []func(ctx context.Context) error
}

func (c *Composite) WorkflowRepository() WorkflowRepository           { return c.Workflows }
func (c *Composite) VisitorTagRepository() VisitorTagRepository       { return c.Tags }
func (c *Composite) ExecutionEventRepository() ExecutionEventRepository { return c.Events }
func (c *Composite) SubscriptionRepository() SubscriptionRepository   { return c.Subscriptions }

func (c *Composite) HealthCheck(ctx context.Context) error {
	for _, check := range c.HealthChecks {
		if err := check(ctx); err != nil {
			return err
		}
	}

	return nil
}

// Close shuts every backend down, returning the first error while still
// closing the rest.
func (c *Composite) Close(ctx context.Context) error {
	var firstErr error

	for _, closer := range c.Closers {
		if err := closer(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
