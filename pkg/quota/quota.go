// Package quota enforces per-account usage limits before action dispatch.
package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/persistence"
)

// ErrQuotaExceeded marks a run stopped before dispatch because the account
// is at its monthly event limit.
var ErrQuotaExceeded = errors.New("quota exceeded")

// ExceededError carries the counters at the moment of refusal.
type ExceededError struct {
	AccountID string
	Resource  models.UsageResource
	Usage     int64
	Limit     int64
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("account %s exceeded %s quota: %d of %d used", e.AccountID, e.Resource, e.Usage, e.Limit)
}

func (e *ExceededError) Unwrap() error {
	return ErrQuotaExceeded
}

// Gate performs the atomic reserve-then-dispatch check. The reservation is
// charged on attempt: a subsequent action failure does not refund it.
type Gate struct {
	subscriptions persistence.SubscriptionRepository
	logger        *slog.Logger
}

func NewGate(subscriptions persistence.SubscriptionRepository, logger *slog.Logger) *Gate {
	return &Gate{
		subscriptions: subscriptions,
		logger:        logger.With("module", "quota"),
	}
}

// Reserve atomically checks and increments the account's monthly event
// counter. A missing subscription denies the run: billing state must exist
// before any action runs on the account's behalf.
func (g *Gate) Reserve(ctx context.Context, accountID string) error {
	decision, err := g.subscriptions.CheckAndReserve(ctx, accountID, models.ResourceMonthlyEvents, 1)
	if err != nil {
		return fmt.Errorf("reserving quota for account %s: %w", accountID, err)
	}

	if !decision.Allowed {
		g.logger.WarnContext(ctx, "Quota exceeded",
			"account_id", accountID,
			"usage", decision.Usage,
			"limit", decision.Limit)

		return &ExceededError{
			AccountID: accountID,
			Resource:  models.ResourceMonthlyEvents,
			Usage:     decision.Usage,
			Limit:     decision.Limit,
		}
	}

	return nil
}
