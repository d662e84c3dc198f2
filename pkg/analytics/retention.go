package analytics

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/nudgekit/nudgekit/pkg/persistence"
)

const (
	// DefaultRetentionHours keeps raw execution events for thirty days.
	DefaultRetentionHours = 30 * 24

	retentionSchedule    = "0 3 * * *" // daily, 03:00
	monthlyResetSchedule = "0 0 1 * *" // first of the month, midnight
)

// Maintenance runs the scheduled background jobs: purging execution events
// past the retention window and resetting monthly usage counters at the
// billing-cycle boundary.
type Maintenance struct {
	eventLog       persistence.ExecutionEventRepository
	subscriptions  persistence.SubscriptionRepository
	retentionHours int
	cron           *cron.Cron
	logger         *slog.Logger
}

func NewMaintenance(
	eventLog persistence.ExecutionEventRepository,
	subscriptions persistence.SubscriptionRepository,
	retentionHours int,
	logger *slog.Logger,
) *Maintenance {
	if retentionHours <= 0 {
		retentionHours = DefaultRetentionHours
	}

	return &Maintenance{
		eventLog:       eventLog,
		subscriptions:  subscriptions,
		retentionHours: retentionHours,
		cron:           cron.New(),
		logger:         logger.With("module", "maintenance"),
	}
}

// Start registers the jobs and begins the scheduler. The context bounds each
// job run, not the scheduler lifetime; call Stop to shut down.
func (m *Maintenance) Start(ctx context.Context) error {
	_, err := m.cron.AddFunc(retentionSchedule, func() {
		m.RunRetention(ctx)
	})
	if err != nil {
		return err
	}

	_, err = m.cron.AddFunc(monthlyResetSchedule, func() {
		m.RunMonthlyReset(ctx)
	})
	if err != nil {
		return err
	}

	m.cron.Start()
	m.logger.InfoContext(ctx, "Maintenance scheduler started",
		"retention_hours", m.retentionHours)

	return nil
}

func (m *Maintenance) Stop() {
	<-m.cron.Stop().Done()
}

// RunRetention deletes execution events older than the retention window.
func (m *Maintenance) RunRetention(ctx context.Context) {
	deleted, err := m.eventLog.DeleteOlderThan(ctx, m.retentionHours)
	if err != nil {
		m.logger.ErrorContext(ctx, "Retention cleanup failed", "error", err)

		return
	}

	m.logger.InfoContext(ctx, "Retention cleanup complete",
		"deleted", deleted,
		"retention_hours", m.retentionHours)
}

// RunMonthlyReset zeroes the monthly usage counters for every account, when
// the configured subscription store supports the sweep.
func (m *Maintenance) RunMonthlyReset(ctx context.Context) {
	resetter, ok := m.subscriptions.(persistence.MonthlyUsageResetter)
	if !ok {
		m.logger.WarnContext(ctx, "Subscription store cannot sweep accounts, skipping monthly reset")

		return
	}

	accounts, err := resetter.ResetAllMonthlyUsage(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "Monthly usage reset failed", "error", err)

		return
	}

	m.logger.InfoContext(ctx, "Monthly usage reset complete", "accounts", accounts)
}
