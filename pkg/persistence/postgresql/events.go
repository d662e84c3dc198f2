package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nudgekit/nudgekit/pkg/models"
)

// ExecutionEventRepository is the append-only execution event log backed by
// PostgreSQL. Rows are never updated.
type ExecutionEventRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionEventRepository creates a new execution event repository.
func NewExecutionEventRepository(db *sql.DB, logger *slog.Logger) *ExecutionEventRepository {
	return &ExecutionEventRepository{db: db, logger: logger}
}

// Append inserts one execution event. Assigns id and timestamp when unset.
func (r *ExecutionEventRepository) Append(ctx context.Context, event *models.ExecutionEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	var payloadJSON []byte

	if event.Payload != nil {
		var err error

		payloadJSON, err = json.Marshal(event.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal event payload: %w", err)
		}
	}

	query := `
		INSERT INTO execution_events (
			id, site_id, workflow_id, visitor_id, run_id, node_id, node_name,
			node_type, kind, step_order, timestamp, success, detail,
			execution_time_ms, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.SiteID,
		event.WorkflowID,
		event.VisitorID,
		event.RunID,
		event.NodeID,
		event.NodeName,
		event.NodeType,
		event.Kind,
		event.StepOrder,
		event.Timestamp,
		event.Success,
		event.Detail,
		event.ExecutionTimeMs,
		payloadJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to append execution event: %w", err)
	}

	return nil
}

// Query returns all events for a workflow inside the date range, oldest first.
func (r *ExecutionEventRepository) Query(ctx context.Context, workflowID string, dateRange models.DateRange) ([]*models.ExecutionEvent, error) {
	query := `
		SELECT
			id, site_id, workflow_id, visitor_id, run_id, node_id, node_name,
			node_type, kind, step_order, timestamp, success, detail,
			execution_time_ms, payload
		FROM execution_events
		WHERE workflow_id = $1
		  AND ($2::timestamptz IS NULL OR timestamp >= $2)
		  AND ($3::timestamptz IS NULL OR timestamp <= $3)
		ORDER BY timestamp ASC
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID, nullableTime(dateRange.Start), nullableTime(dateRange.End))
	if err != nil {
		return nil, fmt.Errorf("failed to query execution events: %w", err)
	}

	return r.collectEvents(ctx, rows)
}

// QueryPage returns a page of events for a workflow, newest first.
func (r *ExecutionEventRepository) QueryPage(ctx context.Context, workflowID string, limit, offset int) ([]*models.ExecutionEvent, error) {
	query := `
		SELECT
			id, site_id, workflow_id, visitor_id, run_id, node_id, node_name,
			node_type, kind, step_order, timestamp, success, detail,
			execution_time_ms, payload
		FROM execution_events
		WHERE workflow_id = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution event page: %w", err)
	}

	return r.collectEvents(ctx, rows)
}

// HasVisitorEvents reports whether any prior event exists for the visitor on
// the site. Backs the New vs Returning condition.
func (r *ExecutionEventRepository) HasVisitorEvents(ctx context.Context, siteID, visitorID string) (bool, error) {
	var exists bool

	query := `SELECT EXISTS (SELECT 1 FROM execution_events WHERE site_id = $1 AND visitor_id = $2)`

	err := r.db.QueryRowContext(ctx, query, siteID, visitorID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check visitor events: %w", err)
	}

	return exists, nil
}

// CountByWorkflow returns the total number of events for a workflow.
func (r *ExecutionEventRepository) CountByWorkflow(ctx context.Context, workflowID string) (int64, error) {
	var count int64

	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM execution_events WHERE workflow_id = $1`, workflowID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count execution events: %w", err)
	}

	return count, nil
}

// DeleteOlderThan removes events past the retention window.
func (r *ExecutionEventRepository) DeleteOlderThan(ctx context.Context, cutoffHours int) (int64, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(cutoffHours) * time.Hour)

	result, err := r.db.ExecContext(ctx, `DELETE FROM execution_events WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old execution events: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return deleted, nil
}

func (r *ExecutionEventRepository) collectEvents(ctx context.Context, rows *sql.Rows) ([]*models.ExecutionEvent, error) {
	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	events := make([]*models.ExecutionEvent, 0)

	for rows.Next() {
		var (
			event       models.ExecutionEvent
			payloadJSON []byte
		)

		err := rows.Scan(
			&event.ID,
			&event.SiteID,
			&event.WorkflowID,
			&event.VisitorID,
			&event.RunID,
			&event.NodeID,
			&event.NodeName,
			&event.NodeType,
			&event.Kind,
			&event.StepOrder,
			&event.Timestamp,
			&event.Success,
			&event.Detail,
			&event.ExecutionTimeMs,
			&payloadJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution event: %w", err)
		}

		if len(payloadJSON) > 0 {
			err = json.Unmarshal(payloadJSON, &event.Payload)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal event payload: %w", err)
			}
		}

		events = append(events, &event)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating execution events: %w", err)
	}

	return events, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}

	return t
}
