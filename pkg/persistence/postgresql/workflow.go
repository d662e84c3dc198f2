package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/persistence"
)

// WorkflowRepository handles workflow-related database operations. The engine
// only reads: workflow CRUD belongs to the external definition service, which
// writes to the same table.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

// ActiveWorkflows returns all active workflows for a site.
func (r *WorkflowRepository) ActiveWorkflows(ctx context.Context, siteID string) ([]*models.Workflow, error) {
	query := `
		SELECT
			id
		  , site_id
		  , account_id
		  , name
		  , status
		  , nodes
		  , connections
		  , created_at
		  , updated_at
		FROM workflows
		WHERE site_id = $1 AND status = $2
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, siteID, models.WorkflowStatusActive)
	if err != nil {
		return nil, &persistence.WorkflowError{Op: "ActiveWorkflows", SiteID: siteID, Err: err}
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

// WorkflowByID returns a single workflow by id.
func (r *WorkflowRepository) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `
		SELECT
			id
		  , site_id
		  , account_id
		  , name
		  , status
		  , nodes
		  , connections
		  , created_at
		  , updated_at
		FROM workflows
		WHERE id = $1
	`

	row := r.db.QueryRowContext(ctx, query, id)

	workflow, err := scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("WorkflowByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("WorkflowByID", id, err)
	}

	return workflow, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow        models.Workflow
		nodesJSON       []byte
		connectionsJSON []byte
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.SiteID,
		&workflow.AccountID,
		&workflow.Name,
		&workflow.Status,
		&nodesJSON,
		&connectionsJSON,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(nodesJSON, &workflow.Nodes)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow nodes: %w", err)
	}

	err = json.Unmarshal(connectionsJSON, &workflow.Connections)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow connections: %w", err)
	}

	return &workflow, nil
}
