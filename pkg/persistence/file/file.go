// Package file provides a JSON-file workflow store for local development:
// one workflow definition per file under a root directory. The engine treats
// it the same way as the external workflow store, read-only.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/persistence"
)

// WorkflowRepository reads workflow definitions from disk on every call, so
// edited files take effect without a restart.
type WorkflowRepository struct {
	root string
}

// NewWorkflowRepository creates a repository rooted at the given directory.
// Accepts a "file://" prefix for symmetry with database URLs.
func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: strings.TrimPrefix(root, "file://")}
}

// ActiveWorkflows returns the active workflows for a site.
func (r *WorkflowRepository) ActiveWorkflows(ctx context.Context, siteID string) ([]*models.Workflow, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	var active []*models.Workflow

	for _, w := range all {
		if w.SiteID == siteID && w.IsActive() {
			active = append(active, w)
		}
	}

	return active, nil
}

// WorkflowByID returns a single workflow by id.
func (r *WorkflowRepository) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	for _, w := range all {
		if w.ID == id {
			return w, nil
		}
	}

	return nil, persistence.NewWorkflowError("WorkflowByID", id, persistence.ErrWorkflowNotFound)
}

// HealthCheck verifies the root directory exists.
func (r *WorkflowRepository) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(r.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (r *WorkflowRepository) loadAll(_ context.Context) ([]*models.Workflow, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow directory %s: %w", r.root, err)
	}

	var workflows []*models.Workflow

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(r.root, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read workflow file %s: %w", entry.Name(), err)
		}

		var workflow models.Workflow

		err = json.Unmarshal(data, &workflow)
		if err != nil {
			return nil, fmt.Errorf("failed to parse workflow file %s: %w", entry.Name(), err)
		}

		workflows = append(workflows, &workflow)
	}

	return workflows, nil
}
