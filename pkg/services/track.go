package services

import (
	"context"
	"fmt"

	"github.com/nudgekit/nudgekit/pkg/engine"
	"github.com/nudgekit/nudgekit/pkg/models"
)

// MaxBatchSize bounds how many events one batch request may carry.
const MaxBatchSize = 100

// Track validates inbound tracker events and feeds them to the engine.
type Track struct {
	engine *engine.Engine
}

func NewTrack(eng *engine.Engine) *Track {
	return &Track{engine: eng}
}

// ProcessEvent runs one event through the engine. Validation failures are
// returned; engine-level node failures are recorded in the execution log and
// never surface here.
func (s *Track) ProcessEvent(ctx context.Context, event *models.BrowserEvent) ([]engine.RunResult, error) {
	if err := validateEvent(event); err != nil {
		return nil, err
	}

	return s.engine.ProcessEvent(ctx, event)
}

// BatchItem is the outcome of one event in a batch.
type BatchItem struct {
	Runs  []engine.RunResult `json:"runs,omitempty"`
	Error string             `json:"error,omitempty"`
}

// ProcessBatch runs each event independently: one malformed or failing event
// never blocks the rest of the batch.
func (s *Track) ProcessBatch(ctx context.Context, batch []*models.BrowserEvent) ([]BatchItem, error) {
	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}

	if len(batch) > MaxBatchSize {
		return nil, fmt.Errorf("%w: %d events, maximum %d", ErrBatchTooLarge, len(batch), MaxBatchSize)
	}

	results := make([]BatchItem, 0, len(batch))

	for _, event := range batch {
		runs, err := s.ProcessEvent(ctx, event)

		item := BatchItem{Runs: runs}
		if err != nil {
			item.Error = err.Error()
		}

		results = append(results, item)
	}

	return results, nil
}

func validateEvent(event *models.BrowserEvent) error {
	switch {
	case event == nil:
		return ErrInvalidRequest
	case event.SiteID == "":
		return ErrSiteIDRequired
	case event.VisitorID == "":
		return ErrVisitorIDRequired
	case event.Type == "":
		return ErrEventTypeRequired
	}

	return nil
}
