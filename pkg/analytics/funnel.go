// Package analytics reconstructs per-run step progression, conversion, and
// drop-off from the execution event log. Everything here is recomputed on
// read; no derived table is ever persisted.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/persistence"
)

const topPathLimit = 5

// Aggregator computes analytics views over the execution event log.
type Aggregator struct {
	workflows persistence.WorkflowRepository
	eventLog  persistence.ExecutionEventRepository
	logger    *slog.Logger
}

func NewAggregator(
	workflows persistence.WorkflowRepository,
	eventLog persistence.ExecutionEventRepository,
	logger *slog.Logger,
) *Aggregator {
	return &Aggregator{
		workflows: workflows,
		eventLog:  eventLog,
		logger:    logger.With("module", "analytics"),
	}
}

// runJourney is one run's observed progression, keyed by canonical step
// order. Events may arrive batched and out of order; the canonical order
// reconstructs the sequence regardless of arrival order.
type runJourney struct {
	visitorID string
	// firstSeen holds the earliest timestamp per step order.
	firstSeen map[int]int64
	maxStep   int
	succeeded map[int]bool
	nodeNames []string
}

// Funnel computes the step funnel for one workflow over a date range. Rates
// are always in [0, 1]: steps nobody reached report 0, never a division
// artifact.
func (a *Aggregator) Funnel(ctx context.Context, workflowID string, dateRange models.DateRange) (*models.FunnelReport, error) {
	workflow, err := a.workflows.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("loading workflow %s: %w", workflowID, err)
	}

	events, err := a.eventLog.Query(ctx, workflowID, dateRange)
	if err != nil {
		return nil, fmt.Errorf("querying events for workflow %s: %w", workflowID, err)
	}

	steps := canonicalSteps(workflow)
	journeys := groupByRun(events)

	report := &models.FunnelReport{
		WorkflowID: workflowID,
		TotalRuns:  len(journeys),
		Steps:      make([]models.FunnelStep, 0, len(steps)),
	}

	visitors := make(map[string]struct{})
	for _, j := range journeys {
		visitors[j.visitorID] = struct{}{}
	}

	report.TotalVisitors = len(visitors)

	if len(steps) == 0 {
		return report, nil
	}

	lastOrder := steps[len(steps)-1].order

	reached := make([]int, len(steps))
	for i, step := range steps {
		reached[i] = countReached(journeys, step.order)
	}

	for _, j := range journeys {
		if j.maxStep == lastOrder && j.succeeded[lastOrder] {
			report.Completions++
		}
	}

	for i, step := range steps {
		var conversion float64

		if i+1 < len(steps) {
			conversion = safeRate(reached[i+1], reached[i])
		} else {
			conversion = safeRate(report.Completions, report.TotalRuns)
		}

		report.Steps = append(report.Steps, models.FunnelStep{
			StepID:          step.nodeID,
			StepName:        step.name,
			NodeType:        step.nodeType,
			StepOrder:       step.order,
			VisitorsReached: reached[i],
			ConversionRate:  conversion,
			DropOffRate:     safeComplement(conversion, reached[i]),
			AvgTimeOnStepMs: avgTimeOnStep(journeys, step.order, nextOrder(steps, i)),
		})
	}

	report.TopPaths = topPaths(journeys)

	return report, nil
}

type stepDef struct {
	nodeID   string
	name     string
	nodeType string
	order    int
}

// canonicalSteps lists the workflow's nodes in canonical order, the order
// funnel steps are reported in.
func canonicalSteps(workflow *models.Workflow) []stepDef {
	order := workflow.CanonicalOrder()

	steps := make([]stepDef, 0, len(order))

	for _, node := range workflow.Nodes {
		pos, ok := order[node.ID]
		if !ok {
			// Unreachable from any trigger; not part of the funnel.
			continue
		}

		steps = append(steps, stepDef{
			nodeID:   node.ID,
			name:     node.Name,
			nodeType: node.Type,
			order:    pos,
		})
	}

	sort.Slice(steps, func(i, j int) bool {
		if steps[i].order != steps[j].order {
			return steps[i].order < steps[j].order
		}

		return steps[i].nodeID < steps[j].nodeID
	})

	return steps
}

func groupByRun(events []*models.ExecutionEvent) map[string]*runJourney {
	journeys := make(map[string]*runJourney)

	// Sort by timestamp so node name sequences come out in arrival order
	// within equal step orders.
	sorted := make([]*models.ExecutionEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	for _, event := range sorted {
		if event.RunID == "" {
			continue
		}

		j, ok := journeys[event.RunID]
		if !ok {
			j = &runJourney{
				visitorID: event.VisitorID,
				firstSeen: make(map[int]int64),
				succeeded: make(map[int]bool),
				maxStep:   -1,
			}
			journeys[event.RunID] = j
		}

		ts := event.Timestamp.UnixMilli()
		if prev, seen := j.firstSeen[event.StepOrder]; !seen || ts < prev {
			j.firstSeen[event.StepOrder] = ts
		}

		if event.StepOrder > j.maxStep {
			j.maxStep = event.StepOrder
		}

		if event.Success {
			j.succeeded[event.StepOrder] = true
		}

		j.nodeNames = append(j.nodeNames, event.NodeName)
	}

	return journeys
}

func countReached(journeys map[string]*runJourney, order int) int {
	visitors := make(map[string]struct{})

	for _, j := range journeys {
		if j.maxStep >= order {
			visitors[j.visitorID] = struct{}{}
		}
	}

	return len(visitors)
}

func avgTimeOnStep(journeys map[string]*runJourney, order, next int) int64 {
	if next < 0 {
		return 0
	}

	var total, count int64

	for _, j := range journeys {
		from, okFrom := j.firstSeen[order]
		to, okTo := j.firstSeen[next]

		if okFrom && okTo && to >= from {
			total += to - from
			count++
		}
	}

	if count == 0 {
		return 0
	}

	return total / count
}

func nextOrder(steps []stepDef, i int) int {
	if i+1 < len(steps) {
		return steps[i+1].order
	}

	return -1
}

// safeRate divides and normalizes: zero denominator reports 0, and the
// result is clamped to [0, 1].
func safeRate(numerator, denominator int) float64 {
	if denominator <= 0 || numerator < 0 {
		return 0
	}

	rate := float64(numerator) / float64(denominator)
	if rate > 1 {
		return 1
	}

	return rate
}

// safeComplement is the drop-off for a conversion rate; a step nobody
// reached drops nobody, so it reports 0 rather than 1.
func safeComplement(conversion float64, reached int) float64 {
	if reached == 0 {
		return 0
	}

	return 1 - conversion
}

func topPaths(journeys map[string]*runJourney) []models.VisitorPath {
	counts := make(map[string]int)

	for _, j := range journeys {
		if len(j.nodeNames) == 0 {
			continue
		}

		counts[strings.Join(j.nodeNames, "\x00")]++
	}

	paths := make([]models.VisitorPath, 0, len(counts))
	for key, count := range counts {
		paths = append(paths, models.VisitorPath{
			Path:  strings.Split(key, "\x00"),
			Count: count,
		})
	}

	sort.Slice(paths, func(i, j int) bool {
		if paths[i].Count != paths[j].Count {
			return paths[i].Count > paths[j].Count
		}

		return strings.Join(paths[i].Path, "/") < strings.Join(paths[j].Path, "/")
	})

	if len(paths) > topPathLimit {
		paths = paths[:topPathLimit]
	}

	return paths
}
