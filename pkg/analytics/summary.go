package analytics

import (
	"context"
	"fmt"
	"sort"

	"github.com/nudgekit/nudgekit/pkg/models"
)

const recentEventLimit = 50

// Summary is the top-line analytics view for one workflow.
type Summary struct {
	WorkflowID     string        `json:"workflow_id"`
	TotalTriggers  int           `json:"total_triggers"`
	TotalActions   int           `json:"total_actions"`
	ConversionRate float64       `json:"conversion_rate"`
	Daily          []DailyCount  `json:"daily"`
	Hourly         []HourlyCount `json:"hourly"`

	RecentEvents []*models.ExecutionEvent `json:"recent_events"`
}

type DailyCount struct {
	Date        string `json:"date"`
	Triggers    int    `json:"triggers"`
	Completions int    `json:"completions"`
}

type HourlyCount struct {
	Hour        int `json:"hour"`
	Triggers    int `json:"triggers"`
	Completions int `json:"completions"`
}

// NodePerformance aggregates outcomes per node.
type NodePerformance struct {
	NodeID        string  `json:"node_id"`
	NodeName      string  `json:"node_name"`
	NodeType      string  `json:"node_type"`
	Executions    int     `json:"executions"`
	Successes     int     `json:"successes"`
	SuccessRate   float64 `json:"success_rate"`
	AvgDurationMs int64   `json:"avg_duration_ms"`
}

// TypeCount is a per-node-type frequency, used for the trigger and action
// breakdown charts.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// ActivityPage is one page of the reverse-chronological activity feed.
type ActivityPage struct {
	Events     []*models.ExecutionEvent `json:"events"`
	TotalCount int64                    `json:"total_count"`
	HasMore    bool                     `json:"has_more"`
}

// WorkflowSummary computes trigger/completion totals with daily and hourly
// distributions over the date range.
func (a *Aggregator) WorkflowSummary(ctx context.Context, workflowID string, dateRange models.DateRange) (*Summary, error) {
	events, err := a.eventLog.Query(ctx, workflowID, dateRange)
	if err != nil {
		return nil, fmt.Errorf("querying events for workflow %s: %w", workflowID, err)
	}

	summary := &Summary{WorkflowID: workflowID}

	daily := make(map[string]*DailyCount)
	hourly := make(map[int]*HourlyCount)

	for _, event := range events {
		day := event.Timestamp.Format("2006-01-02")
		if _, ok := daily[day]; !ok {
			daily[day] = &DailyCount{Date: day}
		}

		hour := event.Timestamp.Hour()
		if _, ok := hourly[hour]; !ok {
			hourly[hour] = &HourlyCount{Hour: hour}
		}

		switch event.Kind {
		case models.EventKindTrigger:
			summary.TotalTriggers++
			daily[day].Triggers++
			hourly[hour].Triggers++
		case models.EventKindAction:
			if event.Success {
				summary.TotalActions++
				daily[day].Completions++
				hourly[hour].Completions++
			}
		}
	}

	summary.ConversionRate = safeRate(summary.TotalActions, summary.TotalTriggers)
	summary.Daily = sortedDaily(daily)
	summary.Hourly = sortedHourly(hourly)
	summary.RecentEvents = recentEvents(events)

	return summary, nil
}

// Activity returns one page of the activity feed, newest first.
func (a *Aggregator) Activity(ctx context.Context, workflowID string, limit, offset int) (*ActivityPage, error) {
	if limit <= 0 {
		limit = recentEventLimit
	}

	events, err := a.eventLog.QueryPage(ctx, workflowID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying activity for workflow %s: %w", workflowID, err)
	}

	total, err := a.eventLog.CountByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("counting events for workflow %s: %w", workflowID, err)
	}

	return &ActivityPage{
		Events:     events,
		TotalCount: total,
		HasMore:    int64(offset+limit) < total,
	}, nil
}

// NodePerformance aggregates per-node execution counts, success rates, and
// average durations.
func (a *Aggregator) NodePerformance(ctx context.Context, workflowID string, dateRange models.DateRange) ([]NodePerformance, error) {
	events, err := a.eventLog.Query(ctx, workflowID, dateRange)
	if err != nil {
		return nil, fmt.Errorf("querying events for workflow %s: %w", workflowID, err)
	}

	byNode := make(map[string]*NodePerformance)
	durations := make(map[string]int64)

	for _, event := range events {
		perf, ok := byNode[event.NodeID]
		if !ok {
			perf = &NodePerformance{
				NodeID:   event.NodeID,
				NodeName: event.NodeName,
				NodeType: event.NodeType,
			}
			byNode[event.NodeID] = perf
		}

		perf.Executions++
		durations[event.NodeID] += event.ExecutionTimeMs

		if event.Success {
			perf.Successes++
		}
	}

	result := make([]NodePerformance, 0, len(byNode))

	for nodeID, perf := range byNode {
		perf.SuccessRate = safeRate(perf.Successes, perf.Executions)
		perf.AvgDurationMs = durations[nodeID] / int64(perf.Executions)
		result = append(result, *perf)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Executions != result[j].Executions {
			return result[i].Executions > result[j].Executions
		}

		return result[i].NodeID < result[j].NodeID
	})

	return result, nil
}

// TypeBreakdown counts executions per node type for one event kind.
func (a *Aggregator) TypeBreakdown(ctx context.Context, workflowID string, kind models.EventKind, dateRange models.DateRange) ([]TypeCount, error) {
	events, err := a.eventLog.Query(ctx, workflowID, dateRange)
	if err != nil {
		return nil, fmt.Errorf("querying events for workflow %s: %w", workflowID, err)
	}

	counts := make(map[string]int)

	for _, event := range events {
		if event.Kind == kind {
			counts[event.NodeType]++
		}
	}

	result := make([]TypeCount, 0, len(counts))
	for nodeType, count := range counts {
		result = append(result, TypeCount{Type: nodeType, Count: count})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}

		return result[i].Type < result[j].Type
	})

	return result, nil
}

func sortedDaily(daily map[string]*DailyCount) []DailyCount {
	result := make([]DailyCount, 0, len(daily))
	for _, d := range daily {
		result = append(result, *d)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })

	return result
}

func sortedHourly(hourly map[int]*HourlyCount) []HourlyCount {
	result := make([]HourlyCount, 0, len(hourly))
	for _, h := range hourly {
		result = append(result, *h)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Hour < result[j].Hour })

	return result
}

func recentEvents(events []*models.ExecutionEvent) []*models.ExecutionEvent {
	sorted := make([]*models.ExecutionEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	if len(sorted) > recentEventLimit {
		sorted = sorted[:recentEventLimit]
	}

	return sorted
}
