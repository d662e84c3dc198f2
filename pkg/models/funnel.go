package models

import "time"

// FunnelStep is a derived, recomputed-on-read view of one workflow step.
// Rates are normalized to [0,1]; a step nobody reached reports 0, never NaN.
type FunnelStep struct {
	StepID          string  `json:"step_id"`
	StepName        string  `json:"step_name"`
	NodeType        string  `json:"node_type"`
	StepOrder       int     `json:"step_order"`
	VisitorsReached int     `json:"visitors_reached"`
	ConversionRate  float64 `json:"conversion_rate"`
	DropOffRate     float64 `json:"drop_off_rate"`
	AvgTimeOnStepMs int64   `json:"avg_time_on_step_ms"`
}

// VisitorPath is one observed node sequence with its frequency.
type VisitorPath struct {
	Path  []string `json:"path"`
	Count int      `json:"count"`
}

// FunnelReport is the full funnel view for a workflow over a date range.
type FunnelReport struct {
	WorkflowID    string        `json:"workflow_id"`
	TotalVisitors int           `json:"total_visitors"`
	TotalRuns     int           `json:"total_runs"`
	Completions   int           `json:"completions"`
	Steps         []FunnelStep  `json:"steps"`
	TopPaths      []VisitorPath `json:"top_paths"`
}

// DateRange bounds an analytics query. Zero values mean unbounded.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range, bounds inclusive.
func (r DateRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}

	if !r.End.IsZero() && t.After(r.End) {
		return false
	}

	return true
}
