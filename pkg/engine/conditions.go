package engine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/persistence"
)

// ConditionEvaluator decides pass or fail for one condition node. Malformed
// settings evaluate as fail with the error in the detail string; evaluation
// never propagates an error past this boundary.
type ConditionEvaluator struct {
	tags   persistence.VisitorTagRepository
	now    func() time.Time
	logger *slog.Logger
}

func NewConditionEvaluator(tags persistence.VisitorTagRepository, logger *slog.Logger) *ConditionEvaluator {
	return &ConditionEvaluator{
		tags:   tags,
		now:    time.Now,
		logger: logger.With("module", "condition-evaluator"),
	}
}

// Evaluate returns whether the condition passes and a detail string for the
// execution log.
func (e *ConditionEvaluator) Evaluate(ctx context.Context, node *models.WorkflowNode, visitor *models.VisitorContext) (bool, string) {
	switch node.Type {
	case models.NodeTypeURLPath:
		return e.evaluateURLPath(node, visitor)
	case models.NodeTypeDeviceType:
		return e.evaluateDeviceType(node, visitor)
	case models.NodeTypeNewReturning:
		return e.evaluateNewReturning(node, visitor)
	case models.NodeTypeTag:
		return e.evaluateTag(ctx, node, visitor)
	case models.NodeTypeTimeWindow:
		return e.evaluateTimeWindow(node)
	default:
		return false, fmt.Sprintf("unknown condition type %q", node.Type)
	}
}

func (e *ConditionEvaluator) evaluateURLPath(node *models.WorkflowNode, visitor *models.VisitorContext) (bool, string) {
	target := node.SettingString("url")
	if target == "" {
		// No URL configured matches any page.
		return true, "no url configured, any page matches"
	}

	path := visitor.Page
	mode := node.SettingString("urlMatchType")

	var matched bool

	switch mode {
	case "exact":
		matched = path == target
	case "startsWith":
		matched = strings.HasPrefix(path, target)
	case "endsWith":
		matched = strings.HasSuffix(path, target)
	case "regex":
		pattern, err := regexp.Compile(target)
		if err != nil {
			return false, fmt.Sprintf("invalid url pattern %q: %v", target, err)
		}

		matched = pattern.MatchString(path)
	default:
		matched = strings.Contains(path, target)
	}

	return matched, fmt.Sprintf("path %q %s %q: %t", path, matchVerb(mode), target, matched)
}

func (e *ConditionEvaluator) evaluateDeviceType(node *models.WorkflowNode, visitor *models.VisitorContext) (bool, string) {
	want := node.SettingString("deviceType")
	if want == "" {
		return false, "deviceType setting missing"
	}

	got := string(visitor.Device.Class)
	matched := strings.EqualFold(got, want)

	return matched, fmt.Sprintf("device %q vs %q: %t", got, want, matched)
}

func (e *ConditionEvaluator) evaluateNewReturning(node *models.WorkflowNode, visitor *models.VisitorContext) (bool, string) {
	want := node.SettingString("visitorType")
	if want != "new" && want != "returning" {
		return false, fmt.Sprintf("visitorType setting must be new or returning, got %q", want)
	}

	got := "new"
	if visitor.Returning {
		got = "returning"
	}

	return got == want, fmt.Sprintf("visitor is %s, condition wants %s", got, want)
}

// evaluateTag reads the store at evaluation time rather than using the
// context snapshot: a tag mutated by an earlier action in the same run must
// be visible here.
func (e *ConditionEvaluator) evaluateTag(ctx context.Context, node *models.WorkflowNode, visitor *models.VisitorContext) (bool, string) {
	tagName := node.SettingString("tagName")
	if tagName == "" {
		return false, "tagName setting missing"
	}

	tags, err := e.tags.Tags(ctx, visitor.SiteID, visitor.VisitorID)
	if err != nil {
		e.logger.WarnContext(ctx, "Tag read failed during condition evaluation",
			"error", err,
			"visitor_id", visitor.VisitorID)

		return false, fmt.Sprintf("tag read failed: %v", err)
	}

	for _, t := range tags {
		if t == tagName {
			return true, fmt.Sprintf("visitor has tag %q", tagName)
		}
	}

	return false, fmt.Sprintf("visitor lacks tag %q", tagName)
}

// evaluateTimeWindow checks the current hour against [startHour, endHour],
// both bounds inclusive. A window with startHour > endHour wraps midnight.
func (e *ConditionEvaluator) evaluateTimeWindow(node *models.WorkflowNode) (bool, string) {
	start, okStart := node.SettingFloat("startHour")
	end, okEnd := node.SettingFloat("endHour")

	if !okStart || !okEnd || start < 0 || start > 23 || end < 0 || end > 23 {
		return false, "startHour and endHour settings must be hours 0-23"
	}

	hour := float64(e.now().Hour())

	var inWindow bool
	if start <= end {
		inWindow = hour >= start && hour <= end
	} else {
		inWindow = hour >= start || hour <= end
	}

	return inWindow, fmt.Sprintf("hour %d in window [%d, %d]: %t", int(hour), int(start), int(end), inWindow)
}

func matchVerb(mode string) string {
	switch mode {
	case "exact":
		return "equals"
	case "startsWith":
		return "starts with"
	case "endsWith":
		return "ends with"
	case "regex":
		return "matches"
	default:
		return "contains"
	}
}
