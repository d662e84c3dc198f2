package models

// UsageResource names a metered capacity on a subscription plan.
type UsageResource string

const (
	ResourceWorkflows       UsageResource = "workflows"
	ResourceMonthlyEvents   UsageResource = "monthlyEvents"
	ResourceAIOptimizations UsageResource = "aiOptimizations"
)

// PlanUnlimited is the sentinel plan that bypasses every quota check.
const PlanUnlimited = "lifetime"

// UnlimitedLimit is reported as the limit for the unlimited plan.
const UnlimitedLimit int64 = -1

// Subscription is the external billing entity the quota gate reads. Usage and
// Limits are keyed by resource name.
type Subscription struct {
	AccountID string                  `json:"account_id"`
	Plan      string                  `json:"plan"`
	Usage     map[UsageResource]int64 `json:"usage"`
	Limits    map[UsageResource]int64 `json:"limits"`
}

// QuotaDecision is the outcome of a reserve attempt, carrying current usage
// and limit for caller-side messaging.
type QuotaDecision struct {
	Allowed  bool          `json:"allowed"`
	Resource UsageResource `json:"resource"`
	Usage    int64         `json:"usage"`
	Limit    int64         `json:"limit"`
}
