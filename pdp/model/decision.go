package model

import "time"

// PolicyVerdict is the per-policy outcome of predicate matching, with the
// rule strings that make the decision explainable.
type PolicyVerdict struct {
	PolicyID     string    `json:"policy_id"`
	Effect       string    `json:"effect"`
	Matched      bool      `json:"matched"`
	MatchedRules []string  `json:"matched_rules,omitempty"`
	FailedRules  []string  `json:"failed_rules,omitempty"`
	Specificity  int       `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// MatchedPolicy is one entry of the decision trace: a policy that matched
// the request, with the rules that held and any that were recorded as
// failed along the way.
type MatchedPolicy struct {
	PolicyID     string   `json:"policy_id"`
	Effect       string   `json:"effect"`
	MatchedRules []string `json:"matched_rules,omitempty"`
	FailedRules  []string `json:"failed_rules,omitempty"`
}

// Decision is the engine's final outcome. Constructed fresh per request and
// never mutated after return; two decisions over an identical request and
// policy set are identical apart from DurationMicros.
type Decision struct {
	Effect               string          `json:"effect"`
	MatchedPolicies      []MatchedPolicy `json:"matched_policies"`
	EvaluatedPolicyCount int             `json:"evaluated_policy_count"`
	DurationMicros       int64           `json:"duration_micros"`
}
