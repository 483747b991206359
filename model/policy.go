// api/model/policy.go
package model

import (
	"time"
)

// Policy effects and statuses. Only active policies are ever evaluated.
const (
	EffectAllow = "allow"
	EffectDeny  = "deny"

	StatusDraft    = "draft"
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Subject reference kinds.
const (
	SubjectKindUser  = "user"
	SubjectKindGroup = "group"
	SubjectKindRole  = "role"
)

type Policy struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Effect      string        `json:"effect"` // "allow" or "deny"
	Status      string        `json:"status"` // "draft", "active" or "inactive"
	Scope       Scope         `json:"scope"`
	Subjects    []SubjectRef  `json:"subjects"`
	Actions     []string      `json:"actions"`
	Resources   []ResourceRef `json:"resources"`
	Conditions  []Condition   `json:"conditions,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Active reports whether the policy is eligible for evaluation.
func (p *Policy) Active() bool {
	return p.Status == StatusActive
}

// SubjectRef names who a policy applies to: a user directly, or the members
// of a group or role, optionally narrowed by attribute constraints.
type SubjectRef struct {
	Kind        string       `json:"kind"` // "user", "group" or "role"
	ID          string       `json:"id"`
	Constraints []Constraint `json:"constraints,omitempty"`
}

// ResourceRef names what a policy governs: a resource directly, or any
// descendant when the referenced resource is an ancestor, optionally
// narrowed by attribute constraints.
type ResourceRef struct {
	ID          string       `json:"id"`
	Constraints []Constraint `json:"constraints,omitempty"`
}

// Condition types supported by the engine. All conditions on a policy must
// hold (AND semantics); a policy with zero conditions passes trivially.
const (
	ConditionTimeWindow     = "time-window"
	ConditionApprovalStatus = "approval-status"
	ConditionAttributeCheck = "attribute-check"
)

type Condition struct {
	ID   string `json:"id"`
	Type string `json:"type"` // "time-window", "approval-status" or "attribute-check"

	// time-window: HH:MM bounds compared against environment "time".
	Window *TimeWindow `json:"window,omitempty"`

	// approval-status: a named environment key must equal the expected value.
	Key      string `json:"key,omitempty"`
	Expected string `json:"expected,omitempty"`

	// attribute-check: an arbitrary constraint against the environment bag.
	Check *Constraint `json:"check,omitempty"`
}

// TimeWindow is a clock window in HH:MM form. Windows where Start > End
// wrap past midnight.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}
