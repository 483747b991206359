// api/audit/model.go
package audit

import (
	"time"
)

// DecisionRecord is the audit trail entry for one evaluation. Persisting it
// is this package's concern; the engine itself never writes audit state.
type DecisionRecord struct {
	ID                   string    `json:"id"`
	Timestamp            time.Time `json:"timestamp"`
	SubjectID            string    `json:"subject_id"`
	ActionID             string    `json:"action_id"`
	ResourceID           string    `json:"resource_id"`
	WorkspaceID          string    `json:"workspace_id"`
	Effect               string    `json:"effect"`
	MatchedPolicyIDs     []string  `json:"matched_policy_ids,omitempty"`
	EvaluatedPolicyCount int       `json:"evaluated_policy_count"`
	DurationMicros       int64     `json:"duration_micros"`
}
