package model

import (
	"strings"

	"github.com/veriflow/sentra/api/model"
)

// EvaluationRequest is the inbound contract of the decision engine: a bare
// (subject, action, resource) tuple, the requesting scope, and the
// environment attribute bag supplied by the caller.
type EvaluationRequest struct {
	SubjectID   string           `json:"subject_id"`
	ActionID    string           `json:"action_id"`
	ResourceID  string           `json:"resource_id"`
	Scope       model.Scope      `json:"scope"`
	Environment model.Attributes `json:"environment,omitempty"`
}

// SubjectSnapshot is the enriched view of the requested subject the matcher
// evaluates against. Built by the service layer before evaluation starts so
// the matcher itself performs no entity I/O.
type SubjectSnapshot struct {
	ID         string           `json:"id"`
	Kind       string           `json:"kind"`
	Attributes model.Attributes `json:"attributes,omitempty"`
}

// ResourceSnapshot is the enriched view of the requested resource,
// including the full ancestor chain so containment checks are pure lookups.
type ResourceSnapshot struct {
	ID         string           `json:"id"`
	Kind       string           `json:"kind"`
	Attributes model.Attributes `json:"attributes,omitempty"`
	Ancestors  []string         `json:"ancestors,omitempty"`
}

// IsOrDescendantOf reports whether the snapshot is the referenced resource
// or one of its descendants. Containment is transitive through the
// precomputed ancestor chain.
func (r ResourceSnapshot) IsOrDescendantOf(refID string) bool {
	if r.ID == refID {
		return true
	}
	for _, ancestor := range r.Ancestors {
		if ancestor == refID {
			return true
		}
	}
	return false
}

// EvaluationContext bundles the request with its enriched snapshots.
type EvaluationContext struct {
	Request  EvaluationRequest
	Subject  SubjectSnapshot
	Resource ResourceSnapshot
}

// PathAncestors derives ancestor IDs for path-style resource identifiers
// ("/marketing/plans/q3" -> "/marketing/plans", "/marketing"). Used as a
// fallback when the resource is not registered in the entity store.
func PathAncestors(resourceID string) []string {
	if !strings.HasPrefix(resourceID, "/") {
		return nil
	}
	var ancestors []string
	for {
		idx := strings.LastIndex(resourceID, "/")
		if idx <= 0 {
			break
		}
		resourceID = resourceID[:idx]
		ancestors = append(ancestors, resourceID)
	}
	return ancestors
}
