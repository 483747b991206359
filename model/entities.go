// api/model/entities.go
package model

// Subject is the "who" of an access request. Identifier is unique within
// its kind.
type Subject struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"` // "user", "group" or "role"
	Attributes Attributes `json:"attributes,omitempty"`
}

// Action is the "what operation" of an access request. RiskTier is
// informational only and never affects evaluation.
type Action struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	RiskTier string `json:"risk_tier,omitempty"`
}

// Resource is the "on what" of an access request. ParentID forms a tree;
// the parent chain must be acyclic.
type Resource struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	ParentID   string     `json:"parent_id,omitempty"`
	Attributes Attributes `json:"attributes,omitempty"`
}
