// api/model/scope.go
package model

// Scope pins a policy (or a request) to a node of the workspace ->
// application -> environment hierarchy. Empty application/environment IDs
// widen the scope to all descendants.
type Scope struct {
	WorkspaceID   string `json:"workspace_id"`
	ApplicationID string `json:"application_id,omitempty"`
	EnvironmentID string `json:"environment_id,omitempty"`
}

// Covers reports whether s is an ancestor-or-equal of the request scope. A
// workspace-scoped policy covers every application and environment in the
// workspace; an application-scoped policy covers all its environments.
func (s Scope) Covers(req Scope) bool {
	if s.WorkspaceID == "" || s.WorkspaceID != req.WorkspaceID {
		return false
	}
	if s.ApplicationID != "" && s.ApplicationID != req.ApplicationID {
		return false
	}
	if s.EnvironmentID != "" && s.EnvironmentID != req.EnvironmentID {
		return false
	}
	return true
}

// Specificity orders scopes for trace presentation: environment-scoped
// before application-scoped before workspace-scoped.
func (s Scope) Specificity() int {
	specificity := 1
	if s.ApplicationID != "" {
		specificity++
	}
	if s.EnvironmentID != "" {
		specificity++
	}
	return specificity
}
