package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/veriflow/sentra/api/model"
	pdp_model "github.com/veriflow/sentra/api/pdp/model"
)

func validPolicy() model.Policy {
	return model.Policy{
		ID:     "pol-1",
		Name:   "Marketing read access",
		Effect: model.EffectAllow,
		Status: model.StatusActive,
		Scope:  model.Scope{WorkspaceID: "ws-1"},
		Subjects: []model.SubjectRef{
			{Kind: model.SubjectKindGroup, ID: "grp-marketing"},
		},
		Actions: []string{"document:read"},
		Resources: []model.ResourceRef{
			{ID: "/marketing"},
		},
		UpdatedAt: time.Now(),
	}
}

func TestValidatePolicy(t *testing.T) {
	v := NewValidationUtil()

	t.Run("AcceptsWellFormedPolicy", func(t *testing.T) {
		assert.NoError(t, v.ValidatePolicy(validPolicy()))
	})

	t.Run("RejectsEmptyID", func(t *testing.T) {
		policy := validPolicy()
		policy.ID = ""
		assert.Error(t, v.ValidatePolicy(policy))
	})

	t.Run("RejectsUnknownEffect", func(t *testing.T) {
		policy := validPolicy()
		policy.Effect = "permit"
		assert.Error(t, v.ValidatePolicy(policy))
	})

	t.Run("RejectsUnknownStatus", func(t *testing.T) {
		policy := validPolicy()
		policy.Status = "archived"
		assert.Error(t, v.ValidatePolicy(policy))
	})

	t.Run("RejectsMissingWorkspace", func(t *testing.T) {
		policy := validPolicy()
		policy.Scope = model.Scope{}
		assert.Error(t, v.ValidatePolicy(policy))
	})

	t.Run("RejectsUnknownSubjectKind", func(t *testing.T) {
		policy := validPolicy()
		policy.Subjects = []model.SubjectRef{{Kind: "team", ID: "t-1"}}
		assert.Error(t, v.ValidatePolicy(policy))
	})

	t.Run("RejectsBadConstraint", func(t *testing.T) {
		policy := validPolicy()
		policy.Subjects[0].Constraints = []model.Constraint{
			{Attribute: "department", Operator: "matches-regex"},
		}
		assert.Error(t, v.ValidatePolicy(policy))
	})

	t.Run("RejectsBadTimeWindow", func(t *testing.T) {
		policy := validPolicy()
		policy.Conditions = []model.Condition{
			{ID: "c-1", Type: model.ConditionTimeWindow, Window: &model.TimeWindow{Start: "09:00", End: "25:00"}},
		}
		assert.Error(t, v.ValidatePolicy(policy))
	})

	t.Run("RejectsUnknownConditionType", func(t *testing.T) {
		policy := validPolicy()
		policy.Conditions = []model.Condition{{ID: "c-1", Type: "geo-fence"}}
		assert.Error(t, v.ValidatePolicy(policy))
	})
}

func TestNormalizePolicy(t *testing.T) {
	v := NewValidationUtil()

	policy := validPolicy()
	policy.Resources = []model.ResourceRef{{ID: "/marketing/*"}, {ID: "/finance"}}

	normalized := v.NormalizePolicy(policy)
	assert.Equal(t, "/marketing", normalized.Resources[0].ID)
	assert.Equal(t, "/finance", normalized.Resources[1].ID)
}

func TestValidateRequest(t *testing.T) {
	v := NewValidationUtil()

	req := pdp_model.EvaluationRequest{
		SubjectID:  "user-1",
		ActionID:   "document:read",
		ResourceID: "/marketing/plans/q3",
		Scope:      model.Scope{WorkspaceID: "ws-1"},
	}
	assert.NoError(t, v.ValidateRequest(req))

	missingSubject := req
	missingSubject.SubjectID = ""
	assert.Error(t, v.ValidateRequest(missingSubject))

	missingAction := req
	missingAction.ActionID = ""
	assert.Error(t, v.ValidateRequest(missingAction))

	missingResource := req
	missingResource.ResourceID = ""
	assert.Error(t, v.ValidateRequest(missingResource))

	missingWorkspace := req
	missingWorkspace.Scope = model.Scope{}
	assert.Error(t, v.ValidateRequest(missingWorkspace))
}
