// api/util/validation_util.go

package util

import (
	"fmt"
	"strings"

	"github.com/veriflow/sentra/api/model"
	pdp_model "github.com/veriflow/sentra/api/pdp/model"
	helper_util "github.com/veriflow/sentra/api/util/helper"
)

type ValidationUtil struct{}

func NewValidationUtil() *ValidationUtil {
	return &ValidationUtil{}
}

// ValidatePolicy checks a policy definition at load time. A policy that
// fails here is malformed: the engine skips it with a warning and keeps
// evaluating the rest.
func (v *ValidationUtil) ValidatePolicy(policy model.Policy) error {
	if policy.ID == "" {
		return fmt.Errorf("policy ID cannot be empty")
	}
	if policy.Effect != model.EffectAllow && policy.Effect != model.EffectDeny {
		return fmt.Errorf("policy effect must be either 'allow' or 'deny'")
	}
	switch policy.Status {
	case model.StatusDraft, model.StatusActive, model.StatusInactive:
	default:
		return fmt.Errorf("unknown policy status: %q", policy.Status)
	}
	if policy.Scope.WorkspaceID == "" {
		return fmt.Errorf("policy scope must name a workspace")
	}
	for _, subject := range policy.Subjects {
		switch subject.Kind {
		case model.SubjectKindUser, model.SubjectKindGroup, model.SubjectKindRole:
		default:
			return fmt.Errorf("unknown subject kind: %q", subject.Kind)
		}
		if subject.ID == "" {
			return fmt.Errorf("subject reference ID cannot be empty")
		}
		for _, constraint := range subject.Constraints {
			if err := constraint.Validate(); err != nil {
				return err
			}
		}
	}
	for _, resource := range policy.Resources {
		if resource.ID == "" {
			return fmt.Errorf("resource reference ID cannot be empty")
		}
		for _, constraint := range resource.Constraints {
			if err := constraint.Validate(); err != nil {
				return err
			}
		}
	}
	for _, condition := range policy.Conditions {
		if err := v.validateCondition(condition); err != nil {
			return err
		}
	}
	return nil
}

func (v *ValidationUtil) validateCondition(condition model.Condition) error {
	switch condition.Type {
	case model.ConditionTimeWindow:
		if condition.Window == nil {
			return fmt.Errorf("time-window condition %q requires a window", condition.ID)
		}
		if _, err := helper_util.ParseClock(condition.Window.Start); err != nil {
			return err
		}
		if _, err := helper_util.ParseClock(condition.Window.End); err != nil {
			return err
		}
	case model.ConditionApprovalStatus:
		if condition.Key == "" {
			return fmt.Errorf("approval-status condition %q requires a key", condition.ID)
		}
	case model.ConditionAttributeCheck:
		if condition.Check == nil {
			return fmt.Errorf("attribute-check condition %q requires a constraint", condition.ID)
		}
		if err := condition.Check.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown condition type: %q", condition.Type)
	}
	return nil
}

// NormalizePolicy rewrites authoring shorthand into the canonical form the
// matcher evaluates. A resource reference ending in "/*" denotes the
// subtree of its parent, which is already what an ancestor reference means,
// so the suffix is stripped.
func (v *ValidationUtil) NormalizePolicy(policy model.Policy) model.Policy {
	for i, resource := range policy.Resources {
		if strings.HasSuffix(resource.ID, "/*") {
			policy.Resources[i].ID = strings.TrimSuffix(resource.ID, "/*")
		}
	}
	return policy
}

// ValidateRequest rejects incomplete evaluation requests before any
// evaluation work begins.
func (v *ValidationUtil) ValidateRequest(req pdp_model.EvaluationRequest) error {
	if req.SubjectID == "" {
		return fmt.Errorf("request subject ID cannot be empty")
	}
	if req.ActionID == "" {
		return fmt.Errorf("request action ID cannot be empty")
	}
	if req.ResourceID == "" {
		return fmt.Errorf("request resource ID cannot be empty")
	}
	if req.Scope.WorkspaceID == "" {
		return fmt.Errorf("request scope must name a workspace")
	}
	return nil
}
