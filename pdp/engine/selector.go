// api/pdp/engine/selector.go
package engine

import (
	"fmt"

	"go.uber.org/zap"

	sentra_errors "github.com/veriflow/sentra/api/errors"
	logger "github.com/veriflow/sentra/api/logging"
	"github.com/veriflow/sentra/api/model"
	pdp_model "github.com/veriflow/sentra/api/pdp/model"
	"github.com/veriflow/sentra/api/util"
)

// CandidateSelector narrows the policy set to those eligible for a request
// before the more expensive predicate evaluation: status active, scope an
// ancestor-or-equal of the request scope, and the requested action listed.
type CandidateSelector struct {
	validationUtil *util.ValidationUtil
}

func NewCandidateSelector(validationUtil *util.ValidationUtil) *CandidateSelector {
	return &CandidateSelector{validationUtil: validationUtil}
}

// SelectCandidates returns the policies worth evaluating. Malformed
// policies are skipped with a warning; they never abort the decision and
// never count as evaluated.
func (s *CandidateSelector) SelectCandidates(policies []model.Policy, req pdp_model.EvaluationRequest) []model.Policy {
	candidates := make([]model.Policy, 0, len(policies))

	for _, policy := range policies {
		if err := s.validationUtil.ValidatePolicy(policy); err != nil {
			logger.Warn("Skipping malformed policy",
				zap.Error(fmt.Errorf("%w: %v", sentra_errors.ErrMalformedPolicy, err)),
				zap.String("policyID", policy.ID))
			continue
		}
		if !policy.Active() {
			continue
		}
		if !policy.Scope.Covers(req.Scope) {
			continue
		}
		if !containsAction(policy.Actions, req.ActionID) {
			continue
		}
		candidates = append(candidates, policy)
	}

	return candidates
}

func containsAction(actions []string, actionID string) bool {
	for _, action := range actions {
		if action == actionID {
			return true
		}
	}
	return false
}
