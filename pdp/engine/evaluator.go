// api/pdp/engine/evaluator.go
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	logger "github.com/veriflow/sentra/api/logging"
	"github.com/veriflow/sentra/api/model"
	pdp_model "github.com/veriflow/sentra/api/pdp/model"
)

// PolicyEvaluator is the stateless core of the decision engine: select
// candidates, match predicates, resolve verdicts. It holds no mutable state
// so any number of Evaluate calls may run concurrently.
type PolicyEvaluator struct {
	selector *CandidateSelector
	matcher  *PredicateMatcher
}

func NewPolicyEvaluator(selector *CandidateSelector, matcher *PredicateMatcher) *PolicyEvaluator {
	return &PolicyEvaluator{
		selector: selector,
		matcher:  matcher,
	}
}

// Evaluate folds the in-scope policy set into a single Decision for the
// enriched request. Non-matching candidates are counted but omitted from
// the trace.
func (pe *PolicyEvaluator) Evaluate(ctx context.Context, evalCtx pdp_model.EvaluationContext, policies []model.Policy) *pdp_model.Decision {
	start := time.Now()

	candidates := pe.selector.SelectCandidates(policies, evalCtx.Request)

	verdicts := make([]pdp_model.PolicyVerdict, 0, len(candidates))
	for _, policy := range candidates {
		verdicts = append(verdicts, pe.matcher.EvaluatePolicy(ctx, policy, evalCtx))
	}

	effect, matchedPolicies := ResolveVerdicts(verdicts)

	decision := &pdp_model.Decision{
		Effect:               effect,
		MatchedPolicies:      matchedPolicies,
		EvaluatedPolicyCount: len(candidates),
		DurationMicros:       time.Since(start).Microseconds(),
	}

	logger.Debug("Evaluation complete",
		zap.String("subjectID", evalCtx.Subject.ID),
		zap.String("actionID", evalCtx.Request.ActionID),
		zap.String("resourceID", evalCtx.Resource.ID),
		zap.String("effect", decision.Effect),
		zap.Int("evaluated", decision.EvaluatedPolicyCount),
		zap.Int("matched", len(decision.MatchedPolicies)))

	return decision
}
