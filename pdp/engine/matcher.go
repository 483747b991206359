// api/pdp/engine/matcher.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	sentra_errors "github.com/veriflow/sentra/api/errors"
	logger "github.com/veriflow/sentra/api/logging"
	"github.com/veriflow/sentra/api/model"
	"github.com/veriflow/sentra/api/pdp/directory"
	pdp_model "github.com/veriflow/sentra/api/pdp/model"
	helper_util "github.com/veriflow/sentra/api/util/helper"
)

// PredicateMatcher evaluates the subject, resource and condition predicates
// of a single policy against an enriched request. Directory lookups for
// group and role references are the only blocking calls; each is bounded by
// directoryTimeout and treated as non-matching on failure.
type PredicateMatcher struct {
	directory        directory.Directory
	directoryTimeout time.Duration
}

func NewPredicateMatcher(dir directory.Directory, directoryTimeout time.Duration) *PredicateMatcher {
	return &PredicateMatcher{
		directory:        dir,
		directoryTimeout: directoryTimeout,
	}
}

// EvaluatePolicy produces the per-policy verdict and trace. Action
// membership was already confirmed by the candidate selector.
func (m *PredicateMatcher) EvaluatePolicy(ctx context.Context, policy model.Policy, evalCtx pdp_model.EvaluationContext) pdp_model.PolicyVerdict {
	verdict := pdp_model.PolicyVerdict{
		PolicyID:    policy.ID,
		Effect:      policy.Effect,
		Specificity: policy.Scope.Specificity(),
		UpdatedAt:   policy.UpdatedAt,
	}

	// A policy with an empty subjects, actions or resources list can never
	// match; it fails closed rather than matching everything.
	if len(policy.Subjects) == 0 || len(policy.Actions) == 0 || len(policy.Resources) == 0 {
		verdict.FailedRules = append(verdict.FailedRules, "policy has an empty subjects, actions or resources list")
		return verdict
	}

	if !m.matchSubjects(ctx, policy.Subjects, evalCtx.Subject, &verdict) {
		return verdict
	}

	if !m.matchResources(policy.Resources, evalCtx.Resource, &verdict) {
		return verdict
	}

	// All conditions must hold; zero conditions pass trivially.
	for _, condition := range policy.Conditions {
		matched, rule := m.evaluateCondition(condition, evalCtx.Request.Environment)
		if !matched {
			verdict.FailedRules = append(verdict.FailedRules, rule)
			return verdict
		}
		verdict.MatchedRules = append(verdict.MatchedRules, rule)
	}

	verdict.Matched = true
	return verdict
}

// matchSubjects succeeds if ANY subject reference matches: the reference
// names the subject directly or via directory membership, and all attribute
// constraints attached to that reference hold.
func (m *PredicateMatcher) matchSubjects(ctx context.Context, refs []model.SubjectRef, subject pdp_model.SubjectSnapshot, verdict *pdp_model.PolicyVerdict) bool {
	for _, ref := range refs {
		refRule := fmt.Sprintf("subject %s:%s", ref.Kind, ref.ID)

		matched, failure := m.matchSubjectRef(ctx, ref, subject)
		if !matched {
			if failure != "" {
				refRule = fmt.Sprintf("%s (%s)", refRule, failure)
			}
			verdict.FailedRules = append(verdict.FailedRules, refRule)
			continue
		}

		constraintsHold := true
		var constraintRules []string
		for _, constraint := range ref.Constraints {
			rule := "subject." + constraint.Describe()
			if !constraint.Matches(subject.Attributes) {
				verdict.FailedRules = append(verdict.FailedRules, rule)
				constraintsHold = false
				break
			}
			constraintRules = append(constraintRules, rule)
		}
		if !constraintsHold {
			continue
		}

		verdict.MatchedRules = append(verdict.MatchedRules, refRule)
		verdict.MatchedRules = append(verdict.MatchedRules, constraintRules...)
		return true
	}
	return false
}

// matchSubjectRef resolves the base reference. The returned failure string
// is non-empty only for degraded lookups, so the trace can show that a
// directory problem (not a genuine mismatch) failed the reference.
func (m *PredicateMatcher) matchSubjectRef(ctx context.Context, ref model.SubjectRef, subject pdp_model.SubjectSnapshot) (bool, string) {
	switch ref.Kind {
	case model.SubjectKindUser:
		return ref.ID == subject.ID, ""
	case model.SubjectKindGroup:
		return m.lookupMembership(ctx, ref, subject.ID, m.directory.IsMember)
	case model.SubjectKindRole:
		return m.lookupMembership(ctx, ref, subject.ID, m.directory.HasRole)
	}
	return false, ""
}

func (m *PredicateMatcher) lookupMembership(ctx context.Context, ref model.SubjectRef, subjectID string, lookup func(context.Context, string, string) (bool, error)) (bool, string) {
	lookupCtx, cancel := context.WithTimeout(ctx, m.directoryTimeout)
	defer cancel()

	type lookupResult struct {
		member bool
		err    error
	}
	resultChan := make(chan lookupResult, 1)
	go func() {
		member, err := lookup(lookupCtx, subjectID, ref.ID)
		resultChan <- lookupResult{member: member, err: err}
	}()

	// Fail closed: a timed-out or failed lookup never blocks the whole
	// decision, the reference just does not match. The select holds the
	// bound even against a lookup that ignores its context.
	select {
	case result := <-resultChan:
		if result.err != nil {
			if errors.Is(result.err, context.DeadlineExceeded) {
				return false, m.lookupTimedOut(ref, subjectID, result.err)
			}
			logger.Warn("Directory lookup failed, treating subject reference as non-matching",
				zap.Error(result.err),
				zap.String("subjectID", subjectID),
				zap.String("refKind", ref.Kind),
				zap.String("refID", ref.ID))
			return false, "directory lookup failed"
		}
		return result.member, ""
	case <-lookupCtx.Done():
		return false, m.lookupTimedOut(ref, subjectID, lookupCtx.Err())
	}
}

func (m *PredicateMatcher) lookupTimedOut(ref model.SubjectRef, subjectID string, cause error) string {
	logger.Warn("Directory lookup timed out, treating subject reference as non-matching",
		zap.Error(fmt.Errorf("%w: %v", sentra_errors.ErrDirectoryTimeout, cause)),
		zap.Duration("timeout", m.directoryTimeout),
		zap.String("subjectID", subjectID),
		zap.String("refKind", ref.Kind),
		zap.String("refID", ref.ID))
	return "directory lookup timed out"
}

// matchResources succeeds if ANY resource reference matches: the resource
// IS the reference or a descendant of it, and all attribute constraints
// attached to that reference hold.
func (m *PredicateMatcher) matchResources(refs []model.ResourceRef, resource pdp_model.ResourceSnapshot, verdict *pdp_model.PolicyVerdict) bool {
	for _, ref := range refs {
		refRule := fmt.Sprintf("resource %s", ref.ID)
		if ref.ID != resource.ID {
			refRule = fmt.Sprintf("resource ancestor %s", ref.ID)
		}

		if !resource.IsOrDescendantOf(ref.ID) {
			verdict.FailedRules = append(verdict.FailedRules, refRule)
			continue
		}

		constraintsHold := true
		var constraintRules []string
		for _, constraint := range ref.Constraints {
			rule := "resource." + constraint.Describe()
			if !constraint.Matches(resource.Attributes) {
				verdict.FailedRules = append(verdict.FailedRules, rule)
				constraintsHold = false
				break
			}
			constraintRules = append(constraintRules, rule)
		}
		if !constraintsHold {
			continue
		}

		verdict.MatchedRules = append(verdict.MatchedRules, refRule)
		verdict.MatchedRules = append(verdict.MatchedRules, constraintRules...)
		return true
	}
	return false
}

// evaluateCondition checks one condition against the environment bag and
// renders its trace rule string.
func (m *PredicateMatcher) evaluateCondition(condition model.Condition, environment model.Attributes) (bool, string) {
	switch condition.Type {
	case model.ConditionTimeWindow:
		return m.evaluateTimeWindow(condition, environment)
	case model.ConditionApprovalStatus:
		rule := fmt.Sprintf("condition %s == %q", condition.Key, condition.Expected)
		actual, ok := environment[condition.Key]
		return ok && actual.Kind == model.KindString && actual.Str == condition.Expected, rule
	case model.ConditionAttributeCheck:
		rule := "condition " + condition.Check.Describe()
		return condition.Check.Matches(environment), rule
	default:
		// Unknown types are rejected at load; if one slips through it
		// fails closed here.
		logger.Warn("Unknown condition type", zap.String("type", condition.Type), zap.String("conditionID", condition.ID))
		return false, fmt.Sprintf("condition %s (unknown type %q)", condition.ID, condition.Type)
	}
}

func (m *PredicateMatcher) evaluateTimeWindow(condition model.Condition, environment model.Attributes) (bool, string) {
	rule := fmt.Sprintf("condition time-window %s-%s", condition.Window.Start, condition.Window.End)

	actual, ok := environment["time"]
	if !ok || actual.Kind != model.KindString {
		return false, rule
	}
	clock, err := helper_util.ParseClock(actual.Str)
	if err != nil {
		logger.Warn("Unparseable environment time", zap.Error(err), zap.String("time", actual.Str))
		return false, rule
	}

	start, err := helper_util.ParseClock(condition.Window.Start)
	if err != nil {
		return false, rule
	}
	end, err := helper_util.ParseClock(condition.Window.End)
	if err != nil {
		return false, rule
	}

	return helper_util.InClockWindow(clock, start, end), rule
}
