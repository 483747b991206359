// api/service/evaluation_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/veriflow/sentra/api/audit"
	sentra_errors "github.com/veriflow/sentra/api/errors"
	logger "github.com/veriflow/sentra/api/logging"
	"github.com/veriflow/sentra/api/model"
	"github.com/veriflow/sentra/api/pdp/engine"
	pdp_model "github.com/veriflow/sentra/api/pdp/model"
	"github.com/veriflow/sentra/api/util"
)

// IEvaluationService is the synchronous decide contract exposed to the
// policy tester UI and any runtime authorization check point.
type IEvaluationService interface {
	Decide(ctx context.Context, req pdp_model.EvaluationRequest) (*pdp_model.Decision, error)
}

// PolicyProvider supplies the policies visible to a scope.
type PolicyProvider interface {
	PoliciesInScope(ctx context.Context, scope model.Scope) ([]model.Policy, error)
	OnPolicyChanged(ctx context.Context, policyID string)
}

// EntityProvider supplies subject and resource snapshots for enrichment.
type EntityProvider interface {
	GetSubject(ctx context.Context, subjectID string) (*pdp_model.SubjectSnapshot, error)
	GetResource(ctx context.Context, resourceID string) (*pdp_model.ResourceSnapshot, error)
}

// EvaluationService handles business logic for policy decisions
type EvaluationService struct {
	policyProvider PolicyProvider
	entityProvider EntityProvider
	evaluator      *engine.PolicyEvaluator
	validationUtil *util.ValidationUtil
	auditService   audit.Service
	eventBus       *util.EventBus
}

// NewEvaluationService creates a new instance of EvaluationService
func NewEvaluationService(
	policyProvider PolicyProvider,
	entityProvider EntityProvider,
	evaluator *engine.PolicyEvaluator,
	validationUtil *util.ValidationUtil,
	auditService audit.Service,
	eventBus *util.EventBus,
) *EvaluationService {
	service := &EvaluationService{
		policyProvider: policyProvider,
		entityProvider: entityProvider,
		evaluator:      evaluator,
		validationUtil: validationUtil,
		auditService:   auditService,
		eventBus:       eventBus,
	}

	// Set up event subscriptions
	eventBus.Subscribe("policy.changed", service.handlePolicyChanged)
	eventBus.Subscribe("decision.recorded", service.handleDecisionRecorded)

	return service
}

// Decide evaluates an access request against the policies in scope and
// returns the decision with its trace. Side effects stop at cache reads and
// duration measurement; repository failures surface as errors, never as a
// defaulted ALLOW or DENY.
func (s *EvaluationService) Decide(ctx context.Context, req pdp_model.EvaluationRequest) (*pdp_model.Decision, error) {
	if err := s.validationUtil.ValidateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", sentra_errors.ErrInvalidRequest, err)
	}

	policies, err := s.policyProvider.PoliciesInScope(ctx, req.Scope)
	if err != nil {
		return nil, err
	}

	evalCtx, err := s.enrich(ctx, req)
	if err != nil {
		return nil, err
	}

	decision := s.evaluator.Evaluate(ctx, evalCtx, policies)

	s.eventBus.Publish(ctx, "decision.recorded", buildDecisionRecord(req, decision))

	return decision, nil
}

// enrich resolves the bare request IDs into the snapshots the matcher
// evaluates against. Subject and resource lookups run concurrently. An
// unknown entity degrades to an empty attribute bag (constraints then fail
// closed, direct ID references still work); for path-style resource IDs the
// ancestor chain is derived from the path.
func (s *EvaluationService) enrich(ctx context.Context, req pdp_model.EvaluationRequest) (pdp_model.EvaluationContext, error) {
	evalCtx := pdp_model.EvaluationContext{Request: req}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		subject, err := s.entityProvider.GetSubject(gctx, req.SubjectID)
		if err != nil {
			if !errors.Is(err, sentra_errors.ErrSubjectNotFound) {
				logger.Warn("Subject lookup failed, evaluating with empty attributes",
					zap.Error(err),
					zap.String("subjectID", req.SubjectID))
			}
			evalCtx.Subject = pdp_model.SubjectSnapshot{ID: req.SubjectID, Kind: model.SubjectKindUser}
			return nil
		}
		evalCtx.Subject = *subject
		return nil
	})

	g.Go(func() error {
		resource, err := s.entityProvider.GetResource(gctx, req.ResourceID)
		if err != nil {
			if !errors.Is(err, sentra_errors.ErrResourceNotFound) {
				logger.Warn("Resource lookup failed, evaluating with empty attributes",
					zap.Error(err),
					zap.String("resourceID", req.ResourceID))
			}
			evalCtx.Resource = pdp_model.ResourceSnapshot{
				ID:        req.ResourceID,
				Ancestors: pdp_model.PathAncestors(req.ResourceID),
			}
			return nil
		}
		evalCtx.Resource = *resource
		return nil
	})

	if err := g.Wait(); err != nil {
		return evalCtx, err
	}
	return evalCtx, nil
}

func buildDecisionRecord(req pdp_model.EvaluationRequest, decision *pdp_model.Decision) audit.DecisionRecord {
	matchedIDs := make([]string, 0, len(decision.MatchedPolicies))
	for _, matched := range decision.MatchedPolicies {
		matchedIDs = append(matchedIDs, matched.PolicyID)
	}
	return audit.DecisionRecord{
		ID:                   uuid.NewString(),
		Timestamp:            time.Now().UTC(),
		SubjectID:            req.SubjectID,
		ActionID:             req.ActionID,
		ResourceID:           req.ResourceID,
		WorkspaceID:          req.Scope.WorkspaceID,
		Effect:               decision.Effect,
		MatchedPolicyIDs:     matchedIDs,
		EvaluatedPolicyCount: decision.EvaluatedPolicyCount,
		DurationMicros:       decision.DurationMicros,
	}
}

func (s *EvaluationService) handlePolicyChanged(ctx context.Context, event util.Event) error {
	policyID, ok := event.Payload.(string)
	if !ok {
		logger.Error("Invalid event payload type", zap.Any("payload", event.Payload))
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}

	logger.Info("Policy change event received", zap.String("policyID", policyID))
	s.policyProvider.OnPolicyChanged(ctx, policyID)
	return nil
}

func (s *EvaluationService) handleDecisionRecorded(ctx context.Context, event util.Event) error {
	record, ok := event.Payload.(audit.DecisionRecord)
	if !ok {
		logger.Error("Invalid event payload type", zap.Any("payload", event.Payload))
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}

	if err := s.auditService.LogDecision(ctx, record); err != nil {
		logger.Warn("Failed to index decision record",
			zap.Error(err),
			zap.String("recordID", record.ID))
		return err
	}
	return nil
}
