package service

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	sentra_errors "github.com/veriflow/sentra/api/errors"
	logger "github.com/veriflow/sentra/api/logging"
	"github.com/veriflow/sentra/api/model"
	"github.com/veriflow/sentra/api/pdp/engine"
	pdp_model "github.com/veriflow/sentra/api/pdp/model"
	mocks "github.com/veriflow/sentra/api/test/mock"
	"github.com/veriflow/sentra/api/util"
)

func TestMain(m *testing.M) {
	logDir, err := os.MkdirTemp("", "sentra-test-logs")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(logDir)

	logger.InitLogger(logDir)
	os.Exit(m.Run())
}

type serviceFixture struct {
	service        *EvaluationService
	policyProvider *mocks.MockPolicyProvider
	entityProvider *mocks.MockEntityProvider
	auditService   *mocks.MockAuditService
	eventBus       *util.EventBus
}

func newServiceFixture() *serviceFixture {
	policyProvider := new(mocks.MockPolicyProvider)
	entityProvider := new(mocks.MockEntityProvider)
	auditService := new(mocks.MockAuditService)
	eventBus := util.NewEventBus()

	validationUtil := util.NewValidationUtil()
	matcher := engine.NewPredicateMatcher(new(mocks.MockDirectory), 250*time.Millisecond)
	selector := engine.NewCandidateSelector(validationUtil)
	evaluator := engine.NewPolicyEvaluator(selector, matcher)

	return &serviceFixture{
		service: NewEvaluationService(
			policyProvider, entityProvider, evaluator, validationUtil, auditService, eventBus),
		policyProvider: policyProvider,
		entityProvider: entityProvider,
		auditService:   auditService,
		eventBus:       eventBus,
	}
}

func evaluationRequest() pdp_model.EvaluationRequest {
	return pdp_model.EvaluationRequest{
		SubjectID:  "user-alice",
		ActionID:   "document:read",
		ResourceID: "/marketing/plans/q3",
		Scope:      model.Scope{WorkspaceID: "ws-1"},
	}
}

func alicePolicy() model.Policy {
	return model.Policy{
		ID:        "pol-alice",
		Effect:    model.EffectAllow,
		Status:    model.StatusActive,
		Scope:     model.Scope{WorkspaceID: "ws-1"},
		Subjects:  []model.SubjectRef{{Kind: model.SubjectKindUser, ID: "user-alice"}},
		Actions:   []string{"document:read"},
		Resources: []model.ResourceRef{{ID: "/marketing"}},
		UpdatedAt: time.Now(),
	}
}

func TestDecideRejectsInvalidRequest(t *testing.T) {
	f := newServiceFixture()

	req := evaluationRequest()
	req.SubjectID = ""

	decision, err := f.service.Decide(context.Background(), req)
	assert.ErrorIs(t, err, sentra_errors.ErrInvalidRequest)
	assert.Nil(t, decision)
	f.policyProvider.AssertNotCalled(t, "PoliciesInScope", mock.Anything, mock.Anything)
}

func TestDecidePropagatesRepositoryFailure(t *testing.T) {
	f := newServiceFixture()
	f.policyProvider.On("PoliciesInScope", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: neo4j unreachable", sentra_errors.ErrRepositoryUnavailable))

	decision, err := f.service.Decide(context.Background(), evaluationRequest())
	assert.ErrorIs(t, err, sentra_errors.ErrRepositoryUnavailable)
	assert.Nil(t, decision)
}

func TestDecideAllowsWithEnrichedSnapshots(t *testing.T) {
	f := newServiceFixture()
	f.policyProvider.On("PoliciesInScope", mock.Anything, mock.Anything).
		Return([]model.Policy{alicePolicy()}, nil)
	f.entityProvider.On("GetSubject", mock.Anything, "user-alice").
		Return(&pdp_model.SubjectSnapshot{
			ID:         "user-alice",
			Kind:       model.SubjectKindUser,
			Attributes: model.Attributes{"department": model.StringValue("Marketing")},
		}, nil)
	f.entityProvider.On("GetResource", mock.Anything, "/marketing/plans/q3").
		Return(&pdp_model.ResourceSnapshot{
			ID:        "/marketing/plans/q3",
			Kind:      "document",
			Ancestors: []string{"/marketing/plans", "/marketing"},
		}, nil)
	f.auditService.On("LogDecision", mock.Anything, mock.Anything).Return(nil).Maybe()

	decision, err := f.service.Decide(context.Background(), evaluationRequest())
	assert.NoError(t, err)
	assert.Equal(t, model.EffectAllow, decision.Effect)
	assert.Len(t, decision.MatchedPolicies, 1)
	assert.Equal(t, "pol-alice", decision.MatchedPolicies[0].PolicyID)
}

func TestDecideDegradesOnEntityLookupFailure(t *testing.T) {
	f := newServiceFixture()
	f.policyProvider.On("PoliciesInScope", mock.Anything, mock.Anything).
		Return([]model.Policy{alicePolicy()}, nil)
	f.entityProvider.On("GetSubject", mock.Anything, "user-alice").
		Return(nil, sentra_errors.ErrSubjectNotFound)
	f.entityProvider.On("GetResource", mock.Anything, "/marketing/plans/q3").
		Return(nil, fmt.Errorf("neo4j timeout"))
	f.auditService.On("LogDecision", mock.Anything, mock.Anything).Return(nil).Maybe()

	// A direct user reference plus a path-derived ancestor chain still
	// reach an allow even with both lookups degraded.
	decision, err := f.service.Decide(context.Background(), evaluationRequest())
	assert.NoError(t, err)
	assert.Equal(t, model.EffectAllow, decision.Effect)
}

func TestDecideConstraintsFailClosedWhenAttributesUnavailable(t *testing.T) {
	constrained := alicePolicy()
	v := model.StringValue("Marketing")
	constrained.Subjects[0].Constraints = []model.Constraint{
		{Attribute: "department", Operator: model.OpEquals, Value: &v},
	}

	f := newServiceFixture()
	f.policyProvider.On("PoliciesInScope", mock.Anything, mock.Anything).
		Return([]model.Policy{constrained}, nil)
	f.entityProvider.On("GetSubject", mock.Anything, "user-alice").
		Return(nil, sentra_errors.ErrSubjectNotFound)
	f.entityProvider.On("GetResource", mock.Anything, "/marketing/plans/q3").
		Return(nil, sentra_errors.ErrResourceNotFound)
	f.auditService.On("LogDecision", mock.Anything, mock.Anything).Return(nil).Maybe()

	decision, err := f.service.Decide(context.Background(), evaluationRequest())
	assert.NoError(t, err)
	assert.Equal(t, model.EffectDeny, decision.Effect)
	assert.Empty(t, decision.MatchedPolicies)
}

func TestPolicyChangedEventInvalidatesProvider(t *testing.T) {
	f := newServiceFixture()
	f.policyProvider.On("OnPolicyChanged", mock.Anything, "pol-alice").Return().Once()

	f.eventBus.PublishSync(context.Background(), "policy.changed", "pol-alice")
	f.policyProvider.AssertExpectations(t)
}

func TestDecisionRecordedEventReachesAudit(t *testing.T) {
	f := newServiceFixture()
	f.policyProvider.On("PoliciesInScope", mock.Anything, mock.Anything).
		Return([]model.Policy{}, nil)
	f.entityProvider.On("GetSubject", mock.Anything, mock.Anything).
		Return(nil, sentra_errors.ErrSubjectNotFound)
	f.entityProvider.On("GetResource", mock.Anything, mock.Anything).
		Return(nil, sentra_errors.ErrResourceNotFound)

	logged := make(chan struct{})
	f.auditService.On("LogDecision", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { close(logged) }).
		Return(nil).Once()

	decision, err := f.service.Decide(context.Background(), evaluationRequest())
	assert.NoError(t, err)
	assert.Equal(t, model.EffectDeny, decision.Effect)

	select {
	case <-logged:
	case <-time.After(2 * time.Second):
		t.Fatal("decision record was not indexed")
	}
	f.auditService.AssertExpectations(t)
}
