// test/mock/providers.go
package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/veriflow/sentra/api/audit"
	"github.com/veriflow/sentra/api/model"
	pdp_model "github.com/veriflow/sentra/api/pdp/model"
)

// MockPolicyStore is a mock implementation of repository.PolicyStore
type MockPolicyStore struct {
	mock.Mock
}

func (m *MockPolicyStore) FetchWorkspacePolicies(ctx context.Context, workspaceID string) ([]model.Policy, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Policy), args.Error(1)
}

func (m *MockPolicyStore) EvictWorkspace(ctx context.Context, workspaceID string) error {
	args := m.Called(ctx, workspaceID)
	return args.Error(0)
}

// MockPolicyProvider is a mock implementation of service.PolicyProvider
type MockPolicyProvider struct {
	mock.Mock
}

func (m *MockPolicyProvider) PoliciesInScope(ctx context.Context, scope model.Scope) ([]model.Policy, error) {
	args := m.Called(ctx, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Policy), args.Error(1)
}

func (m *MockPolicyProvider) OnPolicyChanged(ctx context.Context, policyID string) {
	m.Called(ctx, policyID)
}

// MockEntityProvider is a mock implementation of service.EntityProvider
type MockEntityProvider struct {
	mock.Mock
}

func (m *MockEntityProvider) GetSubject(ctx context.Context, subjectID string) (*pdp_model.SubjectSnapshot, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pdp_model.SubjectSnapshot), args.Error(1)
}

func (m *MockEntityProvider) GetResource(ctx context.Context, resourceID string) (*pdp_model.ResourceSnapshot, error) {
	args := m.Called(ctx, resourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pdp_model.ResourceSnapshot), args.Error(1)
}

// MockAuditService is a mock implementation of audit.Service
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) LogDecision(ctx context.Context, record audit.DecisionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAuditService) QueryDecisions(ctx context.Context, from, to time.Time, subjectID, resourceID string) ([]audit.DecisionRecord, error) {
	args := m.Called(ctx, from, to, subjectID, resourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]audit.DecisionRecord), args.Error(1)
}

// MockEvaluationService is a mock implementation of service.IEvaluationService
type MockEvaluationService struct {
	mock.Mock
}

func (m *MockEvaluationService) Decide(ctx context.Context, req pdp_model.EvaluationRequest) (*pdp_model.Decision, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pdp_model.Decision), args.Error(1)
}
