package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	sentra_errors "github.com/veriflow/sentra/api/errors"
	logger "github.com/veriflow/sentra/api/logging"
	"github.com/veriflow/sentra/api/model"
	mocks "github.com/veriflow/sentra/api/test/mock"
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

func workspacePolicies() []model.Policy {
	return []model.Policy{
		{
			ID:        "pol-ws",
			Effect:    model.EffectAllow,
			Status:    model.StatusActive,
			Scope:     model.Scope{WorkspaceID: "ws-1"},
			Subjects:  []model.SubjectRef{{Kind: model.SubjectKindUser, ID: "user-alice"}},
			Actions:   []string{"document:read"},
			Resources: []model.ResourceRef{{ID: "/marketing"}},
			UpdatedAt: time.Now(),
		},
		{
			ID:        "pol-other-app",
			Effect:    model.EffectAllow,
			Status:    model.StatusActive,
			Scope:     model.Scope{WorkspaceID: "ws-1", ApplicationID: "app-2"},
			Subjects:  []model.SubjectRef{{Kind: model.SubjectKindUser, ID: "user-alice"}},
			Actions:   []string{"document:read"},
			Resources: []model.ResourceRef{{ID: "/marketing"}},
			UpdatedAt: time.Now(),
		},
	}
}

func TestPoliciesInScopeReadThrough(t *testing.T) {
	store := new(mocks.MockPolicyStore)
	store.On("FetchWorkspacePolicies", mock.Anything, "ws-1").Return(workspacePolicies(), nil).Once()
	adapter := NewAdapter(store)

	scope := model.Scope{WorkspaceID: "ws-1", ApplicationID: "app-1"}

	policies, err := adapter.PoliciesInScope(context.Background(), scope)
	assert.NoError(t, err)
	assert.Len(t, policies, 1)
	assert.Equal(t, "pol-ws", policies[0].ID)

	// Second read is served from the snapshot, not the store.
	policies, err = adapter.PoliciesInScope(context.Background(), scope)
	assert.NoError(t, err)
	assert.Len(t, policies, 1)
	store.AssertNumberOfCalls(t, "FetchWorkspacePolicies", 1)
}

func TestPoliciesInScopeRequiresWorkspace(t *testing.T) {
	adapter := NewAdapter(new(mocks.MockPolicyStore))

	_, err := adapter.PoliciesInScope(context.Background(), model.Scope{})
	assert.ErrorIs(t, err, sentra_errors.ErrInvalidRequest)
}

func TestPoliciesInScopeStoreFailureIsAnError(t *testing.T) {
	store := new(mocks.MockPolicyStore)
	store.On("FetchWorkspacePolicies", mock.Anything, "ws-1").
		Return(nil, fmt.Errorf("neo4j unreachable"))
	adapter := NewAdapter(store)

	policies, err := adapter.PoliciesInScope(context.Background(), model.Scope{WorkspaceID: "ws-1"})
	assert.ErrorIs(t, err, sentra_errors.ErrRepositoryUnavailable)
	assert.Nil(t, policies)
}

func TestOnPolicyChangedDropsAffectedWorkspace(t *testing.T) {
	store := new(mocks.MockPolicyStore)
	store.On("FetchWorkspacePolicies", mock.Anything, "ws-1").Return(workspacePolicies(), nil).Twice()
	store.On("EvictWorkspace", mock.Anything, "ws-1").Return(nil).Once()
	adapter := NewAdapter(store)

	scope := model.Scope{WorkspaceID: "ws-1"}
	_, err := adapter.PoliciesInScope(context.Background(), scope)
	assert.NoError(t, err)
	versionBefore := adapter.SnapshotVersion()

	adapter.OnPolicyChanged(context.Background(), "pol-ws")
	assert.Greater(t, adapter.SnapshotVersion(), versionBefore)

	// The next read reloads from the store.
	_, err = adapter.PoliciesInScope(context.Background(), scope)
	assert.NoError(t, err)
	store.AssertExpectations(t)
}

func TestOnPolicyChangedUnknownPolicyDropsEverything(t *testing.T) {
	store := new(mocks.MockPolicyStore)
	store.On("FetchWorkspacePolicies", mock.Anything, "ws-1").Return(workspacePolicies(), nil)
	store.On("FetchWorkspacePolicies", mock.Anything, "ws-2").Return([]model.Policy{}, nil)
	store.On("EvictWorkspace", mock.Anything, mock.Anything).Return(nil)
	adapter := NewAdapter(store)

	_, err := adapter.PoliciesInScope(context.Background(), model.Scope{WorkspaceID: "ws-1"})
	assert.NoError(t, err)
	_, err = adapter.PoliciesInScope(context.Background(), model.Scope{WorkspaceID: "ws-2"})
	assert.NoError(t, err)
	store.AssertNumberOfCalls(t, "FetchWorkspacePolicies", 2)

	// A freshly created policy is in no loaded workspace, so everything
	// reloads.
	adapter.OnPolicyChanged(context.Background(), "pol-brand-new")

	_, err = adapter.PoliciesInScope(context.Background(), model.Scope{WorkspaceID: "ws-1"})
	assert.NoError(t, err)
	_, err = adapter.PoliciesInScope(context.Background(), model.Scope{WorkspaceID: "ws-2"})
	assert.NoError(t, err)
	store.AssertNumberOfCalls(t, "FetchWorkspacePolicies", 4)
}

func TestConcurrentReadsSeeConsistentSnapshots(t *testing.T) {
	store := new(mocks.MockPolicyStore)
	store.On("FetchWorkspacePolicies", mock.Anything, "ws-1").Return(workspacePolicies(), nil)
	store.On("EvictWorkspace", mock.Anything, mock.Anything).Return(nil)
	adapter := NewAdapter(store)

	scope := model.Scope{WorkspaceID: "ws-1"}
	_, err := adapter.PoliciesInScope(context.Background(), scope)
	assert.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				policies, err := adapter.PoliciesInScope(context.Background(), scope)
				assert.NoError(t, err)
				// A read always sees a complete snapshot, never a
				// half-applied invalidation.
				assert.Len(t, policies, 1)
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				adapter.OnPolicyChanged(context.Background(), "pol-ws")
			}
		}()
	}
	wg.Wait()
}
