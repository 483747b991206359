// api/pdp/repository/adapter.go
package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	sentra_errors "github.com/veriflow/sentra/api/errors"
	logger "github.com/veriflow/sentra/api/logging"
	"github.com/veriflow/sentra/api/model"
)

// PolicyStore is the backing store the adapter reads through to.
type PolicyStore interface {
	FetchWorkspacePolicies(ctx context.Context, workspaceID string) ([]model.Policy, error)
	EvictWorkspace(ctx context.Context, workspaceID string) error
}

// snapshot is an immutable view of every loaded workspace policy set. The
// whole map is replaced as a unit on invalidation, never patched in place,
// so in-flight evaluations always see a consistent policy set.
type snapshot struct {
	version    uint64
	workspaces map[string][]model.Policy
}

// Adapter is the read-through policy cache. The hot read path is a single
// atomic pointer load; loads and invalidations serialize on mu and install
// a fresh snapshot.
type Adapter struct {
	store   PolicyStore
	current atomic.Pointer[snapshot]
	mu      sync.Mutex
}

func NewAdapter(store PolicyStore) *Adapter {
	a := &Adapter{store: store}
	a.current.Store(&snapshot{workspaces: map[string][]model.Policy{}})
	return a
}

// PoliciesInScope returns every policy visible to the given scope: the
// workspace's policies whose own scope is an ancestor-or-equal of it. A
// store failure is an error, never an empty set; the caller must treat it
// as "cannot decide".
func (a *Adapter) PoliciesInScope(ctx context.Context, scope model.Scope) ([]model.Policy, error) {
	if scope.WorkspaceID == "" {
		return nil, fmt.Errorf("%w: scope must name a workspace", sentra_errors.ErrInvalidRequest)
	}

	snap := a.current.Load()
	policies, ok := snap.workspaces[scope.WorkspaceID]
	if !ok {
		var err error
		policies, err = a.loadWorkspace(ctx, scope.WorkspaceID)
		if err != nil {
			return nil, err
		}
	}

	inScope := make([]model.Policy, 0, len(policies))
	for _, policy := range policies {
		if policy.Scope.Covers(scope) {
			inScope = append(inScope, policy)
		}
	}
	return inScope, nil
}

func (a *Adapter) loadWorkspace(ctx context.Context, workspaceID string) ([]model.Policy, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Another load may have won the race while we waited for the lock.
	snap := a.current.Load()
	if policies, ok := snap.workspaces[workspaceID]; ok {
		return policies, nil
	}

	policies, err := a.store.FetchWorkspacePolicies(ctx, workspaceID)
	if err != nil {
		logger.Error("Policy store unreachable",
			zap.Error(err),
			zap.String("workspaceID", workspaceID))
		return nil, fmt.Errorf("%w: %v", sentra_errors.ErrRepositoryUnavailable, err)
	}

	next := &snapshot{
		version:    snap.version + 1,
		workspaces: make(map[string][]model.Policy, len(snap.workspaces)+1),
	}
	for id, existing := range snap.workspaces {
		next.workspaces[id] = existing
	}
	next.workspaces[workspaceID] = policies
	a.current.Store(next)

	logger.Info("Workspace policy set loaded",
		zap.String("workspaceID", workspaceID),
		zap.Int("count", len(policies)),
		zap.Uint64("snapshotVersion", next.version))
	return policies, nil
}

// OnPolicyChanged drops every workspace entry containing the changed
// policy; the next decision in those workspaces reloads from the store. A
// policy the snapshot has never seen (a create) drops everything, since its
// workspace is unknown here.
func (a *Adapter) OnPolicyChanged(ctx context.Context, policyID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := a.current.Load()
	next := &snapshot{
		version:    snap.version + 1,
		workspaces: make(map[string][]model.Policy, len(snap.workspaces)),
	}

	found := false
	for workspaceID, policies := range snap.workspaces {
		affected := false
		for _, policy := range policies {
			if policy.ID == policyID {
				affected = true
				break
			}
		}
		if affected {
			found = true
			a.evict(ctx, workspaceID)
			continue
		}
		next.workspaces[workspaceID] = policies
	}

	if !found {
		for workspaceID := range snap.workspaces {
			a.evict(ctx, workspaceID)
		}
		next.workspaces = map[string][]model.Policy{}
	}

	a.current.Store(next)
	logger.Info("Policy change applied to snapshot",
		zap.String("policyID", policyID),
		zap.Bool("workspaceKnown", found),
		zap.Uint64("snapshotVersion", next.version))
}

func (a *Adapter) evict(ctx context.Context, workspaceID string) {
	if err := a.store.EvictWorkspace(ctx, workspaceID); err != nil {
		logger.Warn("Failed to evict workspace policy cache",
			zap.Error(err),
			zap.String("workspaceID", workspaceID))
	}
}

// SnapshotVersion exposes the current snapshot version for observability.
func (a *Adapter) SnapshotVersion() uint64 {
	return a.current.Load().version
}
