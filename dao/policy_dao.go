// api/dao/policy_dao.go
package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/veriflow/sentra/api/db"
	logger "github.com/veriflow/sentra/api/logging"
	"github.com/veriflow/sentra/api/model"
	"github.com/veriflow/sentra/api/util"
	helper_util "github.com/veriflow/sentra/api/util/helper"
)

// PolicyDAO is the backing store of the policy repository adapter. Reads go
// through the Redis workspace cache before hitting Neo4j; the full
// workspace policy set is always fetched and cached as one unit.
type PolicyDAO struct {
	Driver         neo4j.Driver
	validationUtil *util.ValidationUtil
}

func NewPolicyDAO(driver neo4j.Driver, validationUtil *util.ValidationUtil) *PolicyDAO {
	return &PolicyDAO{Driver: driver, validationUtil: validationUtil}
}

// FetchWorkspacePolicies returns every policy definition in a workspace,
// regardless of status; the candidate selector filters on status later so a
// status change only needs a cache invalidation, not a different query.
func (dao *PolicyDAO) FetchWorkspacePolicies(ctx context.Context, workspaceID string) ([]model.Policy, error) {
	cached, hit, err := db.GetCachedWorkspacePolicies(ctx, workspaceID)
	if err != nil {
		logger.Warn("Workspace policy cache read failed, falling through to store",
			zap.Error(err),
			zap.String("workspaceID", workspaceID))
	} else if hit {
		return cached, nil
	}

	start := time.Now()
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (p:Policy {workspaceId: $workspaceID})
        RETURN p
        ORDER BY p.updatedAt DESC
        `

		params := map[string]interface{}{
			"workspaceID": workspaceID,
		}

		result, err := tx.Run(query, params)
		if err != nil {
			return nil, err
		}

		var policies []model.Policy
		for result.Next() {
			record := result.Record()
			policyNode := record.Values[0].(neo4j.Node)
			policy, err := mapNodeToPolicy(policyNode)
			if err != nil {
				// A single malformed policy must not abort the whole
				// decision; skip it and keep the rest.
				logger.Warn("Skipping malformed policy definition",
					zap.Error(err),
					zap.Any("nodeID", policyNode.Id))
				continue
			}
			policies = append(policies, dao.validationUtil.NormalizePolicy(*policy))
		}

		return policies, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to fetch workspace policies",
			zap.Error(err),
			zap.String("workspaceID", workspaceID),
			zap.Duration("duration", duration))
		return nil, err
	}

	policies := result.([]model.Policy)
	logger.Info("Fetched workspace policies",
		zap.String("workspaceID", workspaceID),
		zap.Int("policy_count", len(policies)),
		zap.Duration("duration", duration))

	if err := db.CacheWorkspacePolicies(ctx, workspaceID, policies); err != nil {
		logger.Warn("Failed to cache workspace policies",
			zap.Error(err),
			zap.String("workspaceID", workspaceID))
	}

	return policies, nil
}

// EvictWorkspace drops the Redis cache entry for a workspace policy set.
func (dao *PolicyDAO) EvictWorkspace(ctx context.Context, workspaceID string) error {
	return db.DeleteCachedWorkspacePolicies(ctx, workspaceID)
}

// Helper function to map Neo4j Node to Policy struct
func mapNodeToPolicy(node neo4j.Node) (*model.Policy, error) {
	props := node.Props
	policy := &model.Policy{}

	// ID
	if id, ok := props["id"].(string); ok {
		policy.ID = id
	} else {
		return nil, fmt.Errorf("failed to assert type for policy ID: %v", props["id"])
	}

	// Name
	if name, ok := props["name"].(string); ok {
		policy.Name = name
	}

	// Description
	if description, ok := props["description"].(string); ok {
		policy.Description = description
	}

	// Effect
	if effect, ok := props["effect"].(string); ok {
		if effect == model.EffectAllow || effect == model.EffectDeny {
			policy.Effect = effect
		} else {
			return nil, fmt.Errorf("invalid policy effect: %v", effect)
		}
	} else {
		return nil, fmt.Errorf("failed to assert type for policy effect: %v", props["effect"])
	}

	// Status
	if status, ok := props["status"].(string); ok {
		policy.Status = status
	} else {
		return nil, fmt.Errorf("failed to assert type for policy status: %v", props["status"])
	}

	// Scope
	if workspaceID, ok := props["workspaceId"].(string); ok {
		policy.Scope.WorkspaceID = workspaceID
	} else {
		return nil, fmt.Errorf("failed to assert type for policy workspaceId: %v", props["workspaceId"])
	}
	if applicationID, ok := props["applicationId"].(string); ok {
		policy.Scope.ApplicationID = applicationID
	}
	if environmentID, ok := props["environmentId"].(string); ok {
		policy.Scope.EnvironmentID = environmentID
	}

	// CreatedAt
	if createdAt, ok := props["createdAt"].(string); ok {
		policy.CreatedAt, _ = helper_util.ParseTime(createdAt)
	}

	// UpdatedAt
	if updatedAt, ok := props["updatedAt"].(string); ok {
		policy.UpdatedAt, _ = helper_util.ParseTime(updatedAt)
	} else {
		return nil, fmt.Errorf("failed to assert type for policy updatedAt: %v", props["updatedAt"])
	}

	// Subjects
	if subjectsJSON, ok := props["subjects"].(string); ok {
		if err := json.Unmarshal([]byte(subjectsJSON), &policy.Subjects); err != nil {
			return nil, fmt.Errorf("failed to unmarshal policy subjects: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to assert type for policy subjects: %v", props["subjects"])
	}

	// Actions
	if actionsJSON, ok := props["actions"].(string); ok {
		if err := json.Unmarshal([]byte(actionsJSON), &policy.Actions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal policy actions: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to assert type for policy actions: %v", props["actions"])
	}

	// Resources
	if resourcesJSON, ok := props["resources"].(string); ok {
		if err := json.Unmarshal([]byte(resourcesJSON), &policy.Resources); err != nil {
			return nil, fmt.Errorf("failed to unmarshal policy resources: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to assert type for policy resources: %v", props["resources"])
	}

	// Conditions
	if conditionsJSON, ok := props["conditions"].(string); ok {
		if err := json.Unmarshal([]byte(conditionsJSON), &policy.Conditions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal policy conditions: %w", err)
		}
	}

	return policy, nil
}
