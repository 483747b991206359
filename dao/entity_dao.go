// api/dao/entity_dao.go
package dao

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/veriflow/sentra/api/db"
	sentra_errors "github.com/veriflow/sentra/api/errors"
	logger "github.com/veriflow/sentra/api/logging"
	pdp_model "github.com/veriflow/sentra/api/pdp/model"
)

// EntityDAO looks up subject and resource snapshots for request enrichment.
// Snapshots are cached in Redis under the default TTL.
type EntityDAO struct {
	Driver neo4j.Driver
}

func NewEntityDAO(driver neo4j.Driver) *EntityDAO {
	return &EntityDAO{Driver: driver}
}

// GetSubject returns the subject's kind and attribute bag.
func (dao *EntityDAO) GetSubject(ctx context.Context, subjectID string) (*pdp_model.SubjectSnapshot, error) {
	if cached, err := db.GetCachedSubject(ctx, subjectID); err != nil {
		logger.Warn("Subject cache read failed", zap.Error(err), zap.String("subjectID", subjectID))
	} else if cached != nil {
		return cached, nil
	}

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (s:Subject {id: $subjectID})
        RETURN s.kind, s.attributes
        `

		result, err := tx.Run(query, map[string]interface{}{"subjectID": subjectID})
		if err != nil {
			return nil, err
		}

		if !result.Next() {
			return nil, sentra_errors.ErrSubjectNotFound
		}

		record := result.Record()
		snapshot := &pdp_model.SubjectSnapshot{ID: subjectID}
		if kind, ok := record.Values[0].(string); ok {
			snapshot.Kind = kind
		}
		if attributesJSON, ok := record.Values[1].(string); ok {
			if err := json.Unmarshal([]byte(attributesJSON), &snapshot.Attributes); err != nil {
				return nil, fmt.Errorf("failed to unmarshal subject attributes: %w", err)
			}
		}
		return snapshot, nil
	})

	if err != nil {
		return nil, err
	}

	snapshot := result.(*pdp_model.SubjectSnapshot)
	if err := db.CacheSubject(ctx, snapshot); err != nil {
		logger.Warn("Failed to cache subject", zap.Error(err), zap.String("subjectID", subjectID))
	}
	return snapshot, nil
}

// GetResource returns the resource's attribute bag and full ancestor chain,
// walked through CHILD_OF relationships. The chain is ordered nearest
// ancestor first.
func (dao *EntityDAO) GetResource(ctx context.Context, resourceID string) (*pdp_model.ResourceSnapshot, error) {
	if cached, err := db.GetCachedResource(ctx, resourceID); err != nil {
		logger.Warn("Resource cache read failed", zap.Error(err), zap.String("resourceID", resourceID))
	} else if cached != nil {
		return cached, nil
	}

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (r:Resource {id: $resourceID})
        OPTIONAL MATCH (r)-[:CHILD_OF*1..]->(a:Resource)
        RETURN r.kind, r.attributes, collect(a.id)
        `

		result, err := tx.Run(query, map[string]interface{}{"resourceID": resourceID})
		if err != nil {
			return nil, err
		}

		if !result.Next() {
			return nil, sentra_errors.ErrResourceNotFound
		}

		record := result.Record()
		snapshot := &pdp_model.ResourceSnapshot{ID: resourceID}
		if kind, ok := record.Values[0].(string); ok {
			snapshot.Kind = kind
		}
		if attributesJSON, ok := record.Values[1].(string); ok {
			if err := json.Unmarshal([]byte(attributesJSON), &snapshot.Attributes); err != nil {
				return nil, fmt.Errorf("failed to unmarshal resource attributes: %w", err)
			}
		}
		if ancestors, ok := record.Values[2].([]interface{}); ok {
			for _, ancestor := range ancestors {
				if id, ok := ancestor.(string); ok {
					snapshot.Ancestors = append(snapshot.Ancestors, id)
				}
			}
		}
		return snapshot, nil
	})

	if err != nil {
		return nil, err
	}

	snapshot := result.(*pdp_model.ResourceSnapshot)
	if err := db.CacheResource(ctx, snapshot); err != nil {
		logger.Warn("Failed to cache resource", zap.Error(err), zap.String("resourceID", resourceID))
	}
	return snapshot, nil
}
