// api/pdp/directory/directory.go
package directory

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Directory resolves group and role membership for subject references.
// Lookups are the engine's only suspension point; the matcher bounds every
// call with a timeout and treats failure as non-membership.
type Directory interface {
	IsMember(ctx context.Context, subjectID, groupID string) (bool, error)
	HasRole(ctx context.Context, subjectID, roleID string) (bool, error)
}

// GraphDirectory resolves membership through the Neo4j graph.
type GraphDirectory struct {
	Driver neo4j.Driver
}

func NewGraphDirectory(driver neo4j.Driver) *GraphDirectory {
	return &GraphDirectory{Driver: driver}
}

func (d *GraphDirectory) IsMember(ctx context.Context, subjectID, groupID string) (bool, error) {
	return d.hasRelationship(ctx, subjectID, groupID, "BELONGS_TO_GROUP")
}

func (d *GraphDirectory) HasRole(ctx context.Context, subjectID, roleID string) (bool, error) {
	return d.hasRelationship(ctx, subjectID, roleID, "HAS_ROLE")
}

func (d *GraphDirectory) hasRelationship(ctx context.Context, subjectID, targetID, relationship string) (bool, error) {
	session := d.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (s:Subject {id: $subjectID})-[:` + relationship + `]->(t:Subject {id: $targetID})
        RETURN count(t) > 0
        `

		result, err := tx.Run(query, map[string]interface{}{
			"subjectID": subjectID,
			"targetID":  targetID,
		})
		if err != nil {
			return nil, err
		}

		if !result.Next() {
			return false, nil
		}
		member, _ := result.Record().Values[0].(bool)
		return member, nil
	})

	if err != nil {
		return false, err
	}
	return result.(bool), nil
}
