// Package graph stores and queries the per-document knowledge graph:
// (Entity)-[:RELATES_TO {relation, page, doc_id}]->(Entity) edges in Neo4j.
package graph

import (
	"context"
)

// QueryExecutor runs one parameterized Cypher query and returns row maps.
// The Neo4j driver implements it; tests substitute a fake.
type QueryExecutor interface {
	ExecuteQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
	Close(ctx context.Context) error
}
