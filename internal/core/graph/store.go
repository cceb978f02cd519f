package graph

import (
	"context"
	"fmt"

	"github.com/somshekargr/studybuddy/internal/models"
)

// Store wraps the query executor with the document-scoped graph operations
// the pipeline and retriever need. Every query filters on doc_id so facts
// from different documents never bleed into each other.
type Store struct {
	exec QueryExecutor
}

func NewStore(exec QueryExecutor) *Store {
	return &Store{exec: exec}
}

// UpsertTriplets merges a batch of facts into the graph, tagged with the
// originating document. Entities are identified by name only.
func (s *Store) UpsertTriplets(ctx context.Context, documentID string, triplets []models.Triplet) error {
	if len(triplets) == 0 {
		return nil
	}

	rows := make([]map[string]any, 0, len(triplets))
	for _, t := range triplets {
		if t.Subject == "" || t.Object == "" {
			continue
		}
		rows = append(rows, map[string]any{
			"subject":     t.Subject,
			"relation":    t.Relation,
			"object":      t.Object,
			"page_number": t.PageNumber,
		})
	}
	if len(rows) == 0 {
		return nil
	}

	const q = `
		UNWIND $triplets AS t
		MERGE (s:Entity {name: t.subject})
		MERGE (o:Entity {name: t.object})
		MERGE (s)-[r:RELATES_TO {relation: t.relation, page: t.page_number, doc_id: $doc_id}]->(o)
	`
	if _, err := s.exec.ExecuteQuery(ctx, q, map[string]any{
		"triplets": rows,
		"doc_id":   documentID,
	}); err != nil {
		return fmt.Errorf("upsert triplets: %w", err)
	}
	return nil
}

// EntityNames lists the distinct entity names that appear in at least one
// edge of this document, capped at limit.
func (s *Store) EntityNames(ctx context.Context, documentID string, limit int) ([]string, error) {
	const q = `
		MATCH (e:Entity)-[r:RELATES_TO {doc_id: $doc_id}]-()
		RETURN DISTINCT e.name AS name
		LIMIT $limit
	`
	rows, err := s.exec.ExecuteQuery(ctx, q, map[string]any{
		"doc_id": documentID,
		"limit":  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("entity names: %w", err)
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if name, ok := row["name"].(string); ok && name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// OneHop returns every edge of the document touching any of the given
// entities on either end, capped at limit.
func (s *Store) OneHop(ctx context.Context, documentID string, entities []string, limit int) ([]models.GraphFact, error) {
	if len(entities) == 0 {
		return nil, nil
	}

	const q = `
		MATCH (s:Entity)-[r:RELATES_TO {doc_id: $doc_id}]->(o:Entity)
		WHERE s.name IN $entities OR o.name IN $entities
		RETURN s.name AS subject, r.relation AS relation, o.name AS object, r.page AS page
		LIMIT $limit
	`
	rows, err := s.exec.ExecuteQuery(ctx, q, map[string]any{
		"doc_id":   documentID,
		"entities": entities,
		"limit":    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("one hop: %w", err)
	}

	facts := make([]models.GraphFact, 0, len(rows))
	for _, row := range rows {
		facts = append(facts, models.GraphFact{
			Subject:    asString(row["subject"]),
			Relation:   asString(row["relation"]),
			Object:     asString(row["object"]),
			PageNumber: asInt(row["page"]),
		})
	}
	return facts, nil
}

// DocumentEdges returns every edge of one document, for the knowledge map.
func (s *Store) DocumentEdges(ctx context.Context, documentID string) ([]models.GraphFact, error) {
	const q = `
		MATCH (s:Entity)-[r:RELATES_TO {doc_id: $doc_id}]->(o:Entity)
		RETURN s.name AS subject, r.relation AS relation, o.name AS object, r.page AS page
	`
	rows, err := s.exec.ExecuteQuery(ctx, q, map[string]any{"doc_id": documentID})
	if err != nil {
		return nil, fmt.Errorf("document edges: %w", err)
	}

	facts := make([]models.GraphFact, 0, len(rows))
	for _, row := range rows {
		facts = append(facts, models.GraphFact{
			Subject:    asString(row["subject"]),
			Relation:   asString(row["relation"]),
			Object:     asString(row["object"]),
			PageNumber: asInt(row["page"]),
		})
	}
	return facts, nil
}

// DeleteDocumentGraph drops the document's edges and then sweeps entities
// left with no edges at all. Used by document delete and reprocess.
func (s *Store) DeleteDocumentGraph(ctx context.Context, documentID string) error {
	const delEdges = `MATCH ()-[r:RELATES_TO {doc_id: $doc_id}]->() DELETE r`
	if _, err := s.exec.ExecuteQuery(ctx, delEdges, map[string]any{"doc_id": documentID}); err != nil {
		return fmt.Errorf("delete edges: %w", err)
	}

	const delOrphans = `MATCH (n:Entity) WHERE NOT (n)--() DELETE n`
	if _, err := s.exec.ExecuteQuery(ctx, delOrphans, map[string]any{}); err != nil {
		return fmt.Errorf("delete orphan entities: %w", err)
	}
	return nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// asInt tolerates the int64 values the bolt protocol hands back.
func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
