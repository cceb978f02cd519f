package graph

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/somshekargr/studybuddy/internal/models"
)

type recordedQuery struct {
	query  string
	params map[string]any
}

type fakeExecutor struct {
	queries []recordedQuery
	rows    [][]map[string]any
	err     error
}

func (f *fakeExecutor) ExecuteQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	f.queries = append(f.queries, recordedQuery{query: query, params: params})
	if f.err != nil {
		return nil, f.err
	}
	if len(f.rows) == 0 {
		return nil, nil
	}
	rows := f.rows[0]
	f.rows = f.rows[1:]
	return rows, nil
}

func (f *fakeExecutor) Close(ctx context.Context) error { return nil }

func TestUpsertTriplets(t *testing.T) {
	exec := &fakeExecutor{}
	store := NewStore(exec)

	err := store.UpsertTriplets(context.Background(), "d1", []models.Triplet{
		{Subject: "Cat", Relation: "is a", Object: "Mammal", PageNumber: 2},
		{Subject: "", Relation: "broken", Object: "row"},
	})
	require.NoError(t, err)
	require.Len(t, exec.queries, 1)

	q := exec.queries[0]
	assert.Contains(t, q.query, "UNWIND $triplets")
	assert.Contains(t, q.query, "MERGE")
	assert.Equal(t, "d1", q.params["doc_id"])

	rows, ok := q.params["triplets"].([]map[string]any)
	require.True(t, ok)
	// The row with an empty subject is dropped before the write.
	require.Len(t, rows, 1)
	assert.Equal(t, "Cat", rows[0]["subject"])
	assert.Equal(t, 2, rows[0]["page_number"])
}

func TestUpsertTriplets_NothingToWrite(t *testing.T) {
	exec := &fakeExecutor{}
	store := NewStore(exec)

	require.NoError(t, store.UpsertTriplets(context.Background(), "d1", nil))
	require.NoError(t, store.UpsertTriplets(context.Background(), "d1", []models.Triplet{{Subject: "", Object: ""}}))
	assert.Empty(t, exec.queries, "empty batches must not hit the database")
}

func TestEntityNames(t *testing.T) {
	exec := &fakeExecutor{rows: [][]map[string]any{{
		{"name": "Mitochondria"},
		{"name": "ATP"},
		{"name": ""},
		{"name": 42},
	}}}
	store := NewStore(exec)

	names, err := store.EntityNames(context.Background(), "d1", 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"Mitochondria", "ATP"}, names)
	assert.Equal(t, 100, exec.queries[0].params["limit"])
}

func TestOneHop(t *testing.T) {
	exec := &fakeExecutor{rows: [][]map[string]any{{
		{"subject": "Mitochondria", "relation": "produces", "object": "ATP", "page": int64(4)},
	}}}
	store := NewStore(exec)

	facts, err := store.OneHop(context.Background(), "d1", []string{"Mitochondria"}, 10)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "Mitochondria", facts[0].Subject)
	// bolt hands integers back as int64
	assert.Equal(t, 4, facts[0].PageNumber)
}

func TestOneHop_NoEntities(t *testing.T) {
	exec := &fakeExecutor{}
	store := NewStore(exec)

	facts, err := store.OneHop(context.Background(), "d1", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, facts)
	assert.Empty(t, exec.queries)
}

func TestDeleteDocumentGraph(t *testing.T) {
	exec := &fakeExecutor{}
	store := NewStore(exec)

	err := store.DeleteDocumentGraph(context.Background(), "d1")
	require.NoError(t, err)
	require.Len(t, exec.queries, 2)

	assert.Contains(t, exec.queries[0].query, "DELETE r")
	assert.Equal(t, "d1", exec.queries[0].params["doc_id"])
	// Second pass sweeps entities left without any edges.
	assert.True(t, strings.Contains(exec.queries[1].query, "NOT (n)--()"))
}

func TestDocumentEdges(t *testing.T) {
	exec := &fakeExecutor{rows: [][]map[string]any{{
		{"subject": "A", "relation": "r1", "object": "B", "page": int64(1)},
		{"subject": "B", "relation": "r2", "object": "C", "page": int64(2)},
	}}}
	store := NewStore(exec)

	facts, err := store.DocumentEdges(context.Background(), "d1")
	require.NoError(t, err)
	require.Len(t, facts, 2)
	assert.Equal(t, "r2", facts[1].Relation)
	assert.Equal(t, 2, facts[1].PageNumber)
}
