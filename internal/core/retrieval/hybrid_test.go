package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/somshekargr/studybuddy/internal/models"
)

type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for n := range texts {
		out[n] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

type stubSearcher struct {
	chunks []models.DocumentChunk
	err    error
	limit  int
}

func (s *stubSearcher) SearchDocumentChunks(ctx context.Context, docID string, queryVec []float32, limit int) ([]models.DocumentChunk, error) {
	s.limit = limit
	return s.chunks, s.err
}

type stubGraph struct {
	names    []string
	facts    []models.GraphFact
	namesErr error
	asked    []string
}

func (s *stubGraph) EntityNames(ctx context.Context, documentID string, limit int) ([]string, error) {
	return s.names, s.namesErr
}

func (s *stubGraph) OneHop(ctx context.Context, documentID string, entities []string, limit int) ([]models.GraphFact, error) {
	s.asked = entities
	return s.facts, nil
}

func TestRetrieve_BothChannels(t *testing.T) {
	searcher := &stubSearcher{chunks: []models.DocumentChunk{
		{Content: "Mitochondria produce ATP.", PageNumber: 4, Distance: 0.31},
	}}
	graph := &stubGraph{
		names: []string{"Mitochondria", "Ribosome"},
		facts: []models.GraphFact{{Subject: "Mitochondria", Relation: "produces", Object: "ATP", PageNumber: 4}},
	}

	r := NewHybridRetriever(&stubEmbedder{}, searcher, graph)
	res, err := r.Retrieve(context.Background(), "d1", "What do mitochondria do?")
	require.NoError(t, err)

	require.Len(t, res.Chunks, 1)
	assert.Equal(t, TopK, searcher.limit)

	require.Len(t, res.Facts, 1)
	assert.Equal(t, "produces", res.Facts[0].Relation)

	// Grounding is a case-insensitive substring match against the question.
	assert.Equal(t, []string{"Mitochondria"}, graph.asked)
}

func TestRetrieve_NoEntityMentions(t *testing.T) {
	graph := &stubGraph{names: []string{"Photosynthesis", "Chlorophyll"}}
	r := NewHybridRetriever(&stubEmbedder{}, &stubSearcher{}, graph)

	res, err := r.Retrieve(context.Background(), "d1", "What is the capital of France?")
	require.NoError(t, err)
	assert.Empty(t, res.Facts)
	assert.Nil(t, graph.asked, "one-hop should be skipped with no grounded entities")
}

func TestRetrieve_GraphFailureDegradesToVectorOnly(t *testing.T) {
	searcher := &stubSearcher{chunks: []models.DocumentChunk{{Content: "c", PageNumber: 1}}}
	graph := &stubGraph{namesErr: errors.New("bolt connection refused")}

	r := NewHybridRetriever(&stubEmbedder{}, searcher, graph)
	res, err := r.Retrieve(context.Background(), "d1", "anything")
	require.NoError(t, err)
	assert.Len(t, res.Chunks, 1)
	assert.Empty(t, res.Facts)
}

func TestRetrieve_VectorFailureIsAnError(t *testing.T) {
	r := NewHybridRetriever(&stubEmbedder{}, &stubSearcher{err: errors.New("pg down")}, nil)
	_, err := r.Retrieve(context.Background(), "d1", "anything")
	assert.Error(t, err)
}

func TestRetrieve_EmbedFailureIsAnError(t *testing.T) {
	r := NewHybridRetriever(&stubEmbedder{err: errors.New("quota")}, &stubSearcher{}, nil)
	_, err := r.Retrieve(context.Background(), "d1", "anything")
	assert.Error(t, err)
}

func TestRetrieve_NilGraphIsVectorOnly(t *testing.T) {
	searcher := &stubSearcher{chunks: []models.DocumentChunk{{Content: "c"}}}
	r := NewHybridRetriever(&stubEmbedder{}, searcher, nil)

	res, err := r.Retrieve(context.Background(), "d1", "anything")
	require.NoError(t, err)
	assert.Len(t, res.Chunks, 1)
	assert.Empty(t, res.Facts)
}

func TestRenderFacts(t *testing.T) {
	lines := RenderFacts([]models.GraphFact{
		{Subject: "Water", Relation: "boils at", Object: "100C", PageNumber: 7},
	})
	require.Len(t, lines, 1)
	assert.Equal(t, "Water boils at 100C (Found on Page 7)", lines[0])
}
