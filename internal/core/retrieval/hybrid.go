package retrieval

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/somshekargr/studybuddy/internal/core"
	"github.com/somshekargr/studybuddy/internal/models"
)

const (
	// TopK vector hits returned per query.
	TopK = 5
	// entityCap bounds the entity listing used for question grounding.
	entityCap = 100
	// hopLimit bounds the 1-hop expansion around grounded entities.
	hopLimit = 10
)

// GraphReader is the slice of the graph store the retriever reads through.
type GraphReader interface {
	EntityNames(ctx context.Context, documentID string, limit int) ([]string, error)
	OneHop(ctx context.Context, documentID string, entities []string, limit int) ([]models.GraphFact, error)
}

// ChunkSearcher is the vector-search slice of the database client.
type ChunkSearcher interface {
	SearchDocumentChunks(ctx context.Context, docID string, queryVec []float32, limit int) ([]models.DocumentChunk, error)
}

// Result carries the two retrieval channels unmerged. Chunks come back in
// ascending cosine distance; Facts are graph edges grounded in the question.
// The consumer decides how to rank, filter and render them.
type Result struct {
	Chunks []models.DocumentChunk
	Facts  []models.GraphFact
}

// HybridRetriever combines vector search over chunk embeddings with 1-hop
// graph expansion around entities mentioned in the question.
type HybridRetriever struct {
	embedder core.EmbeddingProvider
	chunks   ChunkSearcher
	graph    GraphReader
}

// NewHybridRetriever builds a retriever. graph may be nil, in which case
// retrieval is vector-only.
func NewHybridRetriever(embedder core.EmbeddingProvider, chunks ChunkSearcher, graph GraphReader) *HybridRetriever {
	return &HybridRetriever{embedder: embedder, chunks: chunks, graph: graph}
}

// Retrieve runs both channels for one question against one document. A graph
// failure degrades to vector-only results; a vector failure is an error since
// chunks are the primary evidence.
func (r *HybridRetriever) Retrieve(ctx context.Context, documentID, question string) (*Result, error) {
	vecs, err := r.embedder.EmbedTexts(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed question: got %d vectors", len(vecs))
	}

	chunks, err := r.chunks.SearchDocumentChunks(ctx, documentID, vecs[0], TopK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	res := &Result{Chunks: chunks}
	if r.graph == nil {
		return res, nil
	}

	facts, err := r.graphFacts(ctx, documentID, question)
	if err != nil {
		log.Printf("HybridRetriever: graph lookup degraded for document %s: %v", documentID, err)
		return res, nil
	}
	res.Facts = facts
	return res, nil
}

// graphFacts grounds the question against the document's entity names by
// case-insensitive substring match, then expands one hop around the matches.
func (r *HybridRetriever) graphFacts(ctx context.Context, documentID, question string) ([]models.GraphFact, error) {
	names, err := r.graph.EntityNames(ctx, documentID, entityCap)
	if err != nil {
		return nil, err
	}

	lowered := strings.ToLower(question)
	var mentioned []string
	for _, name := range names {
		if strings.Contains(lowered, strings.ToLower(name)) {
			mentioned = append(mentioned, name)
		}
	}
	if len(mentioned) == 0 {
		return nil, nil
	}

	return r.graph.OneHop(ctx, documentID, mentioned, hopLimit)
}

// RenderFacts turns graph edges into the plain-text lines fed to the prompt.
func RenderFacts(facts []models.GraphFact) []string {
	lines := make([]string, 0, len(facts))
	for _, f := range facts {
		lines = append(lines, fmt.Sprintf("%s %s %s (Found on Page %d)", f.Subject, f.Relation, f.Object, f.PageNumber))
	}
	return lines
}
