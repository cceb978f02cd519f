package ingestion_engine

import (
	"context"

	"github.com/somshekargr/studybuddy/internal/core"
	"github.com/somshekargr/studybuddy/internal/models"
)

// IngestConfig tunes the ingestion pipeline.
//
// ChunkSize:     maximum chunk length in characters (e.g., 500).
// ChunkOverlap:  trailing characters carried into the next chunk (e.g., 50).
// EmbedBatch:    how many chunks to embed/write in one batch (e.g., 16).
// GraphMinChars: pages at or below this trimmed length skip triplet extraction.
// EnableVision / EnableGraphRAG: feature gates for stages 3 and 4.
type IngestConfig struct {
	ChunkSize      int
	ChunkOverlap   int
	EmbedBatch     int
	GraphMinChars  int
	EnableVision   bool
	EnableGraphRAG bool
}

// GraphWriter is the slice of the graph store the pipeline writes through.
type GraphWriter interface {
	UpsertTriplets(ctx context.Context, documentID string, triplets []models.Triplet) error
	DeleteDocumentGraph(ctx context.Context, documentID string) error
}

// DocumentIngestor orchestrates the background ingestion pipeline:
//
// db:        persistence for documents and chunks.
// obj:       object storage holding the raw uploaded PDF.
// parser:    PDF -> pages capability.
// vision:    image -> description capability (stage 3, optional).
// extractor: page text -> triplets (stage 4, optional).
// graph:     graph-edge persistence (stage 4, optional).
// embedder:  embedding provider.
// notifier:  best-effort completion email.
// jobs:      in-memory queue of document IDs to process.
type DocumentIngestor struct {
	db        core.DbClient
	obj       core.ObjectClient
	parser    core.DocumentParser
	vision    core.VisionProvider
	extractor *TripletExtractor
	graph     GraphWriter
	embedder  core.EmbeddingProvider
	notifier  core.Notifier
	cfg       *IngestConfig
	jobs      chan string
}

type Ingestor interface {
	Start(ctx context.Context, numWorkers int)
	Enqueue(docID string)
	ProcessOne(ctx context.Context, docID string) error
	Reprocess(ctx context.Context, docID string) error
	RecoverStuck(ctx context.Context) error
}
