package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/somshekargr/studybuddy/internal/core"
	"github.com/somshekargr/studybuddy/internal/models"
)

const testStorageURL = "https://test-bucket.s3.us-east-2.amazonaws.com/users/u1/documents/d1/notes.pdf"

// fakeDB embeds the interface so only the methods the pipeline touches need
// implementations.
type fakeDB struct {
	core.DbClient

	doc           *models.Document
	statusWrites  []string
	finalStatus   string
	finalPages    int
	finalChunks   int
	inserted      []models.DocumentChunk
	chunksDeleted bool
	byStatus      map[string][]string
	insertErr     error

	// honorCtx makes writes fail on a dead context, like a real driver.
	honorCtx bool
}

func (f *fakeDB) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	if f.doc == nil || f.doc.ID != id {
		return nil, nil
	}
	cp := *f.doc
	return &cp, nil
}

func (f *fakeDB) UpdateDocumentStatus(ctx context.Context, id, status string) error {
	if f.honorCtx {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	f.statusWrites = append(f.statusWrites, status)
	f.doc.Status = status
	return nil
}

func (f *fakeDB) UpdateDocumentCounts(ctx context.Context, id, status string, pages, chunks int) error {
	f.finalStatus = status
	f.finalPages = pages
	f.finalChunks = chunks
	f.doc.Status = status
	return nil
}

func (f *fakeDB) InsertDocumentChunks(ctx context.Context, chunks []models.DocumentChunk) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, chunks...)
	return nil
}

func (f *fakeDB) DeleteChunksByDocument(ctx context.Context, documentID string) error {
	f.chunksDeleted = true
	return nil
}

func (f *fakeDB) ListDocumentIDsByStatus(ctx context.Context, status string) ([]string, error) {
	return f.byStatus[status], nil
}

func (f *fakeDB) GetUserEmailByDocument(ctx context.Context, documentID string) (string, string, error) {
	return "student@example.com", "notes.pdf", nil
}

type fakeObj struct {
	core.ObjectClient
	data []byte
	err  error
}

func (f *fakeObj) GetFile(ctx context.Context, bucket, key string) ([]byte, error) {
	return f.data, f.err
}

type fakeParser struct {
	pages []models.Page
	err   error
}

func (f *fakeParser) Parse(ctx context.Context, data []byte) ([]models.Page, error) {
	return f.pages, f.err
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for n := range texts {
		out[n] = []float32{float32(n), 1}
	}
	return out, nil
}

type fakeGraph struct {
	upserts   [][]models.Triplet
	deleted   bool
	upsertErr error
}

func (f *fakeGraph) UpsertTriplets(ctx context.Context, documentID string, triplets []models.Triplet) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, triplets)
	return nil
}

func (f *fakeGraph) DeleteDocumentGraph(ctx context.Context, documentID string) error {
	f.deleted = true
	return nil
}

type fakeNotifier struct {
	statuses []string
}

func (f *fakeNotifier) SendIngestionStatus(ctx context.Context, email, filename, status string) error {
	f.statuses = append(f.statuses, status)
	return nil
}

type fakeVision struct {
	desc string
	err  error
}

func (f *fakeVision) DescribeImage(ctx context.Context, image []byte, prompt string) (string, error) {
	return f.desc, f.err
}

func pendingDoc() *models.Document {
	return &models.Document{
		ID:         "d1",
		UserID:     "u1",
		FileName:   "notes.pdf",
		StorageURL: testStorageURL,
		Status:     models.StatusPending,
	}
}

func testConfig() *IngestConfig {
	return &IngestConfig{
		ChunkSize:      500,
		ChunkOverlap:   50,
		EmbedBatch:     2,
		GraphMinChars:  50,
		EnableVision:   true,
		EnableGraphRAG: true,
	}
}

func newTestIngestor(db *fakeDB, parser core.DocumentParser, vision core.VisionProvider, model core.LocalModel, graph GraphWriter, emb core.EmbeddingProvider, notifier core.Notifier) *DocumentIngestor {
	var extractor *TripletExtractor
	if model != nil {
		extractor = NewTripletExtractor(model)
	}
	return NewDocumentIngestor(db, &fakeObj{data: []byte("%PDF-")}, parser, vision, extractor, graph, emb, notifier, testConfig())
}

func TestProcessOne_ReadyPath(t *testing.T) {
	db := &fakeDB{doc: pendingDoc()}
	parser := &fakeParser{pages: []models.Page{
		{Number: 1, Text: "Cats are mammals. Dogs are mammals too. Both nurse their young with milk and regulate body temperature."},
	}}
	model := &fakeLocalModel{response: `[{"subject": "Cat", "relation": "is a", "object": "Mammal"}]`}
	graph := &fakeGraph{}
	notifier := &fakeNotifier{}
	emb := &fakeEmbedder{}

	ing := newTestIngestor(db, parser, nil, model, graph, emb, notifier)

	err := ing.ProcessOne(context.Background(), "d1")
	require.NoError(t, err)

	assert.Equal(t, []string{models.StatusProcessing}, db.statusWrites)
	assert.Equal(t, models.StatusReady, db.finalStatus)
	assert.Equal(t, 1, db.finalPages)
	assert.Equal(t, len(db.inserted), db.finalChunks)
	require.NotEmpty(t, db.inserted)
	assert.Equal(t, "d1", db.inserted[0].DocumentID)
	assert.NotEmpty(t, db.inserted[0].Embedding)

	require.Len(t, graph.upserts, 1)
	assert.Equal(t, "Cat", graph.upserts[0][0].Subject)
	assert.Equal(t, 1, graph.upserts[0][0].PageNumber)

	assert.Equal(t, []string{models.StatusReady}, notifier.statuses)
}

func TestProcessOne_NeedsOCR(t *testing.T) {
	db := &fakeDB{doc: pendingDoc()}
	parser := &fakeParser{pages: []models.Page{
		{Number: 1, Text: "", NeedsOCR: true},
		{Number: 2, Text: "", NeedsOCR: true},
	}}
	notifier := &fakeNotifier{}

	ing := newTestIngestor(db, parser, nil, nil, nil, &fakeEmbedder{}, notifier)

	err := ing.ProcessOne(context.Background(), "d1")
	require.NoError(t, err)

	assert.Equal(t, models.StatusNeedsOCR, db.finalStatus)
	assert.Equal(t, 2, db.finalPages)
	assert.Zero(t, db.finalChunks)
	assert.Empty(t, db.inserted)
	assert.Equal(t, []string{models.StatusNeedsOCR}, notifier.statuses)
}

func TestProcessOne_ParseFailureIsFatal(t *testing.T) {
	db := &fakeDB{doc: pendingDoc()}
	parser := &fakeParser{err: errors.New("corrupt xref table")}
	notifier := &fakeNotifier{}

	ing := newTestIngestor(db, parser, nil, nil, nil, &fakeEmbedder{}, notifier)

	err := ing.ProcessOne(context.Background(), "d1")
	require.Error(t, err)

	assert.Equal(t, []string{models.StatusProcessing, models.StatusFailed}, db.statusWrites)
	assert.Empty(t, db.finalStatus, "counts must not be finalized on a failed run")
	assert.Equal(t, []string{models.StatusFailed}, notifier.statuses)
}

func TestProcessOne_EmbedFailureIsFatal(t *testing.T) {
	db := &fakeDB{doc: pendingDoc()}
	parser := &fakeParser{pages: []models.Page{{Number: 1, Text: "Some real page content here."}}}

	ing := newTestIngestor(db, parser, nil, nil, nil, &fakeEmbedder{err: errors.New("quota exceeded")}, &fakeNotifier{})

	err := ing.ProcessOne(context.Background(), "d1")
	require.Error(t, err)
	assert.Equal(t, models.StatusFailed, db.doc.Status)
	assert.Empty(t, db.inserted)
}

func TestProcessOne_UnknownDocument(t *testing.T) {
	db := &fakeDB{}

	ing := newTestIngestor(db, &fakeParser{}, nil, nil, nil, &fakeEmbedder{}, &fakeNotifier{})

	err := ing.ProcessOne(context.Background(), "ghost")
	require.EqualError(t, err, "document ghost not found")
}

func TestProcessOne_FatalAfterDeadlineStillMarksFailed(t *testing.T) {
	doc := pendingDoc()
	doc.Status = models.StatusProcessing
	db := &fakeDB{doc: doc, honorCtx: true}
	notifier := &fakeNotifier{}

	ing := newTestIngestor(db, &fakeParser{}, nil, nil, nil, &fakeEmbedder{}, notifier)

	expired, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	err := ing.apply(expired, doc, Fatal("embed", context.DeadlineExceeded))
	require.Error(t, err)

	// The failure write must land even though the pipeline context is dead,
	// otherwise the document stays processing until the next restart sweep.
	assert.Equal(t, []string{models.StatusFailed}, db.statusWrites)
	assert.Equal(t, models.StatusFailed, db.doc.Status)
	assert.Equal(t, []string{models.StatusFailed}, notifier.statuses)
}

func TestProcessOne_GraphSkipsPagesAtThreshold(t *testing.T) {
	db := &fakeDB{doc: pendingDoc()}
	parser := &fakeParser{pages: []models.Page{
		// Exactly GraphMinChars (50) after trimming: skipped.
		{Number: 1, Text: strings.Repeat("a", 50)},
		// One character over: extracted.
		{Number: 2, Text: strings.Repeat("b", 51)},
	}}
	model := &fakeLocalModel{response: `[{"subject": "B", "relation": "fills", "object": "Page"}]`}
	graph := &fakeGraph{}

	ing := newTestIngestor(db, parser, nil, model, graph, &fakeEmbedder{}, &fakeNotifier{})

	err := ing.ProcessOne(context.Background(), "d1")
	require.NoError(t, err)

	assert.Equal(t, 1, model.calls)
	require.Len(t, graph.upserts, 1)
	assert.Equal(t, 2, graph.upserts[0][0].PageNumber)
}

func TestProcessOne_GraphFailureDegrades(t *testing.T) {
	db := &fakeDB{doc: pendingDoc()}
	parser := &fakeParser{pages: []models.Page{
		{Number: 1, Text: "A long enough page of study material that easily clears the graph extraction threshold for triplets."},
	}}
	model := &fakeLocalModel{response: `[{"subject": "A", "relation": "r", "object": "B"}]`}
	graph := &fakeGraph{upsertErr: errors.New("neo4j unreachable")}

	ing := newTestIngestor(db, parser, nil, model, graph, &fakeEmbedder{}, &fakeNotifier{})

	err := ing.ProcessOne(context.Background(), "d1")
	require.NoError(t, err, "graph trouble must not fail the document")
	assert.Equal(t, models.StatusReady, db.finalStatus)
	assert.NotEmpty(t, db.inserted)
}

func TestProcessOne_VisionEnrichesPageText(t *testing.T) {
	db := &fakeDB{doc: pendingDoc()}
	parser := &fakeParser{pages: []models.Page{
		{Number: 1, Text: "The figure below shows the water cycle.", Images: [][]byte{{0xFF, 0xD8}}},
	}}
	vision := &fakeVision{desc: "A diagram of evaporation, condensation and precipitation."}

	ing := newTestIngestor(db, parser, vision, nil, nil, &fakeEmbedder{}, &fakeNotifier{})

	err := ing.ProcessOne(context.Background(), "d1")
	require.NoError(t, err)
	require.NotEmpty(t, db.inserted)

	var all string
	for _, c := range db.inserted {
		all += c.Content + " "
	}
	assert.Contains(t, all, "[Visual Content Detail]:")
	assert.Contains(t, all, "evaporation, condensation and precipitation")
}

func TestProcessOne_RejectsNonPendingDocument(t *testing.T) {
	doc := pendingDoc()
	doc.Status = models.StatusReady
	db := &fakeDB{doc: doc}

	ing := newTestIngestor(db, &fakeParser{}, nil, nil, nil, &fakeEmbedder{}, &fakeNotifier{})

	err := ing.ProcessOne(context.Background(), "d1")
	require.Error(t, err)
	assert.Empty(t, db.statusWrites, "an illegal start must not touch the store")
}

func TestProcessOne_BatchesEmbeddings(t *testing.T) {
	db := &fakeDB{doc: pendingDoc()}
	var text string
	for n := 0; n < 40; n++ {
		text += fmt.Sprintf("Sentence number %d carries some padding words for length. ", n)
	}
	parser := &fakeParser{pages: []models.Page{{Number: 1, Text: text}}}
	emb := &fakeEmbedder{}

	ing := newTestIngestor(db, parser, nil, nil, nil, emb, &fakeNotifier{})

	err := ing.ProcessOne(context.Background(), "d1")
	require.NoError(t, err)
	require.NotEmpty(t, db.inserted)
	// EmbedBatch is 2 in the test config, so several calls are expected.
	assert.Equal(t, (len(db.inserted)+1)/2, emb.calls)
}

func TestRecoverStuck(t *testing.T) {
	db := &fakeDB{
		doc: pendingDoc(),
		byStatus: map[string][]string{
			models.StatusProcessing: {"stuck-1", "stuck-2"},
			models.StatusPending:    {"queued-1"},
		},
	}

	ing := newTestIngestor(db, &fakeParser{}, nil, nil, nil, &fakeEmbedder{}, &fakeNotifier{})

	err := ing.RecoverStuck(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{models.StatusFailed, models.StatusFailed}, db.statusWrites)

	// Re-enqueueing happens off the sweep goroutine.
	select {
	case id := <-ing.jobs:
		assert.Equal(t, "queued-1", id)
	case <-time.After(time.Second):
		t.Fatal("pending document should have been re-enqueued")
	}
}

func TestRecoverStuck_BacklogLargerThanQueueDoesNotBlock(t *testing.T) {
	pending := make([]string, 70)
	for n := range pending {
		pending[n] = fmt.Sprintf("doc-%d", n)
	}
	db := &fakeDB{
		doc:      pendingDoc(),
		byStatus: map[string][]string{models.StatusPending: pending},
	}

	ing := newTestIngestor(db, &fakeParser{}, nil, nil, nil, &fakeEmbedder{}, &fakeNotifier{})

	done := make(chan error, 1)
	go func() { done <- ing.RecoverStuck(context.Background()) }()

	// The sweep must return even though no workers are draining the queue
	// and the backlog exceeds the channel buffer.
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("RecoverStuck blocked on a backlog larger than the job queue")
	}

	for range pending {
		select {
		case <-ing.jobs:
		case <-time.After(time.Second):
			t.Fatal("not all pending documents were re-enqueued")
		}
	}
}

func TestReprocess_WipesAndRequeues(t *testing.T) {
	doc := pendingDoc()
	doc.Status = models.StatusReady
	doc.TotalPages = 3
	doc.TotalChunks = 12
	db := &fakeDB{doc: doc}
	graph := &fakeGraph{}

	ing := newTestIngestor(db, &fakeParser{}, nil, nil, graph, &fakeEmbedder{}, &fakeNotifier{})

	err := ing.Reprocess(context.Background(), "d1")
	require.NoError(t, err)

	assert.True(t, db.chunksDeleted)
	assert.True(t, graph.deleted)
	assert.Equal(t, models.StatusPending, db.finalStatus)
	assert.Zero(t, db.finalPages)
	assert.Zero(t, db.finalChunks)

	select {
	case id := <-ing.jobs:
		assert.Equal(t, "d1", id)
	default:
		t.Fatal("reprocessed document should have been re-enqueued")
	}
}

func TestReprocess_RejectsProcessingDocument(t *testing.T) {
	doc := pendingDoc()
	doc.Status = models.StatusProcessing
	db := &fakeDB{doc: doc}

	ing := newTestIngestor(db, &fakeParser{}, nil, nil, &fakeGraph{}, &fakeEmbedder{}, &fakeNotifier{})

	err := ing.Reprocess(context.Background(), "d1")
	require.Error(t, err)
	assert.False(t, db.chunksDeleted)
}
