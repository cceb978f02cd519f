package ingestion_engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/somshekargr/studybuddy/internal/core"
	"github.com/somshekargr/studybuddy/internal/models"
)

const visionPrompt = "Describe this image from a study document. Focus on any diagrams, charts, tables or figures and what they convey."

// NewDocumentIngestor constructs the ingestor with a bounded job queue (64).
func NewDocumentIngestor(
	db core.DbClient,
	obj core.ObjectClient,
	parser core.DocumentParser,
	vision core.VisionProvider,
	extractor *TripletExtractor,
	graph GraphWriter,
	emb core.EmbeddingProvider,
	notifier core.Notifier,
	cfg *IngestConfig,
) *DocumentIngestor {
	return &DocumentIngestor{
		db: db, obj: obj, parser: parser, vision: vision,
		extractor: extractor, graph: graph, embedder: emb,
		notifier: notifier, cfg: cfg,
		jobs: make(chan string, 64),
	}
}

// Start runs numWorkers goroutines reading from the jobs channel. Each job is
// a document ID; ProcessOne drives it through the full pipeline.
func (i *DocumentIngestor) Start(ctx context.Context, numWorkers int) {
	for w := 1; w <= numWorkers; w++ {
		go func(w int) {
			for {
				select {
				case <-ctx.Done():
					log.Println("DocumentIngestor: worker shutting down.")
					return
				case docID := <-i.jobs:
					log.Printf("DocumentIngestor: worker %d processing document %s", w, docID)

					if err := i.ProcessOne(ctx, docID); err != nil {
						log.Printf("DocumentIngestor: error processing document %s: %v", docID, err)
					}
				}
			}
		}(w)
	}
}

// Enqueue schedules a document ID for ingestion.
// If the queue is full, this call will block until space frees up.
func (i *DocumentIngestor) Enqueue(docID string) {
	i.jobs <- docID
}

// ProcessOne drives a single document through the pipeline: fetch, parse,
// vision enrichment, graph extraction, chunk, embed, persist. Vision and
// graph failures degrade (the run continues without them); fetch, parse and
// the embed/persist stage are fatal and mark the document failed.
func (i *DocumentIngestor) ProcessOne(ctx context.Context, docID string) error {
	// Fresh context: the request that enqueued the job is long gone.
	proctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	doc, err := i.db.GetDocumentByID(proctx, docID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", docID, err)
	}
	if doc == nil {
		return fmt.Errorf("document %s not found", docID)
	}

	next, err := Transition(doc.Status, EventStart)
	if err != nil {
		// Already processing or in a terminal state; nothing to do.
		return err
	}
	if err := i.db.UpdateDocumentStatus(proctx, docID, next); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	pages, res := i.fetchAndParse(proctx, doc)
	if err := i.apply(proctx, doc, res); err != nil {
		return err
	}

	if err := i.apply(proctx, doc, i.enrichWithVision(proctx, pages)); err != nil {
		return err
	}

	if err := i.apply(proctx, doc, i.extractGraph(proctx, docID, pages)); err != nil {
		return err
	}

	chunks := ChunkPages(pages, i.cfg.ChunkSize, i.cfg.ChunkOverlap)

	if err := i.apply(proctx, doc, i.embedAndPersist(proctx, docID, chunks)); err != nil {
		return err
	}

	// Zero chunks with at least one OCR-flagged page means the PDF is a scan.
	event := EventComplete
	if len(chunks) == 0 && anyNeedsOCR(pages) {
		event = EventNeedsOCR
	}
	final, err := Transition(models.StatusProcessing, event)
	if err != nil {
		return err
	}
	if err := i.db.UpdateDocumentCounts(proctx, docID, final, len(pages), len(chunks)); err != nil {
		return fmt.Errorf("finalize document: %w", err)
	}

	i.notify(proctx, doc, final)
	log.Printf("DocumentIngestor: document %s done, status=%s pages=%d chunks=%d", docID, final, len(pages), len(chunks))
	return nil
}

// fetchAndParse pulls the raw PDF from object storage and parses it into
// pages. Both steps are fatal on error.
func (i *DocumentIngestor) fetchAndParse(ctx context.Context, doc *models.Document) ([]models.Page, StageResult) {
	bucket, key := parseS3URL(doc.StorageURL)

	data, err := i.obj.GetFile(ctx, bucket, key)
	if err != nil {
		return nil, Fatal("fetch", fmt.Errorf("get object %s/%s: %w", bucket, key, err))
	}

	pages, err := i.parser.Parse(ctx, data)
	if err != nil {
		return nil, Fatal("parse", fmt.Errorf("parse pdf: %w", err))
	}
	return pages, OK("parse")
}

// enrichWithVision appends an image description block to the text of every
// page carrying extracted images. Per-image failures are logged and skipped;
// the stage itself only degrades, never aborts.
func (i *DocumentIngestor) enrichWithVision(ctx context.Context, pages []models.Page) StageResult {
	if !i.cfg.EnableVision || i.vision == nil {
		return OK("vision")
	}

	var lastErr error
	for p := range pages {
		for _, img := range pages[p].Images {
			desc, err := i.vision.DescribeImage(ctx, img, visionPrompt)
			if err != nil {
				log.Printf("DocumentIngestor: vision failed on page %d: %v", pages[p].Number, err)
				lastErr = err
				continue
			}
			if desc == "" {
				continue
			}
			pages[p].Text += "\n\n[Visual Content Detail]: " + desc
			// Described text may push a too-short page over the OCR threshold.
			pages[p].NeedsOCR = false
		}
	}
	if lastErr != nil {
		return Degraded("vision", lastErr)
	}
	return OK("vision")
}

// extractGraph runs triplet extraction over every page with enough text and
// writes the results to the graph store. The whole stage is best-effort.
func (i *DocumentIngestor) extractGraph(ctx context.Context, docID string, pages []models.Page) StageResult {
	if !i.cfg.EnableGraphRAG || i.extractor == nil || i.graph == nil {
		return OK("graph")
	}

	var all []models.Triplet
	for _, page := range pages {
		if len(strings.TrimSpace(page.Text)) <= i.cfg.GraphMinChars {
			continue
		}
		for _, t := range i.extractor.Extract(ctx, page.Text) {
			t.PageNumber = page.Number
			all = append(all, t)
		}
	}
	if len(all) == 0 {
		return OK("graph")
	}

	if err := i.graph.UpsertTriplets(ctx, docID, all); err != nil {
		return Degraded("graph", err)
	}
	log.Printf("DocumentIngestor: stored %d graph facts for document %s", len(all), docID)
	return OK("graph")
}

// embedAndPersist embeds chunk contents in batches and writes each batch in
// one transaction. Any failure here is fatal: a document must never be ready
// with a partial index.
func (i *DocumentIngestor) embedAndPersist(ctx context.Context, docID string, chunks []Chunk) StageResult {
	batchSize := i.cfg.EmbedBatch
	if batchSize <= 0 {
		batchSize = 16
	}

	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for n, c := range batch {
			texts[n] = c.Content
		}

		vecs, err := i.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return Fatal("embed", fmt.Errorf("embed batch at %d: %w", start, err))
		}
		if len(vecs) != len(batch) {
			return Fatal("embed", fmt.Errorf("embed batch at %d: got %d vectors for %d texts", start, len(vecs), len(batch)))
		}

		rows := make([]models.DocumentChunk, len(batch))
		for n, c := range batch {
			rows[n] = models.DocumentChunk{
				ID:         uuid.NewString(),
				DocumentID: docID,
				ChunkIndex: c.Index,
				Content:    c.Content,
				PageNumber: c.PageNumber,
				Embedding:  vecs[n],
			}
		}
		if err := i.db.InsertDocumentChunks(ctx, rows); err != nil {
			return Fatal("persist", fmt.Errorf("insert batch at %d: %w", start, err))
		}
	}
	return OK("persist")
}

// apply enforces the degrade-vs-abort policy for one stage result. Degraded
// stages log and continue; fatal stages mark the document failed, notify,
// and return the stage error.
func (i *DocumentIngestor) apply(ctx context.Context, doc *models.Document, res StageResult) error {
	switch res.Status {
	case StageOK:
		return nil
	case StageDegraded:
		log.Printf("DocumentIngestor: stage %s degraded for document %s: %v", res.Stage, doc.ID, res.Err)
		return nil
	default:
		// The stage may have died with the pipeline context itself (deadline
		// on a slow fetch or embed). The failure write must still land, or the
		// document stays processing until the next restart sweep.
		failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := i.db.UpdateDocumentStatus(failCtx, doc.ID, models.StatusFailed); err != nil {
			log.Printf("DocumentIngestor: could not mark document %s failed: %v", doc.ID, err)
		}
		i.notify(failCtx, doc, models.StatusFailed)
		return fmt.Errorf("%s", res.Error())
	}
}

// notify sends the completion email. Best-effort: lookup or send failures
// are logged and swallowed.
func (i *DocumentIngestor) notify(ctx context.Context, doc *models.Document, status string) {
	if i.notifier == nil {
		return
	}
	email, filename, err := i.db.GetUserEmailByDocument(ctx, doc.ID)
	if err != nil {
		log.Printf("DocumentIngestor: owner lookup for %s failed: %v", doc.ID, err)
		return
	}
	if err := i.notifier.SendIngestionStatus(ctx, email, filename, status); err != nil {
		log.Printf("DocumentIngestor: notify %s about %s failed: %v", email, doc.ID, err)
	}
}

// RecoverStuck runs once at startup. Documents stranded in processing by a
// crash are swept to failed (their pipeline state is gone), and documents
// still pending are re-enqueued so queued work survives a restart.
func (i *DocumentIngestor) RecoverStuck(ctx context.Context) error {
	stuck, err := i.db.ListDocumentIDsByStatus(ctx, models.StatusProcessing)
	if err != nil {
		return fmt.Errorf("list processing documents: %w", err)
	}
	for _, id := range stuck {
		next, terr := Transition(models.StatusProcessing, EventFail)
		if terr != nil {
			return terr
		}
		if err := i.db.UpdateDocumentStatus(ctx, id, next); err != nil {
			return fmt.Errorf("sweep document %s: %w", id, err)
		}
		log.Printf("DocumentIngestor: swept stuck document %s to failed", id)
	}

	pending, err := i.db.ListDocumentIDsByStatus(ctx, models.StatusPending)
	if err != nil {
		return fmt.Errorf("list pending documents: %w", err)
	}
	if len(pending) > 0 {
		// Enqueue off this goroutine: the backlog can exceed the queue buffer
		// and the workers may not be running yet, so a synchronous Enqueue
		// here could block startup forever.
		go func() {
			for _, id := range pending {
				i.Enqueue(id)
			}
			log.Printf("DocumentIngestor: re-enqueued %d pending documents", len(pending))
		}()
	}
	return nil
}

// Reprocess wipes a document's derived data (chunks and graph edges), resets
// it to pending and re-enqueues it. A document mid-processing is rejected by
// the transition check.
func (i *DocumentIngestor) Reprocess(ctx context.Context, docID string) error {
	doc, err := i.db.GetDocumentByID(ctx, docID)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("document %s not found", docID)
	}

	next, err := Transition(doc.Status, EventReset)
	if err != nil {
		return err
	}

	if err := i.db.DeleteChunksByDocument(ctx, docID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if i.graph != nil {
		if err := i.graph.DeleteDocumentGraph(ctx, docID); err != nil {
			// Orphaned edges are re-merged on the next run; not worth failing.
			log.Printf("DocumentIngestor: graph cleanup for %s failed: %v", docID, err)
		}
	}

	if err := i.db.UpdateDocumentCounts(ctx, docID, next, 0, 0); err != nil {
		return fmt.Errorf("reset document: %w", err)
	}

	i.Enqueue(docID)
	return nil
}

func anyNeedsOCR(pages []models.Page) bool {
	for _, p := range pages {
		if p.NeedsOCR {
			return true
		}
	}
	return false
}

// parseS3URL extracts the bucket and key from a typical virtual-hosted style
// S3 URL, e.g. https://my-bucket.s3.us-east-2.amazonaws.com/path/to/file.pdf
func parseS3URL(u string) (bucket, key string) {
	hostPath := strings.SplitN(strings.TrimPrefix(u, "https://"), "/", 2)
	host := hostPath[0]
	if len(hostPath) == 2 {
		key = hostPath[1]
	}
	parts := strings.Split(host, ".")
	if len(parts) > 0 {
		bucket = parts[0]
	}
	return bucket, key
}
