package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/somshekargr/studybuddy/internal/core"
	"github.com/somshekargr/studybuddy/internal/core/ingestion_engine"
	"github.com/somshekargr/studybuddy/internal/models"
)

type DocumentService struct {
	db      core.DbClient
	storage core.ObjectClient
	graph   ingestion_engine.GraphWriter
	bucket  string
}

func NewDocumentService(db core.DbClient, storage core.ObjectClient, graph ingestion_engine.GraphWriter, bucket string) *DocumentService {
	return &DocumentService{db: db, storage: storage, graph: graph, bucket: bucket}
}

// UploadAndCreate stores the raw file and creates the document row in
// pending. Ingestion is the caller's next step (enqueue).
func (s *DocumentService) UploadAndCreate(ctx context.Context, userID, filename, contentType string, data []byte) (*models.Document, error) {
	docID := uuid.NewString()
	key := s.objectKey(userID, docID, filename)

	url, err := s.storage.UploadFile(ctx, s.bucket, key, bytes.NewReader(data), contentType)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		ID:          docID,
		UserID:      userID,
		FileName:    filename,
		StorageURL:  url,
		ContentType: contentType,
		Status:      models.StatusPending,
	}
	if err := s.db.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	return s.db.GetDocumentByID(ctx, id)
}

func (s *DocumentService) ListByUser(ctx context.Context, userID string) ([]models.Document, error) {
	return s.db.ListDocumentsByUser(ctx, userID)
}

// ContentReader streams the raw uploaded file back out of object storage.
func (s *DocumentService) ContentReader(ctx context.Context, doc *models.Document) (io.ReadCloser, error) {
	bucket, key, err := splitStorageURL(doc.StorageURL)
	if err != nil {
		return nil, err
	}
	return s.storage.GetObjectReader(ctx, bucket, key)
}

// Delete removes the document everywhere: graph edges, object storage, then
// the row (chunks, sessions and messages cascade). Graph and storage cleanup
// are best-effort so a flaky sidecar cannot strand the row.
func (s *DocumentService) Delete(ctx context.Context, doc *models.Document) error {
	if s.graph != nil {
		if err := s.graph.DeleteDocumentGraph(ctx, doc.ID); err != nil {
			log.Printf("DocumentService: graph cleanup for %s failed: %v", doc.ID, err)
		}
	}
	if bucket, key, err := splitStorageURL(doc.StorageURL); err == nil {
		if err := s.storage.DeleteFile(ctx, bucket, key); err != nil {
			log.Printf("DocumentService: object cleanup for %s failed: %v", doc.ID, err)
		}
	}
	return s.db.DeleteDocument(ctx, doc.ID)
}

// objectKey creates a consistent S3 key layout.
func (s *DocumentService) objectKey(userID, docID, filename string) string {
	filename = strings.TrimSpace(filename)
	filename = strings.ReplaceAll(filename, " ", "_")
	return path.Join("users", userID, "documents", docID, filename)
}

// splitStorageURL extracts bucket and key from a virtual-hosted style S3 URL.
func splitStorageURL(u string) (bucket, key string, err error) {
	hostPath := strings.SplitN(strings.TrimPrefix(u, "https://"), "/", 2)
	if len(hostPath) != 2 {
		return "", "", fmt.Errorf("malformed storage url %q", u)
	}
	bucket = strings.Split(hostPath[0], ".")[0]
	return bucket, hostPath[1], nil
}
