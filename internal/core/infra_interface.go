package core

import (
	"context"
	"io"

	"github.com/somshekargr/studybuddy/internal/models"
)

// DbClient defines all persistence operations the services need.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) (err error)
	GetUserByEmail(ctx context.Context, email string) (user *models.User, err error)
	GetUserEmailByDocument(ctx context.Context, documentID string) (email string, filename string, err error)

	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	ListDocumentsByUser(ctx context.Context, userID string) ([]models.Document, error)
	ListDocumentIDsByStatus(ctx context.Context, status string) ([]string, error)
	UpdateDocumentStatus(ctx context.Context, id string, status string) error
	UpdateDocumentCounts(ctx context.Context, id string, status string, pages, chunks int) error
	DeleteDocument(ctx context.Context, id string) error

	InsertDocumentChunks(ctx context.Context, chunks []models.DocumentChunk) error
	DeleteChunksByDocument(ctx context.Context, documentID string) error
	RandomChunksByDocument(ctx context.Context, documentID string, limit int) ([]models.DocumentChunk, error)
	SearchDocumentChunks(ctx context.Context, docID string, queryVec []float32, limit int) ([]models.DocumentChunk, error)

	CreateChatSession(ctx context.Context, session *models.ChatSession) error
	GetChatSessionByID(ctx context.Context, id string) (*models.ChatSession, error)
	ListChatSessions(ctx context.Context, userID string, documentID *string) ([]models.ChatSession, error)
	UpdateChatSessionTitle(ctx context.Context, id, title string) error
	AddChatMessage(ctx context.Context, message *models.ChatMessage) error
	GetMessagesBySession(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	RecentMessagesBySession(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
// It's abstract so AWS can be replaced with MinIO, GCP, etc. easily.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)

	GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// DocumentParser turns raw PDF bytes into ordered pages with side-extracted
// images. Pages are transient; only derived chunks and facts persist.
type DocumentParser interface {
	Parse(ctx context.Context, data []byte) ([]models.Page, error)
}

// Notifier sends a fire-and-forget ingestion status notification.
// Failures are logged by callers and never propagated.
type Notifier interface {
	SendIngestionStatus(ctx context.Context, email, filename, status string) error
}

// WebSearcher queries the web search capability.
type WebSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.WebResult, error)
}
