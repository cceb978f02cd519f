package models

import (
	"time"
)

// Document lifecycle states. These five values are the only ones ever
// persisted; the ingestion state machine in internal/core/ingestion_engine
// validates every transition between them.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusFailed     = "failed"
	StatusNeedsOCR   = "needs_ocr"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Document represents a user-uploaded PDF.
type Document struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	FileName    string    `db:"file_name" json:"file_name"`
	StorageURL  string    `db:"storage_url" json:"storage_url"` // S3 URL of the raw file
	ContentType string    `db:"content_type" json:"content_type"`
	Status      string    `db:"status" json:"status"` // pending | processing | ready | failed | needs_ocr
	TotalPages  int       `db:"total_pages" json:"total_pages"`
	TotalChunks int       `db:"total_chunks" json:"total_chunks"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Page is the transient per-page parse result. It only lives for the
// duration of one ingestion run; chunks and graph facts are what persist.
type Page struct {
	Number   int
	Text     string
	NeedsOCR bool     // extraction yielded too little text
	Images   [][]byte // raster images lifted from the page, for vision description
}

// DocumentChunk represents one text chunk from a document.
type DocumentChunk struct {
	ID         string    `db:"id" json:"id"`
	DocumentID string    `db:"document_id" json:"document_id"`
	ChunkIndex int       `db:"chunk_index" json:"chunk_index"` // global order across the document
	Content    string    `db:"content" json:"content"`
	PageNumber int       `db:"page_number" json:"page_number"`
	Embedding  []float32 `db:"embedding" json:"-"` // pgvector column, fixed 384 dims
	Distance   float64   `db:"-" json:"distance,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Triplet is a single (subject, relation, object) fact extracted from page
// text. PageNumber is filled in by the orchestrator before the graph write.
type Triplet struct {
	Subject    string `json:"subject"`
	Relation   string `json:"relation"`
	Object     string `json:"object"`
	PageNumber int    `json:"page_number,omitempty"`
}

// GraphFact is one directed edge read back from the graph store.
type GraphFact struct {
	Subject    string `json:"subject"`
	Relation   string `json:"relation"`
	Object     string `json:"object"`
	PageNumber int    `json:"page_number"`
}

// ChatSession represents one conversation, optionally tied to a document.
type ChatSession struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	DocumentID *string   `db:"document_id" json:"document_id,omitempty"`
	Title      string    `db:"title" json:"title"`
	Persona    string    `db:"persona" json:"persona"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ChatMessage represents an individual chat message (user or assistant).
type ChatMessage struct {
	ID        string    `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	Role      string    `db:"role" json:"role"` // "user" | "assistant" | "system"
	Content   string    `db:"content" json:"content"`
	Citations string    `db:"citations" json:"citations,omitempty"` // JSON array of page numbers / "Web"
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// WebResult is a single hit from the web search capability.
type WebResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"content"`
}
