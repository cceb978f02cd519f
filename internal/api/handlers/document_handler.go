package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/somshekargr/studybuddy/internal/core/ingestion_engine"
	"github.com/somshekargr/studybuddy/internal/models"
	"github.com/somshekargr/studybuddy/internal/services"
)

type DocumentHandler struct {
	docs     *services.DocumentService
	ingestor ingestion_engine.Ingestor
}

func NewDocumentHandler(docs *services.DocumentService, ing ingestion_engine.Ingestor) *DocumentHandler {
	return &DocumentHandler{docs: docs, ingestor: ing}
}

// UploadDocument handles file upload, DB insert, and background processing.
// Only PDFs are accepted.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.ParseMultipartForm(52 << 20)

	userID, ok := r.Context().Value("user_id").(string)
	if !ok {
		http.Error(w, "user_id not found in context", http.StatusUnauthorized)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "invalid file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	// Sanitize filename to prevent path traversal or invalid characters
	cleanFilename := filepath.Base(header.Filename)

	contentType := header.Header.Get("Content-Type")
	if !isPDF(cleanFilename, contentType) {
		http.Error(w, "only PDF files are supported", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "could not read file", http.StatusBadRequest)
		return
	}

	uploadctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	doc, err := h.docs.UploadAndCreate(uploadctx, userID, cleanFilename, "application/pdf", data)
	if err != nil {
		log.Printf("upload failed for user %s: %v", userID, err)
		http.Error(w, fmt.Sprintf("upload failed: %v", err), http.StatusInternalServerError)
		return
	}

	h.ingestor.Enqueue(doc.ID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(string)
	if !ok {
		http.Error(w, "user_id not found in context", http.StatusUnauthorized)
		return
	}

	documents, err := h.docs.ListByUser(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(documents)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.ownedDocument(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

// GetDocumentContent streams the raw PDF back to the client, for the in-app
// viewer.
func (h *DocumentHandler) GetDocumentContent(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.ownedDocument(w, r)
	if !ok {
		return
	}

	rc, err := h.docs.ContentReader(r.Context(), doc)
	if err != nil {
		http.Error(w, fmt.Sprintf("could not fetch content: %v", err), http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", doc.FileName))
	if _, err := io.Copy(w, rc); err != nil {
		log.Printf("streaming document %s failed: %v", doc.ID, err)
	}
}

func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.ownedDocument(w, r)
	if !ok {
		return
	}

	if err := h.docs.Delete(r.Context(), doc); err != nil {
		http.Error(w, fmt.Sprintf("delete failed: %v", err), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReprocessDocument wipes derived data and re-runs ingestion from the stored
// file. Rejected while the document is mid-processing.
func (h *DocumentHandler) ReprocessDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.ownedDocument(w, r)
	if !ok {
		return
	}

	if err := h.ingestor.Reprocess(r.Context(), doc.ID); err != nil {
		if doc.Status == models.StatusProcessing {
			http.Error(w, "document is currently processing", http.StatusConflict)
			return
		}
		http.Error(w, fmt.Sprintf("reprocess failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": models.StatusPending})
}

// ownedDocument loads the {document_id} route param and enforces ownership.
// On failure it writes the error response and returns ok=false.
func (h *DocumentHandler) ownedDocument(w http.ResponseWriter, r *http.Request) (*models.Document, bool) {
	userID, ok := r.Context().Value("user_id").(string)
	if !ok {
		http.Error(w, "user_id not found in context", http.StatusUnauthorized)
		return nil, false
	}

	docID := chi.URLParam(r, "document_id")
	doc, err := h.docs.Get(r.Context(), docID)
	if err != nil || doc == nil {
		http.Error(w, "document not found", http.StatusNotFound)
		return nil, false
	}
	if doc.UserID != userID {
		http.Error(w, "not authorized to access this document", http.StatusForbidden)
		return nil, false
	}
	return doc, true
}

func isPDF(filename, contentType string) bool {
	if strings.EqualFold(contentType, "application/pdf") {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}
