package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/somshekargr/studybuddy/internal/models"
	"github.com/somshekargr/studybuddy/internal/services"
)

// GraphExplorer is the read slice of the graph store the knowledge-map
// endpoint needs.
type GraphExplorer interface {
	DocumentEdges(ctx context.Context, documentID string) ([]models.GraphFact, error)
}

type GraphHandler struct {
	graph GraphExplorer
	docs  *services.DocumentService
}

func NewGraphHandler(graph GraphExplorer, docs *services.DocumentService) *GraphHandler {
	return &GraphHandler{graph: graph, docs: docs}
}

type graphNode struct {
	ID string `json:"id"`
}

type graphLink struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
	Page     int    `json:"page"`
}

// GetDocumentGraph returns the document's knowledge map as nodes and links.
func (h *GraphHandler) GetDocumentGraph(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(string)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	docID := chi.URLParam(r, "document_id")
	doc, err := h.docs.Get(r.Context(), docID)
	if err != nil || doc == nil {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}
	if doc.UserID != userID {
		http.Error(w, "not authorized", http.StatusForbidden)
		return
	}

	facts, err := h.graph.DocumentEdges(r.Context(), doc.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	seen := make(map[string]bool)
	nodes := make([]graphNode, 0)
	links := make([]graphLink, 0, len(facts))
	for _, f := range facts {
		for _, name := range []string{f.Subject, f.Object} {
			if !seen[name] {
				seen[name] = true
				nodes = append(nodes, graphNode{ID: name})
			}
		}
		links = append(links, graphLink{
			Source:   f.Subject,
			Target:   f.Object,
			Relation: f.Relation,
			Page:     f.PageNumber,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"nodes": nodes, "links": links})
}
