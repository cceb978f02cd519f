package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/somshekargr/studybuddy/internal/core"
	"github.com/somshekargr/studybuddy/internal/core/persona"
	"github.com/somshekargr/studybuddy/internal/core/retrieval"
	"github.com/somshekargr/studybuddy/internal/models"
	"github.com/somshekargr/studybuddy/internal/services"
)

// distanceCutoff drops vector hits too far from the question to be useful
// evidence (cosine distance, lower is closer).
const distanceCutoff = 0.65

// Stream preamble markers. The client reads these two lines before the
// token stream starts.
const (
	sessionMarker   = "__SESSION_ID__:"
	citationsMarker = "__CITATIONS__:"
)

type ChatHandler struct {
	chats     *services.ChatService
	docs      *services.DocumentService
	retriever *retrieval.HybridRetriever
	llm       core.LLMProvider
	web       core.WebSearcher
}

func NewChatHandler(chats *services.ChatService, docs *services.DocumentService, retriever *retrieval.HybridRetriever, llm core.LLMProvider, web core.WebSearcher) *ChatHandler {
	return &ChatHandler{chats: chats, docs: docs, retriever: retriever, llm: llm, web: web}
}

type chatRequest struct {
	DocumentID string `json:"document_id"`
	Question   string `json:"question"`
	Persona    string `json:"persona"`
	SessionID  string `json:"session_id"`
	WebSearch  bool   `json:"web_search"`
}

// Chat answers one question as a plain-text token stream. The first two
// lines are the session ID and the citations JSON; everything after is the
// answer itself.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := ctx.Value("user_id").(string)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}
	if req.Persona == "" {
		req.Persona = "default"
	}

	// Resolve the document, when this is a document chat.
	var doc *models.Document
	if req.DocumentID != "" {
		d, err := h.docs.Get(ctx, req.DocumentID)
		if err != nil || d == nil {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		if d.UserID != userID {
			http.Error(w, "not authorized to access this document", http.StatusForbidden)
			return
		}
		if d.Status != models.StatusReady {
			http.Error(w, fmt.Sprintf("document is %s, not ready yet", d.Status), http.StatusBadRequest)
			return
		}
		doc = d
	}

	session, err := h.chats.EnsureSession(ctx, userID, req.SessionID, req.Persona, doc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	if err := h.chats.SaveUserMessage(ctx, session.ID, req.Question); err != nil {
		http.Error(w, fmt.Sprintf("could not save message: %v", err), http.StatusInternalServerError)
		return
	}

	// Context pipeline: vector + graph retrieval, then optional web search.
	var (
		snippets  []persona.Snippet
		citations []any
		facts     []models.GraphFact
	)
	if doc != nil {
		result, err := h.retriever.Retrieve(ctx, doc.ID, req.Question)
		if err != nil {
			http.Error(w, fmt.Sprintf("retrieval failed: %v", err), http.StatusInternalServerError)
			return
		}
		for _, c := range result.Chunks {
			if c.Distance >= distanceCutoff {
				continue
			}
			snippets = append(snippets, persona.PageSnippet(c.PageNumber, c.Content))
			citations = append(citations, c.PageNumber)
		}
		facts = result.Facts
	}

	if req.WebSearch && h.web != nil {
		results, err := h.web.Search(ctx, req.Question, 3)
		if err != nil {
			log.Printf("web search failed: %v", err)
		}
		for _, wr := range results {
			snippets = append(snippets, persona.WebSnippet(fmt.Sprintf("Title: %s\nURL: %s\nSnippet: %s", wr.Title, wr.URL, wr.Snippet)))
			citations = append(citations, "Web")
		}
	}

	question := req.Question
	if len(facts) > 0 {
		question = fmt.Sprintf("[Related Knowledge Graph Facts]:\n%s\n\n[Student Question]:\n%s",
			strings.Join(retrieval.RenderFacts(facts), "\n"), req.Question)
	}

	history, err := h.chats.History(ctx, session.ID)
	if err != nil {
		http.Error(w, fmt.Sprintf("could not load history: %v", err), http.StatusInternalServerError)
		return
	}

	messages := persona.AssemblePrompt(session.Persona, snippets, question, history)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Accel-Buffering", "no")

	citationsJSON, _ := json.Marshal(citations)
	fmt.Fprintf(w, "%s%s\n", sessionMarker, session.ID)
	fmt.Fprintf(w, "%s%s\n", citationsMarker, citationsJSON)
	flusher.Flush()

	tokens, errs := h.llm.Stream(ctx, messages)

	var full strings.Builder
	for token := range tokens {
		full.WriteString(token)
		fmt.Fprint(w, token)
		flusher.Flush()
	}
	if err := <-errs; err != nil {
		log.Printf("stream for session %s ended with error: %v", session.ID, err)
	}

	// Persist the turn even if the client hung up mid-stream.
	finishCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := h.chats.FinishTurn(finishCtx, session.ID, full.String(), string(citationsJSON)); err != nil {
		log.Printf("could not persist assistant turn for session %s: %v", session.ID, err)
	}
}

// GetSessions lists the caller's chat sessions, scoped to one document via
// ?document_id= or to general chat when absent.
func (h *ChatHandler) GetSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(string)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var docID *string
	if v := strings.TrimSpace(r.URL.Query().Get("document_id")); v != "" {
		docID = &v
	}

	sessions, err := h.chats.ListSessions(r.Context(), userID, docID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessions)
}

func (h *ChatHandler) GetSessionMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(string)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	sessionID := chi.URLParam(r, "session_id")
	messages, err := h.chats.SessionMessages(r.Context(), userID, sessionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messages)
}

// GetPersonas lists the selectable tutoring personas.
func (h *ChatHandler) GetPersonas(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		Key         string `json:"key"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	out := make([]entry, 0, len(persona.Personas))
	for key, p := range persona.Personas {
		out = append(out, entry{Key: key, Name: p.Name, Description: p.Description})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}
