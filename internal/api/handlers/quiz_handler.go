package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/somshekargr/studybuddy/internal/models"
	"github.com/somshekargr/studybuddy/internal/services"
)

type QuizHandler struct {
	quiz *services.QuizService
	docs *services.DocumentService
}

func NewQuizHandler(quiz *services.QuizService, docs *services.DocumentService) *QuizHandler {
	return &QuizHandler{quiz: quiz, docs: docs}
}

type quizRequest struct {
	DocumentID   string `json:"document_id"`
	NumQuestions int    `json:"num_questions"`
}

// GenerateQuiz builds a multiple-choice quiz from random chunks of the
// document.
func (h *QuizHandler) GenerateQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(string)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req quizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	doc, err := h.docs.Get(r.Context(), req.DocumentID)
	if err != nil || doc == nil {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}
	if doc.UserID != userID {
		http.Error(w, "not authorized", http.StatusForbidden)
		return
	}
	if doc.Status != models.StatusReady {
		http.Error(w, fmt.Sprintf("document is %s, not ready yet", doc.Status), http.StatusBadRequest)
		return
	}

	questions, err := h.quiz.Generate(r.Context(), doc.ID, req.NumQuestions)
	if err != nil {
		if errors.Is(err, services.ErrNoContent) {
			http.Error(w, "document has no content to generate quiz from", http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"questions": questions})
}
