package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/somshekargr/studybuddy/internal/core"
)

const quizSystemPrompt = `You are a helpful study assistant.
Generate %d multiple-choice questions based on the provided text.
Return the result as a STRICT JSON array of objects.

The JSON format must be exactly:
[
    {
        "question": "The question text",
        "options": ["Option A", "Option B", "Option C", "Option D"],
        "correct_answer": 0,
        "explanation": "Brief explanation of why this answer is correct."
    }
]

"correct_answer" is the index of the correct option (0-3).
Do not output any markdown formatting like ` + "```json or ```" + `. Just the raw JSON string.`

// quizContextChunks bounds the sampled context so the prompt stays small
// while still covering different parts of the document.
const quizContextChunks = 5

// QuizQuestion is one generated multiple-choice question.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

type QuizService struct {
	db  core.DbClient
	llm core.LLMProvider
}

func NewQuizService(db core.DbClient, llm core.LLMProvider) *QuizService {
	return &QuizService{db: db, llm: llm}
}

var ErrNoContent = errors.New("document has no indexed content")

// Generate samples random chunks from the document and asks the model for a
// quiz over them. Unparseable model output yields an empty list, not an error.
func (s *QuizService) Generate(ctx context.Context, documentID string, numQuestions int) ([]QuizQuestion, error) {
	if numQuestions <= 0 {
		numQuestions = 5
	}

	chunks, err := s.db.RandomChunksByDocument(ctx, documentID, quizContextChunks)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrNoContent
	}

	parts := make([]string, len(chunks))
	for n, c := range chunks {
		parts[n] = c.Content
	}
	userPrompt := fmt.Sprintf("Context:\n%s\n\nGenerate %d questions.", strings.Join(parts, "\n\n"), numQuestions)

	raw, err := s.llm.Generate(ctx, fmt.Sprintf(quizSystemPrompt, numQuestions), userPrompt)
	if err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}

	questions := parseQuiz(raw)
	if questions == nil {
		log.Printf("QuizService: model returned unparseable quiz for document %s", documentID)
		return []QuizQuestion{}, nil
	}
	return questions, nil
}

// parseQuiz strips stray markdown fences and decodes the question array.
func parseQuiz(raw string) []QuizQuestion {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = cleaned[len("```json"):]
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = cleaned[len("```"):]
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")

	var questions []QuizQuestion
	if err := json.Unmarshal([]byte(strings.TrimSpace(cleaned)), &questions); err != nil {
		return nil
	}
	return questions
}
