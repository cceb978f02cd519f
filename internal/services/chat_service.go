package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/somshekargr/studybuddy/internal/core"
	"github.com/somshekargr/studybuddy/internal/models"
)

const titlePrompt = `Generate a short, concise title (max 5-6 words) for a chat session based on the following message.
Do not use quotes. Just the title.

Message:
%s`

// historyWindow is how many prior messages are replayed into the prompt.
const historyWindow = 10

type ChatService struct {
	db  core.DbClient
	llm core.LLMProvider

	// Writes to one session (messages, title) are serialized so concurrent
	// turns against the same session cannot interleave their commits.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewChatService(db core.DbClient, llm core.LLMProvider) *ChatService {
	return &ChatService{db: db, llm: llm, locks: make(map[string]*sync.Mutex)}
}

func (s *ChatService) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	return l
}

// EnsureSession returns the existing session or creates a new one. Sessions
// without a document are general chat: they get the "general" persona and a
// generic title regardless of what the client asked for.
func (s *ChatService) EnsureSession(ctx context.Context, userID, sessionID, personaName string, doc *models.Document) (*models.ChatSession, error) {
	if sessionID != "" {
		session, err := s.db.GetChatSessionByID(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if session == nil {
			return nil, fmt.Errorf("session %s not found", sessionID)
		}
		if session.UserID != userID {
			return nil, fmt.Errorf("session %s does not belong to user", sessionID)
		}
		return session, nil
	}

	title := "General Chat"
	var docID *string
	if doc != nil {
		title = "Chat about " + doc.FileName
		docID = &doc.ID
	} else {
		personaName = "general"
	}

	session := &models.ChatSession{
		ID:         uuid.NewString(),
		UserID:     userID,
		DocumentID: docID,
		Title:      title,
		Persona:    personaName,
	}
	if err := s.db.CreateChatSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// SaveUserMessage appends the student's turn.
func (s *ChatService) SaveUserMessage(ctx context.Context, sessionID, content string) error {
	l := s.sessionLock(sessionID)
	l.Lock()
	defer l.Unlock()

	return s.db.AddChatMessage(ctx, &models.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      "user",
		Content:   content,
	})
}

// History returns the last historyWindow messages before the current user
// turn, oldest first, shaped for the prompt assembler.
func (s *ChatService) History(ctx context.Context, sessionID string) ([]core.ChatMessage, error) {
	// One extra row: the newest message is the user turn just saved.
	recent, err := s.db.RecentMessagesBySession(ctx, sessionID, historyWindow+1)
	if err != nil {
		return nil, err
	}
	if len(recent) > 0 {
		recent = recent[1:]
	}

	out := make([]core.ChatMessage, 0, len(recent))
	for n := len(recent) - 1; n >= 0; n-- {
		out = append(out, core.ChatMessage{Role: recent[n].Role, Content: recent[n].Content})
	}
	return out, nil
}

// FinishTurn commits the assistant's reply and, when the session still
// carries an auto-generated title, replaces it with an LLM summary of the
// reply. Held under the session lock so title and message land together.
func (s *ChatService) FinishTurn(ctx context.Context, sessionID, content, citations string) error {
	l := s.sessionLock(sessionID)
	l.Lock()
	defer l.Unlock()

	if err := s.db.AddChatMessage(ctx, &models.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      "assistant",
		Content:   content,
		Citations: citations,
	}); err != nil {
		return err
	}

	session, err := s.db.GetChatSessionByID(ctx, sessionID)
	if err != nil || session == nil {
		return err
	}
	if !isDefaultTitle(session.Title) {
		return nil
	}

	title := s.generateTitle(ctx, content)
	if title == "" || title == session.Title {
		return nil
	}
	if err := s.db.UpdateChatSessionTitle(ctx, sessionID, title); err != nil {
		log.Printf("ChatService: title update for %s failed: %v", sessionID, err)
	}
	return nil
}

func (s *ChatService) ListSessions(ctx context.Context, userID string, documentID *string) ([]models.ChatSession, error) {
	return s.db.ListChatSessions(ctx, userID, documentID)
}

// SessionMessages returns the full transcript, oldest first, after verifying
// ownership.
func (s *ChatService) SessionMessages(ctx context.Context, userID, sessionID string) ([]models.ChatMessage, error) {
	session, err := s.db.GetChatSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	if session.UserID != userID {
		return nil, fmt.Errorf("session %s does not belong to user", sessionID)
	}
	return s.db.GetMessagesBySession(ctx, sessionID)
}

func (s *ChatService) generateTitle(ctx context.Context, text string) string {
	title, err := s.llm.Generate(ctx, "", fmt.Sprintf(titlePrompt, text))
	if err != nil {
		log.Printf("ChatService: title generation failed: %v", err)
		return ""
	}
	return strings.Trim(strings.TrimSpace(title), `"`)
}

func isDefaultTitle(title string) bool {
	return title == "New Chat" || title == "General Chat" || strings.HasPrefix(title, "Chat about ")
}
