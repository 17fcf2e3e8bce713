package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zhouzirui/docmentor/backend/internal/document"
	"github.com/zhouzirui/docmentor/backend/internal/model/chat"
)

const (
	// DefaultHistoryLimit 每个会话保留的最大消息数。
	DefaultHistoryLimit = 200
	minHistoryLimit     = 8

	WelcomeText = "Hello! I'm your AI learning assistant. Ask me any questions about your document."
)

var (
	ErrDocumentRequired = errors.New("document name is required")
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidRole      = errors.New("invalid message role")
	ErrEmptyMessage     = errors.New("message text is required")
)

// Config 控制会话存储的上限。
type Config struct {
	HistoryLimit int
	MaxChars     int
}

// Service encapsulates session and transcript state.
type Service struct {
	mu           sync.RWMutex
	sessions     map[string]chat.Session
	messages     map[string][]chat.Message
	historyLimit int
	maxChars     int
}

// NewService bootstraps the in-memory chat store.
func NewService(cfg Config) *Service {
	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit < minHistoryLimit {
		limit = minHistoryLimit
	}

	return &Service{
		sessions:     make(map[string]chat.Session),
		messages:     make(map[string][]chat.Message),
		historyLimit: limit,
		maxChars:     cfg.MaxChars,
	}
}

// CreateSession 为一份文档开启会话，计算截断文本并写入欢迎消息。
func (s *Service) CreateSession(_ context.Context, doc chat.DocumentContext) (chat.Session, error) {
	doc.Name = strings.TrimSpace(doc.Name)
	if doc.Name == "" {
		return chat.Session{}, ErrDocumentRequired
	}
	doc.TruncatedText = document.Truncate(doc.RawText, s.maxChars)

	now := time.Now().UTC()
	session := chat.Session{
		ID:           uuid.NewString(),
		DocumentName: doc.Name,
		CreatedAt:    now,
		Document:     doc,
	}

	welcome := chat.Message{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Role:      chat.RoleAssistant,
		Text:      WelcomeText,
		Welcome:   true,
		CreatedAt: now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.messages[session.ID] = append(make([]chat.Message, 0, 16), welcome)
	s.mu.Unlock()

	return session, nil
}

// AppendMessage appends a message to the session history and returns the stored copy.
func (s *Service) AppendMessage(_ context.Context, message chat.Message) (chat.Message, error) {
	if message.SessionID == "" {
		return chat.Message{}, ErrSessionNotFound
	}
	if message.Role != chat.RoleUser && message.Role != chat.RoleAssistant {
		return chat.Message{}, fmt.Errorf("%w: %q", ErrInvalidRole, message.Role)
	}
	if message.Text == "" && message.ImageData == "" {
		return chat.Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[message.SessionID]; !ok {
		return chat.Message{}, ErrSessionNotFound
	}

	message.ID = uuid.NewString()
	message.Welcome = false
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	history := append(s.messages[message.SessionID], message)
	s.messages[message.SessionID] = s.trim(history)
	return message, nil
}

// trim 超出上限时丢弃最早的非欢迎消息。
func (s *Service) trim(history []chat.Message) []chat.Message {
	overflow := len(history) - s.historyLimit
	if overflow <= 0 {
		return history
	}

	kept := make([]chat.Message, 0, s.historyLimit)
	for _, msg := range history {
		if overflow > 0 && !msg.Welcome {
			overflow--
			continue
		}
		kept = append(kept, msg)
	}
	return kept
}

// SetDescription 记录文档摘要，并追加一条介绍文档内容的助手消息。
func (s *Service) SetDescription(_ context.Context, sessionID, description string) (chat.Message, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return chat.Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Message{}, ErrSessionNotFound
	}
	session.Document.Description = description
	s.sessions[sessionID] = session

	message := chat.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      chat.RoleAssistant,
		Text:      DescriptionMessage(description),
		CreatedAt: time.Now().UTC(),
	}
	s.messages[sessionID] = s.trim(append(s.messages[sessionID], message))
	return message, nil
}

// DescriptionMessage formats the assistant turn announcing a document summary.
func DescriptionMessage(description string) string {
	return "I've analyzed your document. Here's what it's about:\n\n" + description + "\n\n**Ask me any questions** about the content."
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// DeleteSession 清除会话及其全部消息。
func (s *Service) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	delete(s.messages, sessionID)
	return nil
}

// LoadTranscript returns stored messages for the provided session.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}
