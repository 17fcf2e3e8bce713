// Package tutor answers questions about the session document.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/docmentor/backend/internal/model/chat"
	"github.com/zhouzirui/docmentor/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/docmentor/backend/internal/service/chat"
)

// Fixed assistant replies used when the model cannot answer.
const (
	MissingKeyReply = "[Gemini API key not set. Please set GEMINI_API_KEY in your .env file.]"
	NoAnswerReply   = "[No response from Gemini. Please try again.]"
	APIErrorReply   = "[Gemini API error. Please try again.]"
)

// Kind 标识用户请求的来源。
type Kind string

const (
	KindQuestion  Kind = "question"
	KindSelection Kind = "selection"
	KindCapture   Kind = "capture"
)

// Request is one user turn.
type Request struct {
	Kind      Kind
	Text      string
	ImageData string
}

// Generator is the slice of ai.Service the tutor needs.
type Generator interface {
	Generate(ctx context.Context, system string, history []*schema.Message, query *schema.Message) (*schema.Message, error)
}

// Store 是会话历史存储，由 chat.Service 实现。
type Store interface {
	GetSession(ctx context.Context, sessionID string) (chat.Session, error)
	LoadTranscript(ctx context.Context, sessionID string) ([]chat.Message, error)
	AppendMessage(ctx context.Context, message chat.Message) (chat.Message, error)
}

// Service runs the explanation flow: record the user turn, ask the model, record the reply.
type Service struct {
	store     Store
	generator Generator
}

// New 创建讲解服务；generator 为 nil 表示未配置模型密钥。
func New(store Store, generator Generator) *Service {
	return &Service{store: store, generator: generator}
}

// UserText returns the text stored for a request of the given kind.
func UserText(req Request) string {
	switch req.Kind {
	case KindSelection:
		return ai.SelectionPrompt(req.Text)
	case KindCapture:
		if strings.TrimSpace(req.Text) == "" {
			return ai.CaptureDefaultQuestion
		}
	}
	return req.Text
}

// Ask appends the user turn, queries the model and appends the assistant reply.
// Model failures become fixed reply strings; only a missing session is returned as an error.
func (s *Service) Ask(ctx context.Context, sessionID string, req Request) (chat.Message, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return chat.Message{}, err
	}

	prior, err := s.store.LoadTranscript(ctx, sessionID)
	if err != nil {
		return chat.Message{}, err
	}

	text := UserText(req)
	userMsg, err := s.store.AppendMessage(ctx, chat.Message{
		SessionID: sessionID,
		Role:      chat.RoleUser,
		Text:      text,
		ImageData: req.ImageData,
	})
	if err != nil {
		return chat.Message{}, fmt.Errorf("append user message: %w", err)
	}

	reply := s.reply(ctx, session, prior, userMsg)

	assistant, err := s.store.AppendMessage(ctx, chat.Message{
		SessionID: sessionID,
		Role:      chat.RoleAssistant,
		Text:      reply,
	})
	if err != nil {
		if errors.Is(err, chatservice.ErrSessionNotFound) {
			return chat.Message{}, err
		}
		return chat.Message{}, fmt.Errorf("append assistant message: %w", err)
	}
	return assistant, nil
}

func (s *Service) reply(ctx context.Context, session chat.Session, prior []chat.Message, userMsg chat.Message) string {
	if s.generator == nil {
		return MissingKeyReply
	}

	resp, err := s.generator.Generate(
		ctx,
		ai.TutorInstruction(session.Document),
		ai.HistoryMessages(prior),
		ai.UserTurn(userMsg.Text, userMsg.ImageData),
	)
	if err != nil {
		log.Printf("[tutor] model request failed session=%s: %v", session.ID, err)
		return APIErrorReply
	}
	if resp == nil || resp.Content == "" {
		log.Printf("[tutor] model returned no answer session=%s", session.ID)
		return NoAnswerReply
	}
	return resp.Content
}
