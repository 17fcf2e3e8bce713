package stream

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/docmentor/backend/internal/markdown"
	"github.com/zhouzirui/docmentor/backend/internal/model/chat"
	chatService "github.com/zhouzirui/docmentor/backend/internal/service/chat"
	"github.com/zhouzirui/docmentor/backend/internal/service/tutor"
	"github.com/zhouzirui/docmentor/backend/pkg/utils"
)

// Intake is the slice of intake.Service used for streamed questions.
type Intake interface {
	Selection(ctx context.Context, sessionID, text string) (chat.Message, error)
	Question(ctx context.Context, sessionID, text string) (chat.Message, error)
}

// Handler delivers explanations via Server-Sent Events
type Handler struct {
	chatSvc *chatService.Service
	intake  Intake
}

// New creates a new stream handler
func New(chatSvc *chatService.Service, intakeSvc Intake) *Handler {
	return &Handler{chatSvc: chatSvc, intake: intakeSvc}
}

// StreamResponse represents one SSE payload
type StreamResponse struct {
	Event     string        `json:"event"`
	SessionID string        `json:"sessionId,omitempty"`
	Content   string        `json:"content,omitempty"`
	HTML      string        `json:"html,omitempty"`
	Message   *chat.Message `json:"message,omitempty"`
	Finished  bool          `json:"finished,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// RegisterRoutes 注册流式讲解路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	message := r.URL.Query().Get("message")
	kind := tutor.Kind(r.URL.Query().Get("kind"))

	if strings.TrimSpace(message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}
	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	if err := h.HandleStreamRequest(r.Context(), w, sessionID, kind, message); err != nil {
		log.Printf("[stream] error handling request session=%s: %v", sessionID, err)
	}
}

// HandleStreamRequest 发送 user、message、end 三个事件；失败时发送 error 事件
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID string, kind tutor.Kind, text string) error {
	sse, err := utils.NewSSEWriter(w)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return err
	}

	if kind == "" {
		kind = tutor.KindQuestion
	}

	var reply chat.Message
	switch kind {
	case tutor.KindSelection:
		h.sendSSE(sse, StreamResponse{
			Event:     "user",
			SessionID: sessionID,
			Content:   tutor.UserText(tutor.Request{Kind: kind, Text: strings.TrimSpace(text)}),
		})
		reply, err = h.intake.Selection(ctx, sessionID, text)
	case tutor.KindQuestion:
		h.sendSSE(sse, StreamResponse{
			Event:     "user",
			SessionID: sessionID,
			Content:   strings.TrimSpace(text),
		})
		reply, err = h.intake.Question(ctx, sessionID, text)
	default:
		err = fmt.Errorf("unsupported kind %q", kind)
	}
	if err != nil {
		h.sendSSEError(sse, sessionID, err.Error())
		return err
	}

	h.sendSSE(sse, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Content:   reply.Text,
		HTML:      markdown.Render(reply.Text),
		Message:   &reply,
	})
	h.sendSSE(sse, StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	})

	log.Printf("[stream] completed response for session=%s kind=%s", sessionID, kind)
	return nil
}

func (h *Handler) sendSSE(sse *utils.SSEWriter, response StreamResponse) {
	if err := sse.Event(response.Event, response); err != nil {
		log.Printf("[stream] send %s event session=%s failed: %v", response.Event, response.SessionID, err)
	}
}

func (h *Handler) sendSSEError(sse *utils.SSEWriter, sessionID, errorMsg string) {
	h.sendSSE(sse, StreamResponse{
		Event:     "error",
		SessionID: sessionID,
		Error:     errorMsg,
	})
}
