package chat

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/docmentor/backend/internal/document"
	"github.com/zhouzirui/docmentor/backend/internal/model/chat"
	"github.com/zhouzirui/docmentor/backend/internal/model/library"
	chatService "github.com/zhouzirui/docmentor/backend/internal/service/chat"
	"github.com/zhouzirui/docmentor/backend/internal/service/intake"
	"github.com/zhouzirui/docmentor/backend/pkg/utils"
)

// Describer produces a document summary; describe.Service implements it.
type Describer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Intake 提交用户事件，由 intake.Service 实现。
type Intake interface {
	Selection(ctx context.Context, sessionID, text string) (chat.Message, error)
	Capture(ctx context.Context, sessionID, imageData, question string) (chat.Message, error)
	Question(ctx context.Context, sessionID, text string) (chat.Message, error)
}

// Handler 会话服务的HTTP处理器
type Handler struct {
	chatSvc        *chatService.Service
	docs           library.Store
	describer      Describer
	intake         Intake
	maxUploadBytes int64

	pending sync.WaitGroup
}

// New 创建会话处理器
func New(chatSvc *chatService.Service, docs library.Store, describer Describer, intakeSvc Intake, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = document.DefaultMaxUploadBytes
	}
	return &Handler{
		chatSvc:        chatSvc,
		docs:           docs,
		describer:      describer,
		intake:         intakeSvc,
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/documents", h.handleUpload)
	r.Post("/library/{docID}/session", h.handleLibrarySession)

	r.Route("/sessions/{sessionID}", func(s chi.Router) {
		s.Get("/", h.handleGetSession)
		s.Delete("/", h.handleDeleteSession)
		s.Get("/messages", h.handleMessages)
		s.Post("/describe", h.handleDescribe)
		s.Post("/ask", h.handleAsk)
		s.Post("/explain", h.handleExplain)
		s.Post("/capture", h.handleCapture)
	})

	r.Post("/render", h.handleRender)
}

// Wait blocks until background description requests have finished.
func (h *Handler) Wait() {
	h.pending.Wait()
}

type sessionResponse struct {
	Session    chat.Session   `json:"session"`
	Messages   []chat.Message `json:"messages"`
	Describing bool           `json:"describing,omitempty"`
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

// handleDeleteSession 重置会话：清除文档、历史与摘要
func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.chatSvc.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chatSvc.LoadTranscript(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, messages)
}

func (h *Handler) respondSession(w http.ResponseWriter, r *http.Request, status int, session chat.Session, describing bool) {
	messages, err := h.chatSvc.LoadTranscript(r.Context(), session.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, status, sessionResponse{
		Session:    session,
		Messages:   messages,
		Describing: describing,
	})
}

// respondServiceError 将业务错误映射为HTTP状态码
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, intake.ErrSelectionTooShort),
		errors.Is(err, intake.ErrEmptyQuestion),
		errors.Is(err, intake.ErrInvalidImage),
		errors.Is(err, chatService.ErrDocumentRequired):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, intake.ErrImageTooLarge):
		utils.RespondError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		utils.RespondError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
