package chat

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/docmentor/backend/internal/markdown"
	"github.com/zhouzirui/docmentor/backend/internal/model/chat"
	"github.com/zhouzirui/docmentor/backend/pkg/utils"
)

type replyResponse struct {
	Message chat.Message `json:"message"`
	HTML    string       `json:"html"`
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		return
	}

	reply, err := h.intake.Question(r.Context(), chi.URLParam(r, "sessionID"), payload.Text)
	h.respondReply(w, reply, err)
}

// handleExplain 讲解用户选中的文本
func (h *Handler) handleExplain(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		return
	}

	reply, err := h.intake.Selection(r.Context(), chi.URLParam(r, "sessionID"), payload.Text)
	h.respondReply(w, reply, err)
}

// handleCapture 分析截图区域
func (h *Handler) handleCapture(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ImageData string `json:"imageData"`
		Question  string `json:"question"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		return
	}

	reply, err := h.intake.Capture(r.Context(), chi.URLParam(r, "sessionID"), payload.ImageData, payload.Question)
	h.respondReply(w, reply, err)
}

func (h *Handler) handleRender(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"html": markdown.Render(payload.Text)})
}

func (h *Handler) respondReply(w http.ResponseWriter, reply chat.Message, err error) {
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, replyResponse{
		Message: reply,
		HTML:    markdown.Render(reply.Text),
	})
}
