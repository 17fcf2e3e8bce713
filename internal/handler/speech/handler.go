package speech

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/docmentor/backend/internal/model/speech"
	speechsvc "github.com/zhouzirui/docmentor/backend/internal/service/speech"
	"github.com/zhouzirui/docmentor/backend/pkg/utils"
)

// SpeechService 抽象语音业务，便于测试与替换实现
type SpeechService interface {
	Synthesize(ctx context.Context, text, voice string) (*speech.TTSResponse, error)
	Voices() []speech.Voice
	RemoteEnabled() bool
	ResolveVoice(voice string) string
	NewSpeaker(local speechsvc.LocalSynthesizer, player speechsvc.Player) *speechsvc.Speaker
}

// Handler 语音服务的HTTP处理器
type Handler struct {
	speechSvc SpeechService
}

// New 创建语音处理器
func New(speechSvc SpeechService) *Handler {
	return &Handler{speechSvc: speechSvc}
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/voices", h.handleVoices)
	r.Route("/speech", func(speechRouter chi.Router) {
		speechRouter.Post("/synthesize", h.handleSynthesize)
		speechRouter.Get("/health", h.handleHealth)
	})
}

func (h *Handler) handleVoices(w http.ResponseWriter, _ *http.Request) {
	voices := h.speechSvc.Voices()
	out := make([]map[string]string, 0, len(voices))
	for _, v := range voices {
		out = append(out, map[string]string{
			"id":     v.ID,
			"name":   v.Name,
			"gender": v.Gender,
			"label":  v.Label(),
		})
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"voices":  out,
		"default": h.speechSvc.ResolveVoice(""),
	})
}

// handleSynthesize 返回远程合成的音频；没有密钥或远程失败时返回 local 模式的 JSON，由浏览器本地朗读
func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req speech.TTSRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	resp, err := h.speechSvc.Synthesize(r.Context(), req.Text, req.Voice)
	if err != nil {
		if errors.Is(err, speechsvc.ErrEmptyText) {
			utils.RespondError(w, http.StatusBadRequest, "text is empty after removing markdown")
			return
		}
		log.Printf("[speech] TTS error: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "speech synthesis failed")
		return
	}
	resp.SessionID = req.SessionID

	if len(resp.AudioData) == 0 {
		utils.RespondJSON(w, http.StatusOK, resp)
		return
	}

	format := resp.Format
	if format == "" {
		format = "mpeg"
	}
	w.Header().Set("Content-Type", "audio/"+format)
	w.Header().Set("Content-Length", strconv.Itoa(len(resp.AudioData)))
	w.Header().Set("X-Speech-Voice", resp.Voice)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(resp.AudioData); err != nil {
		log.Printf("failed to write audio response: %v", err)
	}
}

// handleHealth 健康检查端点
func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "speech",
		"remote":  h.speechSvc.RemoteEnabled(),
	})
}
