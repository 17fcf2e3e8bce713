package library

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/docmentor/backend/internal/model/library"
	"github.com/zhouzirui/docmentor/backend/pkg/utils"
)

// Handler 内置文档库的HTTP处理器
type Handler struct {
	docs library.Store
}

// New 创建文档库处理器
func New(docs library.Store) *Handler {
	return &Handler{docs: docs}
}

// RegisterRoutes 注册文档库相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/library", h.handleList)
	r.Get("/library/{docID}", h.handleGet)
}

// handleList 列出所有内置文档（不含正文）
func (h *Handler) handleList(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.docs.List())
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.docs.FindByID(chi.URLParam(r, "docID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "document not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, doc)
}
