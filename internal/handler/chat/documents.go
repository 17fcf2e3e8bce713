package chat

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/docmentor/backend/internal/document"
	"github.com/zhouzirui/docmentor/backend/internal/model/chat"
	"github.com/zhouzirui/docmentor/backend/internal/service/describe"
	"github.com/zhouzirui/docmentor/backend/pkg/utils"
)

// multipart 边界与表单字段的额外开销
const multipartOverhead = 1 << 20

// handleUpload 接收上传文件，提取文本并创建会话，摘要在后台生成
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			utils.RespondError(w, http.StatusRequestEntityTooLarge, document.ErrTooLarge.Error())
			return
		}
		utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if _, err := document.Validate(header.Filename, header.Size, h.maxUploadBytes); err != nil {
		respondDocumentError(w, err)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	extracted, err := document.Extract(header.Filename, data)
	if err != nil {
		log.Printf("[chat] extract %s failed: %v", header.Filename, err)
		respondDocumentError(w, err)
		return
	}

	session, err := h.chatSvc.CreateSession(r.Context(), chat.DocumentContext{
		Name:      header.Filename,
		RawText:   extracted.Text,
		PageCount: extracted.PageCount,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	log.Printf("[chat] session=%s created for %s pages=%d chars=%d", session.ID, session.DocumentName, extracted.PageCount, len(extracted.Text))

	describing := h.describeAsync(r.Context(), session.ID, extracted.Text)
	h.respondSession(w, r, http.StatusCreated, session, describing)
}

// handleLibrarySession 基于内置文档创建会话，摘要直接使用文档自带描述
func (h *Handler) handleLibrarySession(w http.ResponseWriter, r *http.Request) {
	if h.docs == nil {
		utils.RespondError(w, http.StatusNotFound, "document not found")
		return
	}
	doc, ok := h.docs.FindByID(chi.URLParam(r, "docID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "document not found")
		return
	}

	session, err := h.chatSvc.CreateSession(r.Context(), chat.DocumentContext{
		Name:      doc.Title,
		RawText:   doc.Content,
		PageCount: 1,
		LibraryID: doc.ID,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if _, err := h.chatSvc.SetDescription(r.Context(), session.ID, doc.Description); err != nil {
		respondServiceError(w, err)
		return
	}
	session, err = h.chatSvc.GetSession(r.Context(), session.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	h.respondSession(w, r, http.StatusCreated, session, false)
}

// handleDescribe 同步重新生成摘要，失败时返回固定描述且不写入会话
func (h *Handler) handleDescribe(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if h.describer == nil {
		utils.RespondJSON(w, http.StatusOK, map[string]any{"description": describe.MissingKeyDescription})
		return
	}

	description, err := h.describer.Summarize(r.Context(), session.Document.RawText)
	if err != nil {
		utils.RespondJSON(w, http.StatusOK, map[string]any{"description": describe.Fallback(err)})
		return
	}

	message, err := h.chatSvc.SetDescription(r.Context(), session.ID, description)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"description": description,
		"message":     message,
	})
}

// describeAsync 在请求结束后继续生成摘要；成功时写入会话，失败时只追加一条提示消息
func (h *Handler) describeAsync(ctx context.Context, sessionID, text string) bool {
	if h.describer == nil || strings.TrimSpace(text) == "" {
		return false
	}

	detached := context.WithoutCancel(ctx)
	h.pending.Add(1)
	go func() {
		defer h.pending.Done()

		description, err := h.describer.Summarize(detached, text)
		if err != nil {
			notice := chat.Message{SessionID: sessionID, Role: chat.RoleAssistant, Text: describe.Fallback(err)}
			if _, err := h.chatSvc.AppendMessage(detached, notice); err != nil {
				log.Printf("[chat] store description notice session=%s failed: %v", sessionID, err)
			}
			return
		}
		if _, err := h.chatSvc.SetDescription(detached, sessionID, description); err != nil {
			log.Printf("[chat] store description session=%s failed: %v", sessionID, err)
		}
	}()
	return true
}

func respondDocumentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, document.ErrTooLarge):
		utils.RespondError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, document.ErrUnsupportedType),
		errors.Is(err, document.ErrLegacyDoc):
		utils.RespondError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, document.ErrEmptyFile):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondError(w, http.StatusUnprocessableEntity, "failed to read document: "+err.Error())
	}
}
