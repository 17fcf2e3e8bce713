package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/docmentor/backend/internal/model/chat"
	"github.com/zhouzirui/docmentor/backend/internal/model/library"
	chatservice "github.com/zhouzirui/docmentor/backend/internal/service/chat"
	"github.com/zhouzirui/docmentor/backend/internal/service/describe"
	"github.com/zhouzirui/docmentor/backend/internal/service/intake"
	"github.com/zhouzirui/docmentor/backend/internal/service/tutor"
)

type fakeDescriber struct {
	description string
	err         error
}

func (f *fakeDescriber) Summarize(_ context.Context, _ string) (string, error) {
	return f.description, f.err
}

type fakeGenerator struct {
	reply string
}

func (f *fakeGenerator) Generate(_ context.Context, _ string, _ []*schema.Message, _ *schema.Message) (*schema.Message, error) {
	return schema.AssistantMessage(f.reply, nil), nil
}

func setupRouter(describer Describer, maxUpload int64) (*chi.Mux, *Handler, *chatservice.Service) {
	chatSvc := chatservice.NewService(chatservice.Config{})
	tutorSvc := tutor.New(chatSvc, &fakeGenerator{reply: "**Mitochondria** make ATP."})
	handler := New(chatSvc, library.NewMemoryStore(library.Seed()), describer, intake.New(tutorSvc), maxUpload)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, handler, chatSvc
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile err: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write file err: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("writer.Close err: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func jsonRequest(method, path string, payload any) *http.Request {
	buf, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeSession(t *testing.T, rr *httptest.ResponseRecorder) sessionResponse {
	t.Helper()
	var resp sessionResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	return resp
}

func TestUploadCreatesSessionAndDescribesInBackground(t *testing.T) {
	r, handler, chatSvc := setupRouter(&fakeDescriber{description: "A short biology primer."}, 0)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, uploadRequest(t, "bio.txt", []byte("Mitochondria are the powerhouse of the cell.")))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeSession(t, rr)
	if resp.Session.DocumentName != "bio.txt" || resp.Session.Document.PageCount != 1 {
		t.Fatalf("unexpected session %+v", resp.Session)
	}
	if !resp.Describing {
		t.Fatal("expected background description to be scheduled")
	}
	if len(resp.Messages) != 1 || !resp.Messages[0].Welcome {
		t.Fatalf("expected only the welcome message, got %+v", resp.Messages)
	}

	handler.Wait()

	session, err := chatSvc.GetSession(context.Background(), resp.Session.ID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	if session.Document.Description != "A short biology primer." {
		t.Fatalf("description not stored: %q", session.Document.Description)
	}
	transcript, _ := chatSvc.LoadTranscript(context.Background(), session.ID)
	if len(transcript) != 2 || transcript[1].Text != chatservice.DescriptionMessage("A short biology primer.") {
		t.Fatalf("unexpected transcript %+v", transcript)
	}
}

func TestUploadDescriptionFailureLeavesSessionUndescribed(t *testing.T) {
	r, handler, chatSvc := setupRouter(&fakeDescriber{err: errors.New("boom")}, 0)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, uploadRequest(t, "notes.md", []byte("# Notes\n\nsome text")))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	resp := decodeSession(t, rr)
	handler.Wait()

	session, _ := chatSvc.GetSession(context.Background(), resp.Session.ID)
	if session.Document.Description != "" {
		t.Fatalf("description should stay empty, got %q", session.Document.Description)
	}
	transcript, _ := chatSvc.LoadTranscript(context.Background(), session.ID)
	if len(transcript) != 2 || transcript[1].Text != describe.FallbackDescription {
		t.Fatalf("expected a visible fallback notice, got %+v", transcript)
	}
}

func TestUploadRejections(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		content  []byte
		maxBytes int64
		status   int
	}{
		{name: "legacy doc", filename: "old.doc", content: []byte("x"), status: http.StatusUnsupportedMediaType},
		{name: "unsupported", filename: "image.png", content: []byte("x"), status: http.StatusUnsupportedMediaType},
		{name: "too large", filename: "big.txt", content: bytes.Repeat([]byte("a"), 64), maxBytes: 16, status: http.StatusRequestEntityTooLarge},
		{name: "empty", filename: "empty.txt", content: nil, status: http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, _, _ := setupRouter(&fakeDescriber{}, tc.maxBytes)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, uploadRequest(t, tc.filename, tc.content))
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestLibrarySessionPrefillsDescription(t *testing.T) {
	r, _, _ := setupRouter(&fakeDescriber{err: errors.New("should not be called")}, 0)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/library/doc1/session", nil))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	resp := decodeSession(t, rr)
	doc, _ := library.NewMemoryStore(library.Seed()).FindByID("doc1")
	if resp.Session.Document.Description != doc.Description || resp.Session.Document.LibraryID != "doc1" {
		t.Fatalf("unexpected document context %+v", resp.Session.Document)
	}
	if len(resp.Messages) != 2 || resp.Messages[1].Text != chatservice.DescriptionMessage(doc.Description) {
		t.Fatalf("unexpected messages %+v", resp.Messages)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/library/nope/session", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func createSession(t *testing.T, chatSvc *chatservice.Service) chat.Session {
	t.Helper()
	session, err := chatSvc.CreateSession(context.Background(), chat.DocumentContext{Name: "bio.txt", RawText: "Mitochondria are organelles."})
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	return session
}

func TestAskReturnsRenderedReply(t *testing.T) {
	r, _, chatSvc := setupRouter(&fakeDescriber{}, 0)
	session := createSession(t, chatSvc)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, jsonRequest(http.MethodPost, "/sessions/"+session.ID+"/ask", map[string]string{"text": "What do mitochondria do?"}))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp replyResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if resp.Message.Role != chat.RoleAssistant || resp.Message.Text != "**Mitochondria** make ATP." {
		t.Fatalf("unexpected reply %+v", resp.Message)
	}
	if !strings.Contains(resp.HTML, "<strong>Mitochondria</strong>") {
		t.Fatalf("unexpected html %q", resp.HTML)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/sessions/"+session.ID+"/messages", nil))
	var messages []chat.Message
	if err := json.NewDecoder(rr.Body).Decode(&messages); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if len(messages) != 3 || messages[1].Role != chat.RoleUser {
		t.Fatalf("unexpected transcript %+v", messages)
	}
}

func TestExplainAndCaptureValidation(t *testing.T) {
	r, _, chatSvc := setupRouter(&fakeDescriber{}, 0)
	session := createSession(t, chatSvc)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, jsonRequest(http.MethodPost, "/sessions/"+session.ID+"/explain", map[string]string{"text": "too short"}))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short selection, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, jsonRequest(http.MethodPost, "/sessions/"+session.ID+"/capture", map[string]string{"imageData": "not-an-image"}))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid image, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, jsonRequest(http.MethodPost, "/sessions/"+session.ID+"/explain", map[string]string{"text": "the electron transport chain"}))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for selection, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, jsonRequest(http.MethodPost, "/sessions/missing/ask", map[string]string{"text": "hello"}))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", rr.Code)
	}
}

func TestDescribeEndpoint(t *testing.T) {
	t.Run("failure returns fallback without storing", func(t *testing.T) {
		r, _, chatSvc := setupRouter(&fakeDescriber{err: errors.New("boom")}, 0)
		session := createSession(t, chatSvc)

		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sessions/"+session.ID+"/describe", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		var resp map[string]any
		_ = json.NewDecoder(rr.Body).Decode(&resp)
		if resp["description"] != describe.FallbackDescription {
			t.Fatalf("unexpected description %v", resp["description"])
		}
		transcript, _ := chatSvc.LoadTranscript(context.Background(), session.ID)
		if len(transcript) != 1 {
			t.Fatalf("transcript should be unchanged, got %d messages", len(transcript))
		}
	})

	t.Run("missing key sentinel", func(t *testing.T) {
		r, _, chatSvc := setupRouter(describe.NewService(nil, 0), 0)
		session := createSession(t, chatSvc)

		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sessions/"+session.ID+"/describe", nil))
		var resp map[string]any
		_ = json.NewDecoder(rr.Body).Decode(&resp)
		if resp["description"] != describe.MissingKeyDescription {
			t.Fatalf("unexpected description %v", resp["description"])
		}
	})

	t.Run("success stores description", func(t *testing.T) {
		r, _, chatSvc := setupRouter(&fakeDescriber{description: "Cells."}, 0)
		session := createSession(t, chatSvc)

		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sessions/"+session.ID+"/describe", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		got, _ := chatSvc.GetSession(context.Background(), session.ID)
		if got.Document.Description != "Cells." {
			t.Fatalf("description not stored: %q", got.Document.Description)
		}
	})
}

func TestDeleteSessionResets(t *testing.T) {
	r, _, chatSvc := setupRouter(&fakeDescriber{}, 0)
	session := createSession(t, chatSvc)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/sessions/"+session.ID, nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/sessions/"+session.ID, nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after reset, got %d", rr.Code)
	}
}

func TestRender(t *testing.T) {
	r, _, _ := setupRouter(&fakeDescriber{}, 0)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, jsonRequest(http.MethodPost, "/render", map[string]string{"text": "# Title\n`code`"}))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp map[string]string
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if !strings.Contains(resp["html"], "<h1>Title</h1>") || !strings.Contains(resp["html"], "<code>code</code>") {
		t.Fatalf("unexpected html %q", resp["html"])
	}
}
