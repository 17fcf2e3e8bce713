package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zhouzirui/docmentor/backend/internal/config"
	"github.com/zhouzirui/docmentor/backend/internal/model/library"
	chatService "github.com/zhouzirui/docmentor/backend/internal/service/chat"
	"github.com/zhouzirui/docmentor/backend/internal/service/describe"
	intakeService "github.com/zhouzirui/docmentor/backend/internal/service/intake"
	speechService "github.com/zhouzirui/docmentor/backend/internal/service/speech"
	"github.com/zhouzirui/docmentor/backend/internal/service/tutor"
)

func newTestRouter(withSpeech bool) http.Handler {
	chatSvc := chatService.NewService(chatService.Config{})
	svc := Services{
		Library:   library.NewMemoryStore(library.Seed()),
		Chat:      chatSvc,
		Describer: describe.NewService(nil, 0),
		Intake:    intakeService.New(tutor.New(chatSvc, nil)),
	}
	if withSpeech {
		svc.Speech = speechService.NewService(config.SpeechConfig{})
	}
	return NewRouter(svc)
}

func TestRoutesRegistered(t *testing.T) {
	r := newTestRouter(true)

	cases := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/api/health", http.StatusOK},
		{http.MethodGet, "/api/library", http.StatusOK},
		{http.MethodGet, "/api/voices", http.StatusOK},
		{http.MethodGet, "/api/speech/health", http.StatusOK},
		{http.MethodGet, "/api/sessions/missing", http.StatusNotFound},
		{http.MethodGet, "/api/sessions/missing/messages", http.StatusNotFound},
		{http.MethodOptions, "/api/documents", http.StatusNoContent},
	}

	for _, tc := range cases {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
		if rr.Code != tc.status {
			t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.path, tc.status, rr.Code)
		}
	}
}

func TestWebSocketUnavailableWithoutSpeech(t *testing.T) {
	r := newTestRouter(false)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/ws/abc", nil))
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", rr.Code)
	}
}
