package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/docmentor/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/docmentor/backend/internal/service/chat"
	"github.com/zhouzirui/docmentor/backend/internal/service/intake"
	"github.com/zhouzirui/docmentor/backend/internal/service/tutor"
)

type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, _ string, _ []*schema.Message, query *schema.Message) (*schema.Message, error) {
	return schema.AssistantMessage("You asked: "+query.Content, nil), nil
}

func setup(t *testing.T) (*chi.Mux, chat.Session) {
	t.Helper()
	chatSvc := chatservice.NewService(chatservice.Config{})
	session, err := chatSvc.CreateSession(context.Background(), chat.DocumentContext{Name: "bio.txt", RawText: "cells"})
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	r := chi.NewRouter()
	New(chatSvc, intake.New(tutor.New(chatSvc, echoGenerator{}))).RegisterRoutes(r)
	return r, session
}

func readEvents(t *testing.T, body string) []StreamResponse {
	t.Helper()
	var events []StreamResponse
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var ev StreamResponse
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			t.Fatalf("unmarshal event err: %v", err)
		}
		events = append(events, ev)
	}
	return events
}

func TestStreamQuestionEmitsUserMessageEnd(t *testing.T) {
	r, session := setup(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stream/"+session.ID+"?message="+url.QueryEscape("what is ATP?"), nil))

	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %s", ct)
	}
	for _, name := range []string{"event: user\n", "event: message\n", "event: end\n"} {
		if !strings.Contains(rr.Body.String(), name) {
			t.Fatalf("missing %q in stream %q", name, rr.Body.String())
		}
	}

	events := readEvents(t, rr.Body.String())
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %+v", events)
	}
	if events[0].Event != "user" || events[0].Content != "what is ATP?" {
		t.Fatalf("unexpected user event %+v", events[0])
	}
	if events[1].Event != "message" || events[1].Content != "You asked: what is ATP?" || events[1].Message == nil {
		t.Fatalf("unexpected message event %+v", events[1])
	}
	if events[2].Event != "end" || !events[2].Finished {
		t.Fatalf("unexpected end event %+v", events[2])
	}
}

func TestStreamSelectionTooShortSendsError(t *testing.T) {
	r, session := setup(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stream/"+session.ID+"?kind=selection&message=short", nil))

	events := readEvents(t, rr.Body.String())
	if len(events) != 2 || events[1].Event != "error" {
		t.Fatalf("expected user then error events, got %+v", events)
	}
}

func TestStreamValidation(t *testing.T) {
	r, session := setup(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stream/"+session.ID, nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without message, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stream/missing?message=hi", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", rr.Code)
	}
}
