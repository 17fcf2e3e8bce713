package speech

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/docmentor/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/docmentor/backend/internal/service/chat"
	"github.com/zhouzirui/docmentor/backend/internal/service/intake"
	speechsvc "github.com/zhouzirui/docmentor/backend/internal/service/speech"
	"github.com/zhouzirui/docmentor/backend/internal/service/tutor"
)

func boolPtr(v bool) *bool { return &v }

type cannedGenerator struct{}

func (cannedGenerator) Generate(_ context.Context, _ string, _ []*schema.Message, _ *schema.Message) (*schema.Message, error) {
	return schema.AssistantMessage("**ATP** is energy.", nil), nil
}

func TestApplyConfigUpdatesState(t *testing.T) {
	handler := &WebSocketHandler{speechSvc: speechsvc.NewService(speechConfig("", ""))}
	state := newConnectionState("session", speechsvc.DefaultVoiceID)

	handler.applyConfig(state, ConfigMessage{Voice: "Adam", VoiceMode: boolPtr(true)})
	if state.voice != "pNInz6obpgDQGcFmaJgB" {
		t.Fatalf("expected Adam voice id, got %s", state.voice)
	}
	if !state.voiceMode {
		t.Fatal("expected voice mode enabled")
	}

	handler.applyConfig(state, ConfigMessage{Voice: "nobody"})
	if state.voice != speechsvc.DefaultVoiceID {
		t.Fatalf("unknown voice should fall back to default, got %s", state.voice)
	}
	if !state.voiceMode {
		t.Fatal("voice mode should be unchanged when omitted")
	}
}

type wsEnvelope struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

func readEnvelope(t *testing.T, conn *websocket.Conn) wsEnvelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var env wsEnvelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("ReadJSON err: %v", err)
	}
	return env
}

func TestWebSocketAskSpeaksReplyInVoiceMode(t *testing.T) {
	chatSvc := chatservice.NewService(chatservice.Config{})
	session, err := chatSvc.CreateSession(context.Background(), chat.DocumentContext{Name: "bio.txt", RawText: "cells"})
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	intakeSvc := intake.New(tutor.New(chatSvc, cannedGenerator{}))
	wsHandler := NewWebSocketHandler(speechsvc.NewService(speechConfig("", "")), chatSvc, intakeSvc)

	r := chi.NewRouter()
	wsHandler.RegisterWebSocketRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + session.ID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial err: %v", err)
	}
	defer conn.Close()

	if env := readEnvelope(t, conn); env.Data["type"] != "connected" || env.Data["document"] != "bio.txt" {
		t.Fatalf("unexpected greeting %+v", env)
	}

	if err := conn.WriteJSON(map[string]any{"type": "config", "data": map[string]any{"voiceMode": true}}); err != nil {
		t.Fatalf("write config err: %v", err)
	}
	if env := readEnvelope(t, conn); env.Data["type"] != "config" || env.Data["voiceMode"] != true {
		t.Fatalf("unexpected config ack %+v", env)
	}

	if err := conn.WriteJSON(map[string]any{"type": "ask", "data": map[string]any{"text": "What is ATP?"}}); err != nil {
		t.Fatalf("write ask err: %v", err)
	}

	reply := readEnvelope(t, conn)
	if reply.Data["type"] != "reply" || reply.Data["html"] != "<strong>ATP</strong> is energy." {
		t.Fatalf("unexpected reply %+v", reply)
	}

	spoken := readEnvelope(t, conn)
	if spoken.Data["type"] != "speech" || spoken.Data["action"] != "speak" || spoken.Data["text"] != "ATP is energy." {
		t.Fatalf("unexpected speech relay %+v", spoken)
	}

	if err := conn.WriteJSON(map[string]any{"type": "select", "data": map[string]any{"text": "tiny"}}); err != nil {
		t.Fatalf("write select err: %v", err)
	}
	if env := readEnvelope(t, conn); env.Type != "error" {
		t.Fatalf("expected error for short selection, got %+v", env)
	}
}

type slowGenerator struct {
	delay time.Duration
}

func (g slowGenerator) Generate(ctx context.Context, _ string, _ []*schema.Message, _ *schema.Message) (*schema.Message, error) {
	select {
	case <-time.After(g.delay):
		return schema.AssistantMessage("slow answer", nil), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestWebSocketSlowAnswerKeepsConnectionAlive(t *testing.T) {
	chatSvc := chatservice.NewService(chatservice.Config{})
	session, err := chatSvc.CreateSession(context.Background(), chat.DocumentContext{Name: "bio.txt", RawText: "cells"})
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	intakeSvc := intake.New(tutor.New(chatSvc, slowGenerator{delay: time.Second}))
	wsHandler := NewWebSocketHandler(speechsvc.NewService(speechConfig("", "")), chatSvc, intakeSvc)
	wsHandler.readTimeout = 400 * time.Millisecond
	wsHandler.pingPeriod = 100 * time.Millisecond

	r := chi.NewRouter()
	wsHandler.RegisterWebSocketRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + session.ID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial err: %v", err)
	}
	defer conn.Close()

	if env := readEnvelope(t, conn); env.Data["type"] != "connected" {
		t.Fatalf("unexpected greeting %+v", env)
	}

	if err := conn.WriteJSON(map[string]any{"type": "ask", "data": map[string]any{"text": "Explain mitosis"}}); err != nil {
		t.Fatalf("write ask err: %v", err)
	}
	if err := conn.WriteJSON(map[string]any{"type": "config", "data": map[string]any{"voice": "Adam"}}); err != nil {
		t.Fatalf("write config err: %v", err)
	}

	if env := readEnvelope(t, conn); env.Data["type"] != "config" {
		t.Fatalf("expected config ack while the answer is pending, got %+v", env)
	}
	if env := readEnvelope(t, conn); env.Data["type"] != "reply" {
		t.Fatalf("expected slow reply, got %+v", env)
	}

	if err := conn.WriteJSON(map[string]any{"type": "config", "data": map[string]any{"voiceMode": false}}); err != nil {
		t.Fatalf("write config after reply err: %v", err)
	}
	if env := readEnvelope(t, conn); env.Data["type"] != "config" {
		t.Fatalf("expected connection to stay open after slow reply, got %+v", env)
	}
}

func TestWebSocketUnknownSession(t *testing.T) {
	chatSvc := chatservice.NewService(chatservice.Config{})
	wsHandler := NewWebSocketHandler(speechsvc.NewService(speechConfig("", "")), chatSvc, nil)

	r := chi.NewRouter()
	wsHandler.RegisterWebSocketRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/missing"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail for unknown session")
	}
	if resp == nil || resp.StatusCode != 404 {
		t.Fatalf("expected 404 response, got %+v", resp)
	}
}
