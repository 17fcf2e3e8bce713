package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/docmentor/backend/internal/markdown"
	"github.com/zhouzirui/docmentor/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/docmentor/backend/internal/service/chat"
	speechsvc "github.com/zhouzirui/docmentor/backend/internal/service/speech"
)

// Intake 提交选中、截图和提问事件，由 intake.Service 实现
type Intake interface {
	Selection(ctx context.Context, sessionID, text string) (chat.Message, error)
	Capture(ctx context.Context, sessionID, imageData, question string) (chat.Message, error)
	Question(ctx context.Context, sessionID, text string) (chat.Message, error)
}

const (
	defaultReadTimeout = 60 * time.Second
	defaultPingPeriod  = 54 * time.Second
)

// WebSocketHandler 会话内的实时事件通道：选中讲解、截图分析、提问与朗读控制
type WebSocketHandler struct {
	speechSvc SpeechService
	chatSvc   *chatservice.Service
	intake    Intake
	upgrader  websocket.Upgrader

	readTimeout time.Duration
	pingPeriod  time.Duration
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(speechSvc SpeechService, chatSvc *chatservice.Service, intakeSvc Intake) *WebSocketHandler {
	return &WebSocketHandler{
		speechSvc: speechSvc,
		chatSvc:   chatSvc,
		intake:    intakeSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		readTimeout: defaultReadTimeout,
		pingPeriod:  defaultPingPeriod,
	}
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// TextMessage carries select, ask and speak payloads.
type TextMessage struct {
	Text string `json:"text"`
}

// CaptureMessage 截图消息
type CaptureMessage struct {
	ImageData string `json:"imageData"`
	Question  string `json:"question"`
}

// ConfigMessage 配置消息
type ConfigMessage struct {
	Voice     string `json:"voice"`
	VoiceMode *bool  `json:"voiceMode,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// connectionState 由读循环与后台讲解协程共享
type connectionState struct {
	sessionID string

	mu        sync.Mutex
	voice     string
	voiceMode bool
}

func (s *connectionState) settings() (voice string, voiceMode bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voice, s.voiceMode
}

func newConnectionState(sessionID, voice string) *connectionState {
	return &connectionState{sessionID: sessionID, voice: voice}
}

// wsWriter 串行化写操作，朗读回调与读循环会并发写同一个连接
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.conn.WriteJSON(v)
}

func (w *wsWriter) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
}

type connection struct {
	out     *wsWriter
	state   *connectionState
	speaker *speechsvc.Speaker
	pending sync.WaitGroup
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] new connection for session: %s", sessionID)

	ctx, cancel := context.WithCancel(r.Context())

	c := &connection{
		out:   &wsWriter{conn: conn},
		state: newConnectionState(sessionID, h.speechSvc.ResolveVoice("")),
	}
	c.speaker = h.speechSvc.NewSpeaker(
		speechsvc.NewRelaySynthesizer(func(event string, payload map[string]any) error {
			data := map[string]any{"type": "speech", "action": event}
			for k, v := range payload {
				data[k] = v
			}
			return h.send(c, data)
		}),
		speechsvc.PlayerFunc(func(audio []byte) error {
			return h.send(c, map[string]any{
				"type":      "audio",
				"audioData": base64.StdEncoding.EncodeToString(audio),
				"format":    "mpeg",
			})
		}),
	)
	defer func() {
		cancel()
		c.pending.Wait()
		c.speaker.Wait()
	}()

	conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))
		return nil
	})

	go h.pingLoop(ctx, c.out, h.pingPeriod)

	h.sendInfo(c, map[string]any{
		"type":     "connected",
		"document": session.DocumentName,
		"voice":    h.speechSvc.ResolveVoice(""),
		"remote":   h.speechSvc.RemoteEnabled(),
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}

		conn.SetReadDeadline(time.Now().Add(h.readTimeout))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			h.sendError(c, "session mismatch")
			continue
		}

		h.handleMessage(ctx, c, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, c *connection, msg *inboundMessage) {
	switch msg.Type {
	case "select":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			h.sendError(c, "invalid select payload")
			return
		}
		h.dispatch(c, func() (chat.Message, error) {
			return h.intake.Selection(ctx, c.state.sessionID, text.Text)
		})
	case "capture":
		var capture CaptureMessage
		if err := json.Unmarshal(msg.Data, &capture); err != nil {
			h.sendError(c, "invalid capture payload")
			return
		}
		h.dispatch(c, func() (chat.Message, error) {
			return h.intake.Capture(ctx, c.state.sessionID, capture.ImageData, capture.Question)
		})
	case "ask":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			h.sendError(c, "invalid ask payload")
			return
		}
		h.dispatch(c, func() (chat.Message, error) {
			return h.intake.Question(ctx, c.state.sessionID, text.Text)
		})
	case "speak":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			h.sendError(c, "invalid speak payload")
			return
		}
		voice, _ := c.state.settings()
		c.speaker.Speak(text.Text, voice)
	case "stop":
		c.speaker.Stop()
	case "config":
		h.handleConfigMessage(c, msg.Data)
	default:
		h.sendError(c, "unsupported message type: "+msg.Type)
	}
}

// dispatch 在后台执行讲解请求，读循环继续处理 pong、stop 与 config；
// 同一会话的请求由 intake 串行化
func (h *WebSocketHandler) dispatch(c *connection, ask func() (chat.Message, error)) {
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		reply, err := ask()
		h.deliverReply(c, reply, err)
	}()
}

// deliverReply 推送助手回复；语音模式开启时同时朗读
func (h *WebSocketHandler) deliverReply(c *connection, reply chat.Message, err error) {
	if err != nil {
		h.sendError(c, err.Error())
		return
	}

	h.sendInfo(c, map[string]any{
		"type":    "reply",
		"message": reply,
		"html":    markdown.Render(reply.Text),
	})

	if voice, voiceMode := c.state.settings(); voiceMode {
		c.speaker.Speak(reply.Text, voice)
	}
}

func (h *WebSocketHandler) handleConfigMessage(c *connection, raw json.RawMessage) {
	var cfg ConfigMessage
	if err := json.Unmarshal(raw, &cfg); err != nil {
		h.sendError(c, "invalid config payload")
		return
	}

	h.applyConfig(c.state, cfg)
	voice, voiceMode := c.state.settings()
	if !voiceMode {
		c.speaker.Stop()
	}

	log.Printf("[websocket] config applied session=%s voice=%s voiceMode=%t", c.state.sessionID, voice, voiceMode)

	h.sendInfo(c, map[string]any{
		"type":      "config",
		"voice":     voice,
		"voiceMode": voiceMode,
	})
}

func (h *WebSocketHandler) applyConfig(state *connectionState, cfg ConfigMessage) {
	state.mu.Lock()
	defer state.mu.Unlock()
	if cfg.Voice != "" {
		state.voice = h.speechSvc.ResolveVoice(cfg.Voice)
	}
	if cfg.VoiceMode != nil {
		state.voiceMode = *cfg.VoiceMode
	}
}

func (h *WebSocketHandler) send(c *connection, data map[string]any) error {
	return c.out.writeJSON(outgoingMessage{
		Type:      "result",
		SessionID: c.state.sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

func (h *WebSocketHandler) sendInfo(c *connection, data map[string]any) {
	if err := h.send(c, data); err != nil {
		log.Printf("[websocket] write info failed: %v", err)
	}
}

func (h *WebSocketHandler) sendError(c *connection, message string) {
	msg := outgoingMessage{
		Type:      "error",
		SessionID: c.state.sessionID,
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	}
	if err := c.out.writeJSON(msg); err != nil {
		log.Printf("[websocket] write error failed: %v", err)
	}
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, out *wsWriter, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := out.ping(); err != nil {
				return
			}
		}
	}
}
