package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zhouzirui/docmentor/backend/internal/config"
)

const maxAudioBytes = 32 << 20

var ErrEmptyText = errors.New("TTS text is empty")

// StatusError reports a non-2xx answer from the TTS endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("elevenlabs status %d: %s", e.Code, e.Body)
}

// ElevenLabsClient ElevenLabs 文本转语音 HTTP 客户端
type ElevenLabsClient struct {
	cfg        config.SpeechConfig
	httpClient *http.Client
}

type elevenLabsRequest struct {
	Text          string             `json:"text"`
	ModelID       string             `json:"model_id"`
	VoiceSettings elevenLabsSettings `json:"voice_settings"`
}

type elevenLabsSettings struct {
	Stability       float32 `json:"stability"`
	SimilarityBoost float32 `json:"similarity_boost"`
}

// NewElevenLabsClient 创建 ElevenLabs 客户端
func NewElevenLabsClient(cfg config.SpeechConfig) *ElevenLabsClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ElevenLabsClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Synthesize 请求 ElevenLabs 合成语音，成功时返回 audio/mpeg 数据。
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	payload, err := json.Marshal(elevenLabsRequest{
		Text:    text,
		ModelID: c.cfg.Model,
		VoiceSettings: elevenLabsSettings{
			Stability:       c.cfg.Stability,
			SimilarityBoost: c.cfg.Similarity,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal tts request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/text-to-speech/" + voiceID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, fmt.Errorf("read tts audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("tts returned empty audio")
	}
	return audio, nil
}
