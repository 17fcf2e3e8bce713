package speech

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/zhouzirui/docmentor/backend/internal/config"
	"github.com/zhouzirui/docmentor/backend/internal/markdown"
	"github.com/zhouzirui/docmentor/backend/internal/model/speech"
)

// Service 语音服务核心业务逻辑
type Service struct {
	cfg    config.SpeechConfig
	remote *ElevenLabsClient
}

// NewService 创建语音服务实例；未配置 ELEVENLABS_API_KEY 时只提供本地朗读。
func NewService(cfg config.SpeechConfig) *Service {
	svc := &Service{cfg: cfg}
	if cfg.RemoteEnabled() {
		svc.remote = NewElevenLabsClient(cfg)
	}
	return svc
}

// RemoteEnabled reports whether ElevenLabs credentials are configured.
func (s *Service) RemoteEnabled() bool {
	return s.remote != nil
}

// Voices 返回可选发音人列表。
func (s *Service) Voices() []speech.Voice {
	return Voices()
}

// ResolveVoice 解析请求中的发音人，缺省使用配置的默认发音人。
func (s *Service) ResolveVoice(voice string) string {
	return ResolveVoice(voice, s.cfg.DefaultVoice)
}

// Synthesize 清理 markdown 后请求远程合成；没有密钥或远程失败时返回 local 模式，
// 由调用方在本地朗读 Text。只有清理后文本为空时返回错误。
func (s *Service) Synthesize(ctx context.Context, text, voice string) (*speech.TTSResponse, error) {
	cleaned := strings.TrimSpace(markdown.StripForSpeech(text))
	if cleaned == "" {
		return nil, ErrEmptyText
	}

	resp := &speech.TTSResponse{
		Mode:      speech.ModeLocal,
		Voice:     s.ResolveVoice(voice),
		Text:      cleaned,
		CreatedAt: time.Now().UTC(),
	}

	if s.remote == nil {
		return resp, nil
	}

	audio, err := s.remote.Synthesize(ctx, cleaned, resp.Voice)
	if err != nil {
		log.Printf("[speech] remote synthesis failed voice=%s, falling back to local: %v", resp.Voice, err)
		return resp, nil
	}

	resp.Mode = speech.ModeRemote
	resp.AudioData = audio
	resp.Format = "mpeg"
	return resp, nil
}

// NewSpeaker 创建 fire-and-forget 朗读器，远程合成音频交给 player，失败时交给 local。
func (s *Service) NewSpeaker(local LocalSynthesizer, player Player) *Speaker {
	var remote RemoteSynthesizer
	if s.remote != nil {
		remote = s.remote
	}
	return NewSpeaker(remote, local, player, SpeakerOptions{
		DefaultVoice: s.cfg.DefaultVoice,
		Timeout:      s.cfg.Timeout,
	})
}
