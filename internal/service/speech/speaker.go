package speech

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/zhouzirui/docmentor/backend/internal/markdown"
)

// RemoteSynthesizer turns text into audio bytes.
type RemoteSynthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// LocalSynthesizer speaks text on the user's side with a single active utterance.
type LocalSynthesizer interface {
	Speak(text string) error
	Stop()
}

// Player plays remote audio.
type Player interface {
	Play(audio []byte) error
}

// PlayerFunc adapts a function to Player.
type PlayerFunc func(audio []byte) error

// Play calls f(audio).
func (f PlayerFunc) Play(audio []byte) error { return f(audio) }

// SpeakerOptions 控制远程合成的默认发音人与超时。
type SpeakerOptions struct {
	DefaultVoice string
	Timeout      time.Duration
}

// Speaker 朗读助手回复：有密钥时先走远程合成，失败回退本地；没有密钥直接本地朗读。
type Speaker struct {
	remote RemoteSynthesizer
	local  LocalSynthesizer
	player Player
	opts   SpeakerOptions
	wg     sync.WaitGroup
}

// NewSpeaker builds a Speaker. remote may be nil when no credentials are configured.
func NewSpeaker(remote RemoteSynthesizer, local LocalSynthesizer, player Player, opts SpeakerOptions) *Speaker {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Speaker{remote: remote, local: local, player: player, opts: opts}
}

// Speak starts speaking and returns immediately. Failures are logged, never returned.
func (s *Speaker) Speak(text, voiceID string) {
	cleaned := markdown.StripForSpeech(text)
	if strings.TrimSpace(cleaned) == "" {
		return
	}

	if s.remote == nil || s.player == nil {
		s.speakLocal(cleaned)
		return
	}

	voice := ResolveVoice(voiceID, s.opts.DefaultVoice)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
		defer cancel()

		audio, err := s.remote.Synthesize(ctx, cleaned, voice)
		if err != nil {
			log.Printf("[speech] remote synthesis failed voice=%s, using local voice: %v", voice, err)
			s.speakLocal(cleaned)
			return
		}
		if err := s.player.Play(audio); err != nil {
			log.Printf("[speech] playback failed: %v", err)
		}
	}()
}

// Stop cancels in-progress local speech. Remote playback is not interrupted.
func (s *Speaker) Stop() {
	if s.local != nil {
		s.local.Stop()
	}
}

// Wait blocks until background remote requests have finished.
func (s *Speaker) Wait() {
	s.wg.Wait()
}

func (s *Speaker) speakLocal(text string) {
	if s.local == nil {
		log.Printf("[speech] no local synthesizer configured, dropping utterance")
		return
	}
	if err := s.local.Speak(text); err != nil {
		log.Printf("[speech] local synthesis failed: %v", err)
	}
}
