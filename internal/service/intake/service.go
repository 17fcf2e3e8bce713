// Package intake turns selection, capture and question events into tutor requests.
package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/zhouzirui/docmentor/backend/internal/model/chat"
	"github.com/zhouzirui/docmentor/backend/internal/service/ai"
	"github.com/zhouzirui/docmentor/backend/internal/service/tutor"
)

const (
	// MinSelectionChars 选中文本长度不超过该值时不触发讲解。
	MinSelectionChars = 10
	// MaxImageBytes is the decoded size limit for captured screenshots.
	MaxImageBytes = 5 << 20
)

var (
	ErrSelectionTooShort = errors.New("selection too short")
	ErrEmptyQuestion     = errors.New("question is empty")
	ErrInvalidImage      = errors.New("invalid screenshot data")
	ErrImageTooLarge     = errors.New("screenshot too large")
)

var allowedImageTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/webp": {},
	"image/gif":  {},
}

// Asker is implemented by tutor.Service.
type Asker interface {
	Ask(ctx context.Context, sessionID string, req tutor.Request) (chat.Message, error)
}

// Service 校验用户事件并按会话串行提交给讲解服务。
type Service struct {
	asker Asker

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock 只在有请求持有或等待时存在于 locks 中。
type sessionLock struct {
	sync.Mutex
	refs int
}

// New creates an intake service.
func New(asker Asker) *Service {
	return &Service{asker: asker, locks: make(map[string]*sessionLock)}
}

// Selection explains highlighted document text.
func (s *Service) Selection(ctx context.Context, sessionID, text string) (chat.Message, error) {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) <= MinSelectionChars {
		return chat.Message{}, ErrSelectionTooShort
	}
	return s.ask(ctx, sessionID, tutor.Request{Kind: tutor.KindSelection, Text: trimmed})
}

// Capture 处理截图区域，question 为空时使用默认提问。
func (s *Service) Capture(ctx context.Context, sessionID, imageData, question string) (chat.Message, error) {
	if err := ValidateImage(imageData); err != nil {
		return chat.Message{}, err
	}
	return s.ask(ctx, sessionID, tutor.Request{
		Kind:      tutor.KindCapture,
		Text:      strings.TrimSpace(question),
		ImageData: strings.TrimSpace(imageData),
	})
}

// Question sends a typed question.
func (s *Service) Question(ctx context.Context, sessionID, text string) (chat.Message, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return chat.Message{}, ErrEmptyQuestion
	}
	return s.ask(ctx, sessionID, tutor.Request{Kind: tutor.KindQuestion, Text: trimmed})
}

// ValidateImage checks that imageData is a base64 data URL of a supported image type.
func ValidateImage(imageData string) error {
	mimeType, data, err := ai.ParseDataURL(imageData)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if _, ok := allowedImageTypes[mimeType]; !ok {
		return fmt.Errorf("%w: unsupported type %s", ErrInvalidImage, mimeType)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	if len(data) > MaxImageBytes {
		return ErrImageTooLarge
	}
	return nil
}

func (s *Service) ask(ctx context.Context, sessionID string, req tutor.Request) (chat.Message, error) {
	lock := s.acquire(sessionID)
	defer s.release(sessionID, lock)

	if err := ctx.Err(); err != nil {
		return chat.Message{}, err
	}
	return s.asker.Ask(ctx, sessionID, req)
}

func (s *Service) acquire(sessionID string) *sessionLock {
	s.mu.Lock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sessionLock{}
		s.locks[sessionID] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.Lock()
	return lock
}

func (s *Service) release(sessionID string, lock *sessionLock) {
	lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(s.locks, sessionID)
	}
}
