// Package describe produces the short summary shown when a document is first opened.
package describe

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/docmentor/backend/internal/document"
	"github.com/zhouzirui/docmentor/backend/internal/service/ai"
)

const (
	// MissingKeyDescription is returned when no model credentials are configured.
	MissingKeyDescription = "API key not set. Please set GEMINI_API_KEY in your .env file."
	// FallbackDescription is returned for empty documents and failed requests.
	FallbackDescription = "Unable to generate document description."
)

var (
	ErrNoModel     = errors.New("language model not configured")
	ErrEmptyText   = errors.New("document text is empty")
	ErrEmptyAnswer = errors.New("model returned no description")
)

// Generator is the slice of ai.Service the describer needs.
type Generator interface {
	Generate(ctx context.Context, system string, history []*schema.Message, query *schema.Message) (*schema.Message, error)
}

// Service summarizes document text in 2-3 sentences.
type Service struct {
	generator Generator
	maxChars  int
}

// NewService 创建摘要服务；generator 为 nil 表示未配置模型密钥。
func NewService(generator Generator, maxChars int) *Service {
	return &Service{generator: generator, maxChars: maxChars}
}

// Summarize truncates the text and performs exactly one model request.
func (s *Service) Summarize(ctx context.Context, text string) (string, error) {
	if s.generator == nil {
		return "", ErrNoModel
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}

	truncated := document.Truncate(text, s.maxChars)
	resp, err := s.generator.Generate(ctx, ai.DescribeInstruction, nil, schema.UserMessage(ai.DescribeRequest(truncated)))
	if err != nil {
		return "", err
	}

	description := strings.TrimSpace(resp.Content)
	if description == "" {
		return "", ErrEmptyAnswer
	}
	return description, nil
}

// Describe never fails: any problem is folded into a fixed description string.
func (s *Service) Describe(ctx context.Context, text string) string {
	description, err := s.Summarize(ctx, text)
	if err != nil {
		return Fallback(err)
	}
	return description
}

// Fallback maps a Summarize error to the description shown to the user.
func Fallback(err error) string {
	if errors.Is(err, ErrNoModel) {
		return MissingKeyDescription
	}
	log.Printf("[describe] summarization failed: %v", err)
	return FallbackDescription
}
