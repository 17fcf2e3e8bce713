package ai

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/docmentor/backend/internal/config"
	"github.com/zhouzirui/docmentor/backend/internal/model/chat"
)

// ContextWindow 每次请求携带的历史消息条数，固定不可配置。
const ContextWindow = 3

// Service runs the instruction + history + query chain against a chat model.
type Service struct {
	chatModel model.BaseChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
	timeout   time.Duration
}

// NewChatModel 按 AI_PROVIDER 创建底层模型。
func NewChatModel(ctx context.Context, cfg config.AIConfig) (model.BaseChatModel, error) {
	switch cfg.Provider {
	case config.ProviderArk:
		return cfg.NewArkChatModel(ctx)
	default:
		gemini, err := NewGeminiChatModel(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return gemini, nil
	}
}

// NewService creates a new AI service instance. A non-positive timeout disables the request deadline.
func NewService(ctx context.Context, chatModel model.BaseChatModel, timeout time.Duration) (*Service, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.MessagesPlaceholder("query", false),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		chain:     runnable,
		timeout:   timeout,
	}, nil
}

// Generate sends the instruction, prior turns and the new user turn as one request.
func (s *Service) Generate(ctx context.Context, system string, history []*schema.Message, query *schema.Message) (*schema.Message, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	input := map[string]any{
		"system":  system,
		"history": history,
		"query":   []*schema.Message{query},
	}

	start := time.Now()
	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to run AI chain: %w", err)
	}

	log.Printf("[ai] generated response history=%d length=%d elapsed=%s", len(history), len(response.Content), time.Since(start).Round(time.Millisecond))
	return response, nil
}

// HistoryMessages converts the last ContextWindow non-welcome entries into model turns.
func HistoryMessages(messages []chat.Message) []*schema.Message {
	prior := make([]chat.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Welcome {
			continue
		}
		prior = append(prior, msg)
	}

	if len(prior) > ContextWindow {
		prior = prior[len(prior)-ContextWindow:]
	}

	history := make([]*schema.Message, 0, len(prior))
	for _, msg := range prior {
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, UserTurn(msg.Text, msg.ImageData))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Text, nil))
		}
	}
	return history
}

// UserTurn builds a user message. With a screenshot the text and image both go into
// MultiContent, which providers read instead of Content.
func UserTurn(text, imageData string) *schema.Message {
	msg := schema.UserMessage(text)
	if imageData == "" {
		return msg
	}

	if text != "" {
		msg.MultiContent = append(msg.MultiContent, schema.ChatMessagePart{
			Type: schema.ChatMessagePartTypeText,
			Text: text,
		})
	}
	msg.MultiContent = append(msg.MultiContent, schema.ChatMessagePart{
		Type:     schema.ChatMessagePartTypeImageURL,
		ImageURL: &schema.ChatMessageImageURL{URL: imageData},
	})
	return msg
}
