package ai

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	genai "google.golang.org/genai"

	"github.com/zhouzirui/docmentor/backend/internal/config"
)

// GeminiChatModel adapts the Gemini generateContent API to eino's chat model interface.
//
// 指令消息与历史中的助手消息都以 model 角色发送，用户消息以 user 角色发送；
// 图片以 data URL 形式放在 MultiContent 中，转换为 InlineData。
type GeminiChatModel struct {
	client      *genai.Client
	model       string
	temperature *float32
	maxTokens   int32
}

// NewGeminiChatModel 根据配置创建 Gemini 客户端。
func NewGeminiChatModel(ctx context.Context, cfg config.AIConfig) (*GeminiChatModel, error) {
	if !cfg.Enabled() {
		return nil, errors.New("gemini credentials missing: set GEMINI_API_KEY")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	m := &GeminiChatModel{client: client, model: cfg.Model}
	if cfg.Temperature != nil {
		temperature := float32(*cfg.Temperature)
		m.temperature = &temperature
	}
	if cfg.MaxTokens != nil {
		m.maxTokens = int32(*cfg.MaxTokens)
	}
	return m, nil
}

// Generate sends one generateContent request. A response without candidate text
// yields an assistant message with empty content rather than an error.
func (g *GeminiChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	options := model.GetCommonOptions(&model.Options{
		Temperature: g.temperature,
		Model:       &g.model,
	}, opts...)

	contents, err := toContents(input)
	if err != nil {
		return nil, err
	}

	var genCfg *genai.GenerateContentConfig
	if options.Temperature != nil || options.MaxTokens != nil || g.maxTokens > 0 {
		genCfg = &genai.GenerateContentConfig{Temperature: options.Temperature, MaxOutputTokens: g.maxTokens}
		if options.MaxTokens != nil {
			genCfg.MaxOutputTokens = int32(*options.MaxTokens)
		}
	}

	modelName := g.model
	if options.Model != nil && *options.Model != "" {
		modelName = *options.Model
	}

	resp, err := g.client.Models.GenerateContent(ctx, modelName, contents, genCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	text := firstCandidateText(resp)
	if text == "" {
		log.Printf("[gemini] response carried no candidate text, model=%s", modelName)
	}
	return schema.AssistantMessage(text, nil), nil
}

// Stream wraps Generate; the Gemini call is made once and delivered as a single chunk.
func (g *GeminiChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := g.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// BindTools is a no-op: the tutor never offers tools to the model.
func (g *GeminiChatModel) BindTools(_ []*schema.ToolInfo) error {
	return nil
}

func toContents(input []*schema.Message) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(input))
	for _, msg := range input {
		if msg == nil {
			continue
		}

		parts := make([]*genai.Part, 0, 1+len(msg.MultiContent))
		if msg.Content != "" && len(msg.MultiContent) == 0 {
			parts = append(parts, &genai.Part{Text: msg.Content})
		}
		for _, part := range msg.MultiContent {
			switch part.Type {
			case schema.ChatMessagePartTypeText:
				if part.Text != "" {
					parts = append(parts, &genai.Part{Text: part.Text})
				}
			case schema.ChatMessagePartTypeImageURL:
				if part.ImageURL == nil {
					continue
				}
				mimeType, data, err := ParseDataURL(part.ImageURL.URL)
				if err != nil {
					return nil, fmt.Errorf("image part: %w", err)
				}
				parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}})
			}
		}
		if len(parts) == 0 {
			continue
		}

		content := &genai.Content{Role: genai.RoleModel, Parts: parts}
		if msg.Role == schema.User {
			content.Role = genai.RoleUser
		}
		contents = append(contents, content)
	}
	return contents, nil
}

func firstCandidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return ""
	}
	first := candidate.Content.Parts[0]
	if first == nil {
		return ""
	}
	return first.Text
}
