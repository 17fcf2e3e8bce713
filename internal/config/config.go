package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项，启动时加载一次，之后只读。
type Config struct {
	Server   ServerConfig
	AI       AIConfig
	Speech   SpeechConfig
	Document DocumentConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	document, err := loadDocumentConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Speech: speech, Document: document}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// Supported language-model providers.
const (
	ProviderGemini = "gemini"
	ProviderArk    = "ark"
)

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	MaxTokens   *int
	Timeout     time.Duration
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

// NewArkChatModel 使用配置创建 Ark 模型实例，仅在 AI_PROVIDER=ark 时使用。
func (c AIConfig) NewArkChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_API_KEY and ARK_MODEL")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("AI_PROVIDER", ProviderGemini))
	if provider != ProviderGemini && provider != ProviderArk {
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q", provider)
	}

	temperature, err := parseOptionalFloatEnv("GEMINI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("GEMINI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	timeout, err := parseDurationSecondsEnv("GEMINI_TIMEOUT", 60*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	if provider == ProviderArk {
		return AIConfig{
			Provider:    provider,
			APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
			Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
			BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
			Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
			Temperature: temperature,
			MaxTokens:   maxTokens,
			Timeout:     timeout,
		}, nil
	}

	return AIConfig{
		Provider:    provider,
		APIKey:      strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		Model:       getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-pro"),
		BaseURL:     getEnvOrDefault("GEMINI_BASE_URL", ""),
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Timeout:     timeout,
	}, nil
}

// SpeechConfig 描述语音服务相关配置
type SpeechConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	DefaultVoice string
	Stability    float32
	Similarity   float32
	Timeout      time.Duration
	LocalCommand string
}

// RemoteEnabled 表示是否配置了远程 TTS 凭证。
func (c SpeechConfig) RemoteEnabled() bool {
	return c.APIKey != ""
}

func loadSpeechConfig() (SpeechConfig, error) {
	timeout, err := parseDurationSecondsEnv("SPEECH_TIMEOUT", 30*time.Second)
	if err != nil {
		return SpeechConfig{}, err
	}

	stability := float32(0.5)
	if v, err := parseOptionalFloat32Env("ELEVENLABS_STABILITY"); err != nil {
		return SpeechConfig{}, err
	} else if v != nil {
		stability = *v
	}

	similarity := float32(0.5)
	if v, err := parseOptionalFloat32Env("ELEVENLABS_SIMILARITY"); err != nil {
		return SpeechConfig{}, err
	} else if v != nil {
		similarity = *v
	}

	return SpeechConfig{
		APIKey:       strings.TrimSpace(os.Getenv("ELEVENLABS_API_KEY")),
		BaseURL:      getEnvOrDefault("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io/v1"),
		Model:        getEnvOrDefault("ELEVENLABS_MODEL", "eleven_monolingual_v1"),
		DefaultVoice: getEnvOrDefault("ELEVENLABS_DEFAULT_VOICE", ""),
		Stability:    stability,
		Similarity:   similarity,
		Timeout:      timeout,
		LocalCommand: getEnvOrDefault("SPEECH_LOCAL_COMMAND", ""),
	}, nil
}

// DocumentConfig 描述文档处理与会话相关的限制。
type DocumentConfig struct {
	MaxChars       int
	UploadMaxBytes int64
	HistoryLimit   int
}

func loadDocumentConfig() (DocumentConfig, error) {
	cfg := DocumentConfig{
		MaxChars:       100000,
		UploadMaxBytes: 10 << 20,
		HistoryLimit:   200,
	}

	if v, err := parseOptionalIntEnv("DOCUMENT_MAX_CHARS"); err != nil {
		return DocumentConfig{}, err
	} else if v != nil && *v > 0 {
		cfg.MaxChars = *v
	}

	if v, err := parseOptionalIntEnv("UPLOAD_MAX_BYTES"); err != nil {
		return DocumentConfig{}, err
	} else if v != nil && *v > 0 {
		cfg.UploadMaxBytes = int64(*v)
	}

	if v, err := parseOptionalIntEnv("CHAT_HISTORY_LIMIT"); err != nil {
		return DocumentConfig{}, err
	} else if v != nil {
		if *v < 8 {
			cfg.HistoryLimit = 8
		} else {
			cfg.HistoryLimit = *v
		}
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationSecondsEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	seconds, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if seconds == nil {
		return defaultValue, nil
	}
	if *seconds <= 0 {
		return 0, fmt.Errorf("invalid %s value %d: must be positive", key, *seconds)
	}
	return time.Duration(*seconds) * time.Second, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalFloat32Env(key string) (*float32, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	result := float32(val)
	return &result, nil
}
