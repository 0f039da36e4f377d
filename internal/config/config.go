package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Provider names accepted by AI_PROVIDER.
const (
	ProviderArk       = "ark"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderStub      = "stub"
)

// Config aggregates every setting of the relay service.
type Config struct {
	Server      ServerConfig
	AI          AIConfig
	Upload      UploadConfig
	Web         WebConfig
	Log         LogConfig
	PersonaFile string `env:"PERSONA_FILE"`
}

// Load reads configuration from the process environment. Callers load
// .env files beforehand.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	addr, err := normalizeAddr(cfg.Server.Port)
	if err != nil {
		return nil, err
	}
	cfg.Server.Addr = addr

	cfg.AI.Provider = strings.ToLower(strings.TrimSpace(cfg.AI.Provider))
	switch cfg.AI.Provider {
	case ProviderArk, ProviderOpenAI, ProviderGemini, ProviderAnthropic, ProviderStub:
	default:
		return nil, fmt.Errorf("invalid AI_PROVIDER value: %q", cfg.AI.Provider)
	}

	if cfg.AI.MaxTokens < 1 {
		return nil, fmt.Errorf("invalid AI_MAX_TOKENS value: %d", cfg.AI.MaxTokens)
	}
	if cfg.Upload.MaxBytes < 1 {
		return nil, fmt.Errorf("invalid UPLOAD_MAX_BYTES value: %d", cfg.Upload.MaxBytes)
	}

	return cfg, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Port string `env:"PORT" envDefault:"3001"`
	Addr string
}

// normalizeAddr turns PORT into a listen address.
func normalizeAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "3001"
	}

	if strings.Contains(port, ":") {
		// ":3001" and "127.0.0.1:3001" are used as-is.
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

// AIConfig selects and configures the upstream model provider.
type AIConfig struct {
	Provider  string `env:"AI_PROVIDER" envDefault:"ark"`
	MaxTokens int    `env:"AI_MAX_TOKENS" envDefault:"1000"`
	Ark       ArkConfig
	OpenAI    OpenAIConfig
	Gemini    GeminiConfig
	Anthropic AnthropicConfig
}

// HasCredentials reports whether the selected provider can be constructed.
func (c AIConfig) HasCredentials() bool {
	switch c.Provider {
	case ProviderArk:
		return c.Ark.Enabled()
	case ProviderOpenAI:
		return c.OpenAI.APIKey != ""
	case ProviderGemini:
		return c.Gemini.APIKey != ""
	case ProviderAnthropic:
		return c.Anthropic.APIKey != ""
	case ProviderStub:
		return true
	}
	return false
}

// ArkConfig holds Volcengine Ark credentials for the eino chat model.
type ArkConfig struct {
	APIKey    string `env:"ARK_API_KEY"`
	AccessKey string `env:"ARK_ACCESS_KEY"`
	SecretKey string `env:"ARK_SECRET_KEY"`
	Model     string `env:"ARK_MODEL"`
	BaseURL   string `env:"ARK_BASE_URL" envDefault:"https://ark.cn-beijing.volces.com/api/v3"`
	Region    string `env:"ARK_REGION" envDefault:"cn-beijing"`
}

// Enabled reports whether a model and either an API key or an AK/SK pair are set.
func (c ArkConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel creates an Ark chat model from the configuration.
func (c ArkConfig) NewChatModel(ctx context.Context, maxTokens int) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_MODEL and ARK_API_KEY or ARK_ACCESS_KEY/ARK_SECRET_KEY")
	}

	tokens := maxTokens
	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:   c.BaseURL,
		Region:    c.Region,
		APIKey:    c.APIKey,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		Model:     c.Model,
		MaxTokens: &tokens,
	})
}

// OpenAIConfig configures the OpenAI Responses API provider.
type OpenAIConfig struct {
	APIKey string `env:"OPENAI_API_KEY"`
	Model  string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
}

// GeminiConfig configures the Google Gemini provider.
type GeminiConfig struct {
	APIKey string `env:"GEMINI_API_KEY"`
	Model  string `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
}

// AnthropicConfig configures the Anthropic Messages API provider.
type AnthropicConfig struct {
	APIKey string `env:"ANTHROPIC_API_KEY"`
	Model  string `env:"ANTHROPIC_MODEL" envDefault:"claude-3-haiku-20240307"`
}

// UploadConfig bounds and locates temporary image uploads.
type UploadConfig struct {
	Dir        string        `env:"UPLOAD_DIR" envDefault:"uploads"`
	MaxBytes   int64         `env:"UPLOAD_MAX_BYTES" envDefault:"10485760"`
	StaleAfter time.Duration `env:"UPLOAD_STALE_AFTER" envDefault:"1h"`
}

// WebConfig locates the browser UI and the allowed CORS origins.
type WebConfig struct {
	StaticDir      string   `env:"STATIC_DIR" envDefault:"build"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// LogConfig drives the zap logger and its optional rotating file.
type LogConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	Format     string `env:"LOG_FORMAT" envDefault:"json"`
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"28"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
}
