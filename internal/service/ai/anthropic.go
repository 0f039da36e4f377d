package ai

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/digi-assistant/digi/backend/internal/config"
)

// Anthropic sends text and images through the Messages API.
type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropic creates an Anthropic provider. Extra request options are
// appended after the API key.
func NewAnthropic(cfg config.AnthropicConfig, maxTokens int, opts ...anthropicoption.RequestOption) *Anthropic {
	opts = append([]anthropicoption.RequestOption{anthropicoption.WithAPIKey(cfg.APIKey)}, opts...)
	return &Anthropic{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: maxTokens,
	}
}

func (c *Anthropic) Name() string { return config.ProviderAnthropic }

func (c *Anthropic) Generate(ctx context.Context, req Request) (string, error) {
	blocks := []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(req.Text)}
	if req.Image != nil {
		blocks = append(blocks, anthropic.NewImageBlockBase64(req.Image.MediaType, req.Image.Base64()))
	}

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	})
	if err != nil {
		return "", err
	}

	// Only a leading text block counts as the reply.
	if len(msg.Content) == 0 || msg.Content[0].Type != "text" {
		return "", nil
	}
	return msg.Content[0].Text, nil
}
