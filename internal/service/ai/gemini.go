package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/digi-assistant/digi/backend/internal/config"
)

// Gemini sends text and images to a Google generative model.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates the Gemini client. Callers must Close it.
func NewGemini(ctx context.Context, cfg config.GeminiConfig, maxTokens int, opts ...option.ClientOption) (*Gemini, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Name() string { return config.ProviderGemini }

// Close releases the underlying client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	parts := []genai.Part{genai.Text(req.Text)}
	if req.Image != nil {
		// ImageData expects the subtype only ("png"), it prepends "image/".
		parts = append(parts, genai.ImageData(strings.TrimPrefix(req.Image.MediaType, "image/"), req.Image.Data))
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", err
	}
	return extractText(resp), nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		// First candidate only.
		break
	}
	return b.String()
}
