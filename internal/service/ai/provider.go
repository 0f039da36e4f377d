package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/digi-assistant/digi/backend/internal/config"
)

// ErrUnavailable is returned by every call of a provider that could not be
// configured at startup.
var ErrUnavailable = errors.New("ai provider unavailable")

// Image is an inline picture attached to a request.
type Image struct {
	MediaType string
	Data      []byte
}

// Base64 returns the standard base64 encoding of the image bytes.
func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// DataURL returns the image as a data URL, the form most providers accept
// for inline images.
func (i Image) DataURL() string {
	return "data:" + i.MediaType + ";base64," + i.Base64()
}

// Request is a single-turn prompt sent to the provider.
type Request struct {
	Text  string
	Image *Image
}

// Provider generates one textual reply for one request.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// New builds the provider selected by cfg.Provider. When the provider lacks
// credentials an Unavailable provider is returned together with an error
// describing why, so callers can keep serving and log the reason.
func New(ctx context.Context, cfg config.AIConfig) (Provider, error) {
	if !cfg.HasCredentials() {
		return Unavailable{Provider: cfg.Provider}, fmt.Errorf("%s credentials not configured", cfg.Provider)
	}

	switch cfg.Provider {
	case config.ProviderArk:
		chatModel, err := cfg.Ark.NewChatModel(ctx, cfg.MaxTokens)
		if err != nil {
			return Unavailable{Provider: cfg.Provider}, fmt.Errorf("failed to create chat model: %w", err)
		}
		return NewChatModel(config.ProviderArk, chatModel), nil
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.OpenAI, cfg.MaxTokens), nil
	case config.ProviderGemini:
		gemini, err := NewGemini(ctx, cfg.Gemini, cfg.MaxTokens)
		if err != nil {
			return Unavailable{Provider: cfg.Provider}, err
		}
		return gemini, nil
	case config.ProviderAnthropic:
		return NewAnthropic(cfg.Anthropic, cfg.MaxTokens), nil
	case config.ProviderStub:
		return Stub{}, nil
	}

	return Unavailable{Provider: cfg.Provider}, fmt.Errorf("unknown provider %q", cfg.Provider)
}

// Unavailable fails every call.
type Unavailable struct {
	Provider string
}

func (u Unavailable) Name() string { return u.Provider }

func (u Unavailable) Generate(context.Context, Request) (string, error) {
	return "", fmt.Errorf("%s: %w", u.Provider, ErrUnavailable)
}

// Stub answers without calling any model.
type Stub struct{}

func (Stub) Name() string { return config.ProviderStub }

func (Stub) Generate(_ context.Context, req Request) (string, error) {
	if req.Image != nil {
		return fmt.Sprintf("I got your %s image (%d bytes). No model is configured, so I can't look at it yet.", req.Image.MediaType, len(req.Image.Data)), nil
	}
	return "Message received! No model is configured, so this is a canned reply.", nil
}
