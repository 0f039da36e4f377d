package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/digi-assistant/digi/backend/internal/logging"
	"github.com/digi-assistant/digi/backend/internal/service/ai"
	"github.com/digi-assistant/digi/backend/internal/service/upload"
)

var (
	ErrMessageRequired = errors.New("message is required")
	ErrImageRequired   = errors.New("image file is required")
	ErrProvider        = errors.New("provider call failed")
)

// Service relays single chat turns to the AI provider. It keeps no state
// between requests.
type Service struct {
	provider ai.Provider
	prompts  *ai.PromptBuilder
	logger   *zap.Logger
}

// NewService creates the relay.
func NewService(provider ai.Provider, prompts *ai.PromptBuilder, logger *zap.Logger) *Service {
	return &Service{
		provider: provider,
		prompts:  prompts,
		logger:   logger.Named("relay"),
	}
}

// Chat forwards a text message wrapped in the persona instruction.
func (s *Service) Chat(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrMessageRequired
	}

	return s.generate(ctx, ai.Request{Text: s.prompts.TextPrompt(message)})
}

// ChatImage forwards an uploaded image and an optional caption. The upload
// is removed before returning, whatever the outcome.
func (s *Service) ChatImage(ctx context.Context, message string, file *upload.File) (string, error) {
	if file == nil {
		return "", ErrImageRequired
	}
	defer func() {
		if err := file.Remove(); err != nil {
			s.logger.Warn("failed to remove upload", zap.String("path", file.Path), zap.Error(err))
		}
	}()

	data, err := file.Read()
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}

	return s.ChatImageData(ctx, message, ai.Image{MediaType: file.MediaType, Data: data})
}

// ChatImageData forwards in-memory image bytes. Used by transports that
// receive the image inline instead of as a file upload.
func (s *Service) ChatImageData(ctx context.Context, message string, img ai.Image) (string, error) {
	if len(img.Data) == 0 {
		return "", ErrImageRequired
	}

	return s.generate(ctx, ai.Request{
		Text:  s.prompts.ImagePrompt(message),
		Image: &img,
	})
}

func (s *Service) generate(ctx context.Context, req ai.Request) (string, error) {
	defer logging.Duration(s.logger, "provider_generate",
		zap.String("provider", s.provider.Name()),
		zap.Bool("image", req.Image != nil),
	)()

	reply, err := s.provider.Generate(ctx, req)
	if err != nil {
		s.logger.Error("provider call failed",
			zap.String("provider", s.provider.Name()),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %w", ErrProvider, err)
	}

	s.logger.Info("generated response",
		zap.String("provider", s.provider.Name()),
		zap.Bool("image", req.Image != nil),
		zap.Int("length", len(reply)),
	)
	return reply, nil
}
