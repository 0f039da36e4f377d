package ai

import (
	"strings"

	"github.com/digi-assistant/digi/backend/internal/model/persona"
)

// PromptBuilder wraps user input in the persona instruction.
type PromptBuilder struct {
	persona persona.Persona
}

// NewPromptBuilder creates a builder for the given persona.
func NewPromptBuilder(p persona.Persona) *PromptBuilder {
	return &PromptBuilder{persona: p}
}

// Persona returns the persona the builder was created with.
func (b *PromptBuilder) Persona() persona.Persona {
	return b.persona
}

// TextPrompt frames a text-only message.
func (b *PromptBuilder) TextPrompt(message string) string {
	return join(b.persona.Identity, b.persona.TextStyle, b.persona.TextLead, message)
}

// ImagePrompt frames the optional caption sent with an image. An empty
// caption is replaced by the persona's fallback question.
func (b *PromptBuilder) ImagePrompt(message string) string {
	if strings.TrimSpace(message) == "" {
		message = b.persona.ImageFallback
	}
	return join(b.persona.Identity, b.persona.ImageLead, message)
}

func join(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
