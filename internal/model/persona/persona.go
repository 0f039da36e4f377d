package persona

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Persona holds the fixed instruction that frames every provider call.
type Persona struct {
	Name          string `json:"name" yaml:"name"`
	Identity      string `json:"-" yaml:"identity"`
	TextStyle     string `json:"-" yaml:"textStyle"`
	TextLead      string `json:"-" yaml:"textLead"`
	ImageLead     string `json:"-" yaml:"imageLead"`
	ImageFallback string `json:"-" yaml:"imageFallback"`
	Greeting      string `json:"greeting" yaml:"greeting"`
}

// Default returns the built-in Digi persona.
func Default() Persona {
	return Persona{
		Name:          "Digi",
		Identity:      "You are a helpful, friendly assistant named Digi. You help with day-to-day tasks and answer questions in a warm, conversational tone as if you're a good friend.",
		TextStyle:     "Keep responses helpful but casual and approachable.",
		TextLead:      "Here's what the user said:",
		ImageLead:     "The user has shared an image with you.",
		ImageFallback: "Please describe what you see and how you can help.",
		Greeting:      "Hey there! I'm Digi, your friendly assistant. I'm here to help you with day-to-day tasks, answer questions, or just chat. What can I help you with today? 😊",
	}
}

// Load reads a YAML persona file. Fields missing from the file keep their
// default values. An empty path returns Default().
func Load(path string) (Persona, error) {
	p := Default()
	if strings.TrimSpace(path) == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Persona{}, fmt.Errorf("read persona file: %w", err)
	}

	if err := yaml.Unmarshal(data, &p); err != nil {
		return Persona{}, fmt.Errorf("parse persona file %s: %w", path, err)
	}

	if strings.TrimSpace(p.Identity) == "" {
		return Persona{}, fmt.Errorf("persona file %s: identity must not be empty", path)
	}
	return p, nil
}
