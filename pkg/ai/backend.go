package ai

import (
	"context"
	"fmt"
	"time"
)

// Provider identifies the model backend.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOllama Provider = "ollama"
)

var (
	DefaultOllamaVisionModel  = "llama3.2-vision"
	DefaultOllamaTaggingModel = "llama3.2:3b"
)

// BackendConfig selects the models used for describing and tagging.
type BackendConfig struct {
	Provider     Provider
	VisionModel  string
	TaggingModel string
	Image        ImageOpts

	// Gemini
	APIKey   string
	Project  string
	Location string

	// Ollama
	BaseURL string
	Timeout time.Duration
}

// NewBackend returns the describer and tagger for c.
func NewBackend(ctx context.Context, c BackendConfig) (Describer, Tagger, error) {
	switch c.Provider {
	case ProviderGemini, "":
		if c.APIKey == "" && c.Project == "" {
			return nil, nil, fmt.Errorf("gemini requires an API key or a Vertex AI project")
		}
		gc := GeminiConfig{APIKey: c.APIKey, Project: c.Project, Location: c.Location}

		gc.Model = c.VisionModel
		d, err := NewGemini(ctx, gc)
		if err != nil {
			return nil, nil, fmt.Errorf("vision model: %w", err)
		}
		d.Image = c.Image

		gc.Model = c.TaggingModel
		t, err := NewGemini(ctx, gc)
		if err != nil {
			return nil, nil, fmt.Errorf("tagging model: %w", err)
		}
		return d, t, nil

	case ProviderOllama:
		vm, tm := c.VisionModel, c.TaggingModel
		if vm == "" {
			vm = DefaultOllamaVisionModel
		}
		if tm == "" {
			tm = DefaultOllamaTaggingModel
		}

		d, err := NewOllama(ctx, OllamaConfig{BaseURL: c.BaseURL, Model: vm, Timeout: c.Timeout})
		if err != nil {
			return nil, nil, fmt.Errorf("vision model: %w", err)
		}
		d.Image = c.Image

		t, err := NewOllama(ctx, OllamaConfig{BaseURL: c.BaseURL, Model: tm, Timeout: c.Timeout})
		if err != nil {
			return nil, nil, fmt.Errorf("tagging model: %w", err)
		}
		return d, t, nil

	default:
		return nil, nil, fmt.Errorf("unsupported provider: %s (supported: gemini, ollama)", c.Provider)
	}
}
