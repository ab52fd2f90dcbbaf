package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"
	"k8s.io/klog/v2"

	"github.com/tstromberg/tagflow/pkg/vocab"
)

// DefaultGeminiModel is used when no model name is configured.
var DefaultGeminiModel = "gemini-2.5-flash"

// GeminiConfig selects between the Gemini API and Vertex AI.
type GeminiConfig struct {
	APIKey   string
	Project  string
	Location string
	Model    string
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini describes and tags images with a Gemini model.
type Gemini struct {
	models contentGenerator
	model  string
	Image  ImageOpts
}

// NewGemini returns a Gemini client. A Project selects the Vertex AI backend.
func NewGemini(ctx context.Context, c GeminiConfig) (*Gemini, error) {
	cfg := &genai.ClientConfig{
		APIKey:  c.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if c.Project != "" {
		cfg = &genai.ClientConfig{
			Project:  c.Project,
			Location: c.Location,
			Backend:  genai.BackendVertexAI,
		}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}

	model := c.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{models: client.Models, model: model, Image: DefaultImageOpts}, nil
}

// Describe asks the model for a product description of the image at path.
func (g *Gemini) Describe(ctx context.Context, path string) (string, error) {
	bs, mt, err := imageData(path, g.Image)
	if err != nil {
		return "", err
	}

	parts := []*genai.Part{
		genai.NewPartFromBytes(bs, mt),
		genai.NewPartFromText(DescribePrompt),
	}
	klog.V(1).Infof("describing %s (%d bytes, %s) with %s", path, len(bs), mt, g.model)
	return g.generate(ctx, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)})
}

// Tag asks the model which vocabulary terms apply to description.
func (g *Gemini) Tag(ctx context.Context, description string, v *vocab.Vocabulary) ([]string, error) {
	return tag(ctx, func(ctx context.Context, prompt string) (string, error) {
		return g.generate(ctx, genai.Text(prompt))
	}, description, v)
}

func (g *Gemini) generate(ctx context.Context, contents []*genai.Content) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned by %s", g.model)
	}
	return cleanText(resp.Text()), nil
}
