package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"k8s.io/klog/v2"

	"github.com/tstromberg/tagflow/pkg/vocab"
)

// DefaultOllamaURL is the address of a local Ollama server.
var DefaultOllamaURL = "http://localhost:11434"

// OllamaConfig configures a model served by Ollama.
type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Ollama describes and tags images with a locally served model.
type Ollama struct {
	chat  model.BaseChatModel
	name  string
	Image ImageOpts
}

// NewOllama returns an Ollama backed describer and tagger.
func NewOllama(ctx context.Context, c OllamaConfig) (*Ollama, error) {
	if c.Model == "" {
		return nil, fmt.Errorf("ollama model name is required")
	}
	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}

	cm, err := ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
		BaseURL: baseURL,
		Model:   c.Model,
		Timeout: c.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat model: %w", err)
	}
	return &Ollama{chat: cm, name: c.Model, Image: DefaultImageOpts}, nil
}

// Describe sends the image at path to a vision model such as llava or llama3.2-vision.
func (o *Ollama) Describe(ctx context.Context, path string) (string, error) {
	bs, mt, err := imageData(path, o.Image)
	if err != nil {
		return "", err
	}

	// Ollama wants bare base64 of the raw bytes, not a data URL.
	b64 := base64.StdEncoding.EncodeToString(bs)
	msg := &schema.Message{
		Role: schema.User,
		UserInputMultiContent: []schema.MessageInputPart{
			{Type: schema.ChatMessagePartTypeText, Text: DescribePrompt},
			{Type: schema.ChatMessagePartTypeImageURL, Image: &schema.MessageInputImage{
				MessagePartCommon: schema.MessagePartCommon{Base64Data: &b64, MIMEType: mt},
			}},
		},
	}
	klog.V(1).Infof("describing %s (%d bytes, %s) with %s", path, len(bs), mt, o.name)
	return o.generate(ctx, msg)
}

// Tag asks the model which vocabulary terms apply to description.
func (o *Ollama) Tag(ctx context.Context, description string, v *vocab.Vocabulary) ([]string, error) {
	return tag(ctx, func(ctx context.Context, prompt string) (string, error) {
		return o.generate(ctx, schema.UserMessage(prompt))
	}, description, v)
}

func (o *Ollama) generate(ctx context.Context, msg *schema.Message) (string, error) {
	resp, err := o.chat.Generate(ctx, []*schema.Message{msg})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("empty response from %s", o.name)
	}
	return cleanText(resp.Content), nil
}
