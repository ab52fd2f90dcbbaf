// Package ai describes product images and extracts vocabulary tags using generative models.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/tstromberg/tagflow/pkg/vocab"
)

// Describer turns an image into descriptive text.
type Describer interface {
	Describe(ctx context.Context, imagePath string) (string, error)
}

// Tagger selects vocabulary terms relevant to a description.
type Tagger interface {
	Tag(ctx context.Context, description string, v *vocab.Vocabulary) ([]string, error)
}

// DescribePrompt asks a vision model for an editorial product description.
var DescribePrompt = `You are an image analysis model writing product descriptions for an e-commerce catalog.
The attached photo comes from a product shoot for exactly one department: Home, Sports, Men, Women, Kids, or Tech.
Ignore products that belong to other departments, even if they are visible.

1. Identify the main products of the department by name (for example: vest, trousers, bandana).
2. Describe each product in detail: design, material, fit, color and texture.
3. Explain how the setting and background complement the products.
4. Suggest short marketing callouts such as "Versatile vest" or "Bold trousers".
5. Do not explain why the image fits the department.
6. Write at most 200 words in the style of an editorial feature.`

// tagRules constrain the tagging model's answer to something Filter can parse.
var tagRules = `Rules:
- Do not invent new tags.
- Only choose tags directly relevant to the explanation.
- Return the tags as a comma-separated list.`

// TagPrompt builds the tagging request for a description.
func TagPrompt(description string, v *vocab.Vocabulary) string {
	return fmt.Sprintf("From the following explanation, select relevant tags ONLY from this list:\n%s\n\n%s\n\nExplanation:\n%s",
		strings.Join(v.Terms(), ", "), tagRules, description)
}

// tag runs a tagging prompt through generate and filters the answer against v.
func tag(ctx context.Context, generate func(context.Context, string) (string, error), description string, v *vocab.Vocabulary) ([]string, error) {
	if v.Empty() {
		return []string{}, nil
	}

	out, err := generate(ctx, TagPrompt(description, v))
	if err != nil {
		return nil, err
	}
	return v.Filter(out), nil
}

// cleanText trims whitespace and stray code fences from a model answer.
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```text")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
