package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/felixgeelhaar/atelier/internal/request"
)

// GeminiProvider generates caption-and-tag creatives; it returns no
// image references, so candidates built from it render the placeholder.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, errors.New("API key is required")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if model == "" {
		model = "gemini-1.5-pro-latest"
	}

	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

func (p *GeminiProvider) Generate(ctx context.Context, payload request.Payload) ([]Result, error) {
	geminiModel := p.client.GenerativeModel(p.model)

	prompt := fmt.Sprintf(
		"Write a social media %s caption for the following brief. End with a line of hashtags.\n\n%s",
		payload.Fields[request.FieldTemplate],
		payload.Fields[request.FieldPrompt],
	)

	resp, err := geminiModel.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates returned")
	}

	var contentStr string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			contentStr += string(text)
		}
	}

	caption, tags := splitHashtags(contentStr)
	return []Result{
		{
			Template: payload.Fields[request.FieldTemplate],
			Caption:  caption,
			Tags:     tags,
		},
	}, nil
}

// splitHashtags separates trailing hashtag words from the caption body.
func splitHashtags(text string) (caption string, tags []string) {
	var kept []string
	for _, word := range strings.Fields(text) {
		if strings.HasPrefix(word, "#") && len(word) > 1 {
			tags = append(tags, strings.TrimPrefix(word, "#"))
			continue
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " "), tags
}
