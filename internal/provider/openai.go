package provider

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/felixgeelhaar/atelier/internal/request"
)

type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(apiKey, baseURL, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.New("API key is required")
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	client := openai.NewClientWithConfig(config)
	if model == "" {
		model = openai.CreateImageModelDallE3
	}

	return &OpenAIProvider{
		client: client,
		model:  model,
	}, nil
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) Generate(ctx context.Context, payload request.Payload) ([]Result, error) {
	prompt := payload.Fields[request.FieldPrompt]
	template := payload.Fields[request.FieldTemplate]

	// Carousels need one image per slide; posts get a single image.
	n := 1
	if template == string(request.TemplateCarousel) {
		n = 3
	}

	resp, err := p.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          p.model,
		N:              n,
		Size:           sizeForAspect(payload.Fields[request.FieldAspectRatio]),
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return nil, fmt.Errorf("openai image generation failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no images returned")
	}

	if template == string(request.TemplateCarousel) {
		result := Result{Template: template}
		for _, d := range resp.Data {
			result.Slides = append(result.Slides, Slide{ImageURL: d.URL})
		}
		return []Result{result}, nil
	}

	results := make([]Result, 0, len(resp.Data))
	for _, d := range resp.Data {
		results = append(results, Result{
			Template:  template,
			Caption:   d.RevisedPrompt,
			ImageURLs: []string{d.URL},
		})
	}
	return results, nil
}

func sizeForAspect(aspect string) string {
	switch aspect {
	case "9:16":
		return openai.CreateImageSize1024x1792
	case "16:9":
		return openai.CreateImageSize1792x1024
	default:
		return openai.CreateImageSize1024x1024
	}
}
