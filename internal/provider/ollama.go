package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/ollama/ollama/api"

	"github.com/felixgeelhaar/atelier/internal/request"
)

// OllamaProvider generates captions with a local model; useful when no
// hosted backend is configured.
type OllamaProvider struct {
	client *api.Client
	model  string
}

func NewOllamaProvider(model string) (*OllamaProvider, error) {
	if model == "" {
		model = "llama3.2"
	}

	baseURL := "http://localhost:11434"
	if envURL := os.Getenv("OLLAMA_HOST"); envURL != "" {
		baseURL = envURL
	}
	uri, _ := url.Parse(baseURL)
	client := api.NewClient(uri, http.DefaultClient)

	return &OllamaProvider{
		client: client,
		model:  model,
	}, nil
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

func (p *OllamaProvider) Generate(ctx context.Context, payload request.Payload) ([]Result, error) {
	prompt := fmt.Sprintf(
		"Write a social media %s caption for the following brief. Reply with the caption only.\n\n%s",
		payload.Fields[request.FieldTemplate],
		payload.Fields[request.FieldPrompt],
	)

	req := &api.ChatRequest{
		Model: p.model,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
		Stream: new(bool), // false
	}

	var respContent string
	err := p.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		respContent += resp.Message.Content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat failed: %w", err)
	}

	caption, tags := splitHashtags(respContent)
	return []Result{
		{
			Template: payload.Fields[request.FieldTemplate],
			Caption:  caption,
			Tags:     tags,
		},
	}, nil
}
