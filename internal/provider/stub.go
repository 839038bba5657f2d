package provider

import (
	"context"

	"github.com/felixgeelhaar/atelier/internal/request"
)

// StubProvider is a deterministic provider for testing and demos.
type StubProvider struct {
	// Err, when set, is returned by every Generate call.
	Err error
	// Calls records the payloads received, in order.
	Calls []request.Payload
}

func NewStubProvider() *StubProvider {
	return &StubProvider{}
}

func (m *StubProvider) Name() string {
	return "stub"
}

func (m *StubProvider) Generate(ctx context.Context, payload request.Payload) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.Calls = append(m.Calls, payload)
	if m.Err != nil {
		return nil, m.Err
	}

	template := payload.Fields[request.FieldTemplate]
	if template == string(request.TemplateCarousel) {
		return []Result{
			{
				ID:       "stub-carousel-1",
				Template: template,
				Slides: []Slide{
					{Caption: "Slide one", ImageURL: "https://stub.example.com/carousel/1.png"},
					{Caption: "Slide two", ImageURL: "https://stub.example.com/carousel/2.png"},
					{Caption: "Slide three", ImageURL: "https://stub.example.com/carousel/3.png"},
				},
			},
		}, nil
	}

	return []Result{
		{
			ID:        "stub-post-1",
			Template:  template,
			Caption:   "Fresh from the studio",
			ImageURLs: []string{"https://stub.example.com/post/1.png"},
			Tags:      []string{"fresh", "studio"},
		},
		{
			ID:        "stub-post-2",
			Template:  template,
			Caption:   "A second take",
			ImageURLs: []string{"https://stub.example.com/post/2.png"},
			Tags:      []string{"alt"},
		},
	}, nil
}
