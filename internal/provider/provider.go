package provider

import (
	"context"

	"github.com/felixgeelhaar/atelier/internal/request"
)

// Slide is one panel of a carousel result.
type Slide struct {
	Caption  string `json:"caption,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Result is one generated creative as described by a backend: a post
// (caption, zero or one image, suggestion tags) or a carousel (slides).
type Result struct {
	ID        string   `json:"id"`
	Template  string   `json:"template"`
	Caption   string   `json:"caption,omitempty"`
	ImageURLs []string `json:"image_urls,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Slides    []Slide  `json:"slides,omitempty"`
}

// Provider defines the interface to a generation backend. A backend
// must tolerate payloads with zero assets.
type Provider interface {
	// Generate sends the payload and returns the result descriptors.
	Generate(ctx context.Context, payload request.Payload) ([]Result, error)

	// Name returns the provider identifier (e.g., "stub", "studio").
	Name() string
}
