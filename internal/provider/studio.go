package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/felixgeelhaar/atelier/internal/request"
)

// StudioProvider talks to the workspace's own generation service over
// multipart/form-data.
type StudioProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewStudioProvider(apiKey, baseURL string) (*StudioProvider, error) {
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}

	return &StudioProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{},
	}, nil
}

func (p *StudioProvider) Name() string {
	return "studio"
}

// Studio types for request/response
type studioResponse struct {
	Results []studioResult `json:"results"`
	Error   *studioError   `json:"error,omitempty"`
}

type studioResult struct {
	ID       string        `json:"id"`
	Kind     string        `json:"kind"`
	Caption  string        `json:"caption,omitempty"`
	ImageURL string        `json:"image_url,omitempty"`
	Tags     []string      `json:"tags,omitempty"`
	Slides   []studioSlide `json:"slides,omitempty"`
}

type studioSlide struct {
	Caption  string `json:"caption,omitempty"`
	ImageURL string `json:"image_url"`
}

type studioError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SetBaseURL allows overriding the API endpoint (useful for tests)
func (p *StudioProvider) SetBaseURL(url string) {
	p.baseURL = url
}

func (p *StudioProvider) Generate(ctx context.Context, payload request.Payload) ([]Result, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for field, value := range payload.Fields {
		if err := writer.WriteField(field, value); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", field, err)
		}
	}
	for _, f := range payload.Files {
		part, err := writer.CreateFormFile(f.Field, f.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to create file part %s: %w", f.Name, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, fmt.Errorf("failed to write file part %s: %w", f.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/generations", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("studio api error (%d): %s", resp.StatusCode, string(respBody))
	}

	var studioResp studioResponse
	if err := json.Unmarshal(respBody, &studioResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if studioResp.Error != nil {
		return nil, fmt.Errorf("studio error: %s", studioResp.Error.Message)
	}

	results := make([]Result, 0, len(studioResp.Results))
	for _, r := range studioResp.Results {
		out := Result{
			ID:       r.ID,
			Template: r.Kind,
			Caption:  r.Caption,
			Tags:     r.Tags,
		}
		if r.ImageURL != "" {
			out.ImageURLs = []string{r.ImageURL}
		}
		for _, s := range r.Slides {
			out.Slides = append(out.Slides, Slide{Caption: s.Caption, ImageURL: s.ImageURL})
		}
		results = append(results, out)
	}

	return results, nil
}
