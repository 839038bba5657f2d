package saved

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Service is the HTTP client for the hosted save backend. It satisfies
// Remote so the cache can mirror its mutations server-side.
type Service struct {
	apiKey      string
	baseURL     string
	userID      string
	workspaceID string
	client      *http.Client
}

func NewService(apiKey, baseURL string) (*Service, error) {
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}
	return &Service{
		apiKey:  apiKey,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// WithIdentity attaches the user and workspace identifiers sent with
// every mutation.
func (s *Service) WithIdentity(userID, workspaceID string) *Service {
	s.userID = userID
	s.workspaceID = workspaceID
	return s
}

// SaveImage asks the backend to pin a copy of the source image.
func (s *Service) SaveImage(ctx context.Context, sourceURL string) error {
	return s.post(ctx, "/v1/images/save", map[string]string{
		"sourceUrl":   sourceURL,
		"userId":      s.userID,
		"workspaceId": s.workspaceID,
	})
}

// PromoteImage marks a saved image permanent server-side.
func (s *Service) PromoteImage(ctx context.Context, recordID string) error {
	return s.post(ctx, "/v1/images/promote", map[string]string{
		"recordId":    recordID,
		"userId":      s.userID,
		"workspaceId": s.workspaceID,
	})
}

func (s *Service) post(ctx context.Context, path string, body map[string]string) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("backend returned %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}
