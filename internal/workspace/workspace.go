package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile holds the business context a workspace supplies to generation:
// prompt augmentation fields plus the default logo used as the asset
// fallback when nothing is attached.
type Profile struct {
	Name        string `json:"name" yaml:"name"`
	Industry    string `json:"industry" yaml:"industry"`
	Audience    string `json:"audience" yaml:"audience"`
	Tone        string `json:"tone,omitempty" yaml:"tone,omitempty"`
	Website     string `json:"website,omitempty" yaml:"website,omitempty"`
	DefaultLogo string `json:"default_logo,omitempty" yaml:"default_logo,omitempty"`
	WorkspaceID string `json:"workspace_id,omitempty" yaml:"workspace_id,omitempty"`
}

// ValidationResult represents the outcome of a profile check.
type ValidationResult struct {
	Valid    bool
	Warnings []string
	Errors   []string
}

// EmptyContext is the placeholder sent when profile serialization fails.
// The backend contract is that context is always present, even if empty.
const EmptyContext = "{}"

// LoadProfile reads a workspace profile from a file (JSON or YAML).
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}

	var profile Profile
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("failed to unmarshal JSON profile: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("failed to unmarshal YAML profile: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported profile format: %s (use .json or .yaml)", ext)
	}

	return &profile, nil
}

// Validate checks the Profile for completeness and quality.
func Validate(p Profile) ValidationResult {
	res := ValidationResult{
		Valid:    true,
		Warnings: []string{},
		Errors:   []string{},
	}

	if p.Name == "" {
		res.Valid = false
		res.Errors = append(res.Errors, "Business name is required")
	}

	if p.Industry == "" {
		res.Warnings = append(res.Warnings, "No industry set; generated copy will be generic")
	}

	if p.Audience == "" {
		res.Warnings = append(res.Warnings, "No target audience set; generated copy will be generic")
	}

	if p.DefaultLogo == "" {
		res.Warnings = append(res.Warnings, "No default logo; promptless requests will carry no asset")
	}

	return res
}

// ContextJSON serializes the profile snapshot for prompt augmentation.
// It never fails: a serialization error degrades to EmptyContext rather
// than dropping the context or aborting the request.
func ContextJSON(p Profile) string {
	data, err := json.Marshal(p)
	if err != nil {
		return EmptyContext
	}
	return string(data)
}
