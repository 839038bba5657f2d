package policy

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Policy defines the configurable limits for a studio session.
// The durations and schedules here are defaults, not invariants;
// callers read them from the policy instead of hard-coding them.
type Policy struct {
	MaxPromptRunes    int           `json:"max_prompt_runes"`
	MaxAttachments    int           `json:"max_attachments"`
	AllowedAssetGlobs []string      `json:"allowed_asset_globs"`
	ProbeTimeout      time.Duration `json:"probe_timeout"`
	SavedTTL          time.Duration `json:"saved_ttl"`
	SweepSchedule     string        `json:"sweep_schedule"`
	ExpiryWarnDays    int           `json:"expiry_warn_days"`
}

// Default provides the reference limits.
var Default = Policy{
	MaxPromptRunes:    4000,
	MaxAttachments:    10,
	AllowedAssetGlobs: []string{"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp"},
	ProbeTimeout:      3 * time.Second,
	SavedTTL:          15 * 24 * time.Hour,
	SweepSchedule:     "@hourly",
	ExpiryWarnDays:    3,
}

// Violation represents a specific breach of policy.
type Violation struct {
	Rule    string
	Message string
	Fatal   bool
}

// Guard enforces the policy.
type Guard struct {
	policy Policy
}

func New(p Policy) *Guard {
	return &Guard{policy: p}
}

// Policy returns the guard's current policy configuration.
func (g *Guard) Policy() Policy {
	return g.policy
}

// CheckPrompt verifies a prompt is usable before any dispatch happens.
func (g *Guard) CheckPrompt(prompt string) *Violation {
	if strings.TrimSpace(prompt) == "" {
		return &Violation{Rule: "prompt", Message: "Prompt must not be empty", Fatal: true}
	}
	if g.policy.MaxPromptRunes > 0 && len([]rune(prompt)) > g.policy.MaxPromptRunes {
		return &Violation{Rule: "max_prompt_runes", Message: "Prompt length limit exceeded", Fatal: true}
	}
	return nil
}

// CheckAttachment verifies a file name is within the allowed asset globs.
func (g *Guard) CheckAttachment(name string) *Violation {
	base := strings.ToLower(filepath.Base(name))

	allowed := false
	for _, pattern := range g.policy.AllowedAssetGlobs {
		match, err := doublestar.Match(pattern, base)
		if err == nil && match {
			allowed = true
			break
		}
	}

	if !allowed {
		return &Violation{Rule: "allowed_asset_globs", Message: "Attachment type not allowed: " + name, Fatal: false}
	}
	return nil
}

// CheckAttachmentCount verifies the attachment budget.
func (g *Guard) CheckAttachmentCount(count int) *Violation {
	if g.policy.MaxAttachments > 0 && count > g.policy.MaxAttachments {
		return &Violation{Rule: "max_attachments", Message: "Attachment limit exceeded", Fatal: true}
	}
	return nil
}
