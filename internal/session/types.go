package session

import (
	"time"

	"github.com/felixgeelhaar/atelier/internal/asset"
	"github.com/felixgeelhaar/atelier/internal/request"
)

// TurnState tracks a turn through its lifecycle. Populated and Fallback
// are terminal; a successful regeneration keeps the turn Populated and
// appends to it.
type TurnState string

const (
	TurnPending   TurnState = "pending"
	TurnPopulated TurnState = "populated"
	TurnFallback  TurnState = "fallback"
)

// Slide is one panel of a carousel candidate.
type Slide struct {
	Caption  string
	ImageRef string
}

// Candidate is one generated creative. ImageRefs are hints, not
// guaranteed-resolvable URLs; display resolution goes through
// asset.ResolveDisplayURL. Degraded marks synthesized placeholders
// substituted after a transport failure.
type Candidate struct {
	ID        string
	Template  request.TemplateKind
	Caption   string
	ImageRefs []string
	Tags      []string
	Slides    []Slide
	Degraded  bool
}

// PrimaryImageRef returns the candidate's first image hint, or "".
func (c Candidate) PrimaryImageRef() string {
	if len(c.Slides) > 0 {
		return c.Slides[0].ImageRef
	}
	if len(c.ImageRefs) > 0 {
		return c.ImageRefs[0]
	}
	return ""
}

// Turn is one prompt submission and its results. InputAssets records
// the assets used, by reference, so a regeneration can re-issue the
// same request.
type Turn struct {
	ID          string
	SessionID   string
	Prompt      string
	Template    request.TemplateKind
	AspectRatio string
	CreatedAt   time.Time
	State       TurnState
	Candidates  []Candidate
	InputAssets []asset.Asset
}

// DownloadableCandidates returns the candidates that carry a real
// image. Degraded placeholders and caption-only results are excluded.
func (t Turn) DownloadableCandidates() []Candidate {
	var out []Candidate
	for _, c := range t.Candidates {
		if c.Degraded || c.PrimaryImageRef() == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// EffectiveSessionID groups legacy turns that predate explicit sessions
// under their own turn ID.
func (t Turn) EffectiveSessionID() string {
	if t.SessionID != "" {
		return t.SessionID
	}
	return t.ID
}

// Summary describes one session thread for navigation.
type Summary struct {
	SessionID string
	Latest    Turn
	TurnCount int
}
