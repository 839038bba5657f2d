package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/atelier/internal/asset"
	"github.com/felixgeelhaar/atelier/internal/request"
)

var (
	ErrTurnNotFound = errors.New("turn not found")
	ErrBadState     = errors.New("turn is not in a state that allows this mutation")
)

// Store owns GenerationTurn and Candidate lifetimes. All state is
// in-memory and mutex-guarded; mutations are keyed by turn ID, so
// out-of-order network completions cannot corrupt unrelated turns.
type Store struct {
	mu    sync.RWMutex
	turns map[string]*Turn
	order []string // creation order
}

func NewStore() *Store {
	return &Store{
		turns: make(map[string]*Turn),
	}
}

// StartSession allocates a new thread identifier. Existing threads are
// unaffected.
func (s *Store) StartSession() string {
	return uuid.NewString()
}

// AppendTurn inserts a Pending turn, immediately visible to readers,
// before any network response exists.
func (s *Store) AppendTurn(sessionID, prompt string, template request.TemplateKind, aspectRatio string, inputs []asset.Asset) Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &Turn{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		Prompt:      prompt,
		Template:    template,
		AspectRatio: aspectRatio,
		CreatedAt:   time.Now(),
		State:       TurnPending,
		InputAssets: append([]asset.Asset(nil), inputs...),
	}
	s.turns[t.ID] = t
	s.order = append(s.order, t.ID)
	return *t
}

// ResolveTurn moves a Pending turn to Populated with its candidates.
func (s *Store) ResolveTurn(turnID string, candidates []Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.turns[turnID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTurnNotFound, turnID)
	}
	if t.State != TurnPending {
		return fmt.Errorf("%w: %s is %s", ErrBadState, turnID, t.State)
	}
	t.Candidates = append([]Candidate(nil), candidates...)
	t.State = TurnPopulated
	return nil
}

// FailTurn moves a Pending turn to Fallback with synthesized
// placeholder candidates, so readers always have something to render.
func (s *Store) FailTurn(turnID string, fallback []Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.turns[turnID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTurnNotFound, turnID)
	}
	if t.State != TurnPending {
		return fmt.Errorf("%w: %s is %s", ErrBadState, turnID, t.State)
	}
	t.Candidates = append([]Candidate(nil), fallback...)
	t.State = TurnFallback
	return nil
}

// AppendCandidates extends a Populated turn. Strictly additive: the
// prior sequence is never replaced or reordered.
func (s *Store) AppendCandidates(turnID string, newCandidates []Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.turns[turnID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTurnNotFound, turnID)
	}
	if t.State != TurnPopulated {
		return fmt.Errorf("%w: %s is %s", ErrBadState, turnID, t.State)
	}
	t.Candidates = append(t.Candidates, newCandidates...)
	return nil
}

// Turn returns a copy of the turn, if present.
func (s *Store) Turn(turnID string) (Turn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.turns[turnID]
	if !ok {
		return Turn{}, false
	}
	return copyTurn(t), true
}

// TurnsForSession returns the session's turns oldest-first for display.
func (s *Store) TurnsForSession(sessionID string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Turn
	for _, id := range s.order {
		t := s.turns[id]
		if t.EffectiveSessionID() == sessionID {
			out = append(out, copyTurn(t))
		}
	}
	return out
}

// Sessions lists threads most-recent-first, each represented by its
// most recently created turn.
func (s *Store) Sessions() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[string]*Turn)
	lastIndex := make(map[string]int)
	counts := make(map[string]int)
	var sessionIDs []string

	for i, id := range s.order {
		t := s.turns[id]
		sid := t.EffectiveSessionID()
		if _, seen := latest[sid]; !seen {
			sessionIDs = append(sessionIDs, sid)
		}
		// Creation order is append order, so the last seen turn wins.
		latest[sid] = t
		lastIndex[sid] = i
		counts[sid]++
	}

	// Most recent first, ranked by each group's representative turn.
	sort.Slice(sessionIDs, func(a, b int) bool {
		return lastIndex[sessionIDs[a]] > lastIndex[sessionIDs[b]]
	})

	out := make([]Summary, 0, len(sessionIDs))
	for _, sid := range sessionIDs {
		out = append(out, Summary{
			SessionID: sid,
			Latest:    copyTurn(latest[sid]),
			TurnCount: counts[sid],
		})
	}
	return out
}

// PruneAsset removes a detached asset from every turn's input binding
// set. Prompts and candidates, the generation history, are untouched.
func (s *Store) PruneAsset(assetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.turns {
		kept := t.InputAssets[:0]
		for _, a := range t.InputAssets {
			if a.ID != assetID {
				kept = append(kept, a)
			}
		}
		t.InputAssets = kept
	}
}

func copyTurn(t *Turn) Turn {
	out := *t
	out.Candidates = append([]Candidate(nil), t.Candidates...)
	out.InputAssets = append([]asset.Asset(nil), t.InputAssets...)
	return out
}
