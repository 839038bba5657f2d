// Package generate coordinates one prompt submission end to end:
// policy check, optional asset liveness confirmation, payload assembly,
// provider dispatch and turn bookkeeping.
package generate

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/atelier/internal/asset"
	"github.com/felixgeelhaar/atelier/internal/observe"
	"github.com/felixgeelhaar/atelier/internal/policy"
	"github.com/felixgeelhaar/atelier/internal/probe"
	"github.com/felixgeelhaar/atelier/internal/provider"
	"github.com/felixgeelhaar/atelier/internal/request"
	"github.com/felixgeelhaar/atelier/internal/session"
	"github.com/felixgeelhaar/atelier/internal/workspace"
)

// Orchestrator drives the generation flow. It is safe for sequential
// use from a single chat loop; concurrent safety for turn state lives
// in the session store.
type Orchestrator struct {
	obs       *observe.Observer
	guard     *policy.Guard
	provider  provider.Provider
	builder   *request.Builder
	sessions  *session.Store
	prober    *probe.Prober
	workspace *workspace.Provider
	userID    string
}

// Options carries the orchestrator's collaborators.
type Options struct {
	Observer  *observe.Observer
	Guard     *policy.Guard
	Provider  provider.Provider
	Sessions  *session.Store
	Prober    *probe.Prober
	Workspace *workspace.Provider
	UserID    string
}

func New(opts Options) *Orchestrator {
	return &Orchestrator{
		obs:       opts.Observer,
		guard:     opts.Guard,
		provider:  opts.Provider,
		builder:   request.NewBuilder(),
		sessions:  opts.Sessions,
		prober:    opts.Prober,
		workspace: opts.Workspace,
		userID:    opts.UserID,
	}
}

// Generate runs one turn. A rejected prompt performs no dispatch and
// creates no turn. When confirmAssets is set, every attached asset is
// probed first and dead ones are dropped; a fully dead set degrades to
// a prompt-only request rather than blocking.
//
// The turn is appended Pending before dispatch, so the session shows
// the submission immediately. On transport failure the turn lands in
// the fallback state with degraded placeholder candidates, and the
// error is returned alongside the turn.
func (o *Orchestrator) Generate(ctx context.Context, sessionID, prompt string, template request.TemplateKind, aspectRatio string, assets []asset.Asset, confirmAssets bool) (session.Turn, error) {
	ctx, span := o.obs.StartSpan(ctx, "generate.turn")
	defer span.End()

	if v := o.guard.CheckPrompt(prompt); v != nil {
		return session.Turn{}, fmt.Errorf("prompt rejected: %s", v.Message)
	}

	if confirmAssets && len(assets) > 0 {
		assets = o.confirmLive(ctx, assets)
	}

	turn := o.sessions.AppendTurn(sessionID, prompt, template, aspectRatio, assets)

	payload := o.builder.Build(prompt, template, aspectRatio, assets, o.workspace.Current(), turn.EffectiveSessionID(), o.userID)

	results, err := o.provider.Generate(ctx, payload)
	if err != nil {
		o.obs.Log().Warn().
			Str("turn", turn.ID).
			Str("provider", o.provider.Name()).
			Err(err).
			Msg("generation failed, substituting placeholders")
		if failErr := o.sessions.FailTurn(turn.ID, fallbackCandidates(turn.ID, template)); failErr != nil {
			return session.Turn{}, failErr
		}
		failed, _ := o.sessions.Turn(turn.ID)
		return failed, fmt.Errorf("generation failed: %w", err)
	}

	candidates := resultsToCandidates(results, template)
	if err := o.sessions.ResolveTurn(turn.ID, candidates); err != nil {
		return session.Turn{}, err
	}

	o.obs.Log().Info().
		Str("turn", turn.ID).
		Int("candidates", len(candidates)).
		Msg("turn populated")

	resolved, _ := o.sessions.Turn(turn.ID)
	return resolved, nil
}

// Regenerate re-issues a populated turn's request with the same prompt,
// template and asset bindings, appending the new candidates after the
// existing ones. Local assets whose staged copies are gone are skipped.
// On failure the turn's prior candidates are untouched.
func (o *Orchestrator) Regenerate(ctx context.Context, turnID string) (session.Turn, error) {
	ctx, span := o.obs.StartSpan(ctx, "generate.regenerate")
	defer span.End()

	turn, ok := o.sessions.Turn(turnID)
	if !ok {
		return session.Turn{}, fmt.Errorf("%w: %s", session.ErrTurnNotFound, turnID)
	}
	if turn.State != session.TurnPopulated {
		return session.Turn{}, fmt.Errorf("%w: %s is %s", session.ErrBadState, turnID, turn.State)
	}

	assets := usableAssets(turn.InputAssets)
	payload := o.builder.Build(turn.Prompt, turn.Template, turn.AspectRatio, assets, o.workspace.Current(), turn.EffectiveSessionID(), o.userID)

	results, err := o.provider.Generate(ctx, payload)
	if err != nil {
		return turn, fmt.Errorf("regeneration failed: %w", err)
	}

	candidates := resultsToCandidates(results, turn.Template)
	if err := o.sessions.AppendCandidates(turnID, candidates); err != nil {
		return turn, err
	}

	o.obs.Log().Info().
		Str("turn", turnID).
		Int("added", len(candidates)).
		Msg("turn extended")

	extended, _ := o.sessions.Turn(turnID)
	return extended, nil
}

// confirmLive probes every asset's fetchable handle and keeps the live
// ones. Probing is advisory: it filters, never blocks.
func (o *Orchestrator) confirmLive(ctx context.Context, assets []asset.Asset) []asset.Asset {
	locations := make([]string, 0, len(assets))
	for _, a := range assets {
		locations = append(locations, a.Handle)
	}
	liveness := o.prober.ProbeAll(ctx, locations)

	kept := make([]asset.Asset, 0, len(assets))
	for _, a := range assets {
		if liveness[a.Handle] {
			kept = append(kept, a)
			continue
		}
		o.obs.Log().Warn().
			Str("asset", a.ID).
			Str("name", a.Name).
			Msg("asset no longer live, dropping from request")
	}
	return kept
}

// usableAssets filters out local assets whose staged handles were
// revoked by a detach since the original turn.
func usableAssets(assets []asset.Asset) []asset.Asset {
	kept := make([]asset.Asset, 0, len(assets))
	for _, a := range assets {
		if a.Kind == asset.SourceLocal && !fileReadable(a.Handle) {
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

func fileReadable(path string) bool {
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return false
	}
	f.Close()
	return true
}

func resultsToCandidates(results []provider.Result, template request.TemplateKind) []session.Candidate {
	out := make([]session.Candidate, 0, len(results))
	for _, r := range results {
		c := session.Candidate{
			ID:        r.ID,
			Template:  template,
			Caption:   r.Caption,
			ImageRefs: append([]string(nil), r.ImageURLs...),
			Tags:      append([]string(nil), r.Tags...),
		}
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if r.Template != "" {
			c.Template = request.TemplateKind(r.Template)
		}
		for _, s := range r.Slides {
			c.Slides = append(c.Slides, session.Slide{Caption: s.Caption, ImageRef: s.ImageURL})
		}
		out = append(out, c)
	}
	return out
}

// fallbackCandidates synthesizes deterministic degraded placeholders so
// a failed turn still renders. Their IDs are derived from the turn, not
// random, so retries of the same failure are stable.
func fallbackCandidates(turnID string, template request.TemplateKind) []session.Candidate {
	if template == request.TemplateCarousel {
		return []session.Candidate{
			{
				ID:       "degraded-" + turnID + "-1",
				Template: template,
				Caption:  "Generation is temporarily unavailable.",
				Slides: []session.Slide{
					{Caption: "Generation is temporarily unavailable."},
					{Caption: "Try again in a moment."},
					{Caption: "Your prompt was kept."},
				},
				Degraded: true,
			},
		}
	}

	return []session.Candidate{
		{
			ID:       "degraded-" + turnID + "-1",
			Template: template,
			Caption:  "Generation is temporarily unavailable.",
			Degraded: true,
		},
		{
			ID:       "degraded-" + turnID + "-2",
			Template: template,
			Caption:  "Try again in a moment.",
			Degraded: true,
		},
	}
}
