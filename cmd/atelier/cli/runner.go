package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/atelier/internal/asset"
	"github.com/felixgeelhaar/atelier/internal/generate"
	"github.com/felixgeelhaar/atelier/internal/observe"
	"github.com/felixgeelhaar/atelier/internal/publish"
	"github.com/felixgeelhaar/atelier/internal/request"
	"github.com/felixgeelhaar/atelier/internal/session"
	"github.com/felixgeelhaar/atelier/internal/ui"
)

const placeholderImage = "(image unavailable)"

// Runner drives one studio session: prompts in, formatted candidate
// lists out, plus the slash commands for assets, regeneration and
// posting.
type Runner struct {
	Observer     *observe.Observer
	Orchestrator *generate.Orchestrator
	Sessions     *session.Store
	Registry     *asset.Registry
	Saga         *publish.Saga
	UI           ui.UI

	sessionID  string
	lastTurnID string

	// Set when a post paused for account selection.
	pendingPosts    []publish.Post
	pendingAccounts []publish.Account
}

func NewRunner(obs *observe.Observer, orch *generate.Orchestrator, sessions *session.Store, registry *asset.Registry, saga *publish.Saga, u ui.UI) *Runner {
	if u == nil {
		u = ui.SilentUI{}
	}
	return &Runner{
		Observer:     obs,
		Orchestrator: orch,
		Sessions:     sessions,
		Registry:     registry,
		Saga:         saga,
		UI:           u,
		sessionID:    sessions.StartSession(),
	}
}

// AttachFlagsAssets attaches the files and URLs given on the command
// line before the first prompt runs.
func (r *Runner) AttachFlagsAssets(paths, urls []string) {
	var files []asset.RawFile
	for _, p := range paths {
		data, err := os.ReadFile(p) // #nosec G304
		if err != nil {
			r.Observer.Log().Warn().Str("path", p).Err(err).Msg("cannot read asset, skipping")
			continue
		}
		files = append(files, asset.RawFile{Name: p, Data: data})
	}
	added, skipped := r.Registry.Attach(files)
	if skipped > 0 {
		r.Observer.Log().Warn().Int("skipped", skipped).Msg("some assets were not attachable")
	}
	for _, u := range urls {
		r.Registry.AttachURL(u, u)
	}
	if len(added)+len(urls) > 0 {
		r.Observer.Log().Info().Int("attached", len(added)+len(urls)).Msg("assets ready")
	}
}

// Generate runs one prompt and returns the rendered result.
func (r *Runner) Generate(ctx context.Context, prompt string, template request.TemplateKind, aspect string, confirm bool) (string, error) {
	r.UI.UpdateStatus("Generating...")
	turn, err := r.Orchestrator.Generate(ctx, r.sessionID, prompt, template, aspect, r.Registry.List(), confirm)
	if err != nil && turn.ID == "" {
		r.UI.UpdateStatus("Rejected")
		return "", err
	}

	r.lastTurnID = turn.ID
	if turn.State == session.TurnFallback {
		r.UI.UpdateStatus("Degraded")
		return r.formatTurn(turn), err
	}

	r.UI.UpdateStatus("Ready")
	return r.formatTurn(turn), nil
}

// Handle dispatches one chat input: a slash command or a prompt.
func (r *Runner) Handle(ctx context.Context, input string) string {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		out, err := r.Generate(ctx, input, request.TemplateKind(templateName), aspectRatio, confirmAssets)
		if err != nil && out == "" {
			return "error: " + err.Error()
		}
		return out
	}

	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/help":
		return helpText
	case "/attach":
		return r.cmdAttach(args)
	case "/url":
		return r.cmdAttachURL(args)
	case "/assets":
		return r.cmdAssets()
	case "/detach":
		return r.cmdDetach(args)
	case "/regen":
		return r.cmdRegenerate(ctx)
	case "/post":
		return r.cmdPost(ctx, args)
	case "/account":
		return r.cmdAccount(ctx, args)
	case "/sessions":
		return r.cmdSessions()
	case "/new":
		r.sessionID = r.Sessions.StartSession()
		r.lastTurnID = ""
		return "started a new session"
	default:
		return "unknown command " + cmd + ", try /help"
	}
}

const helpText = `commands:
  /attach <path>   attach a local image
  /url <url>       attach a remote image
  /assets          list attached assets
  /detach <id>     remove an attached asset
  /regen           regenerate the last turn
  /post <n,...>    save and post the numbered candidates of the last turn
  /account <n>     pick an account for a pending post
  /sessions        list session threads
  /new             start a fresh session`

func (r *Runner) cmdAttach(args []string) string {
	if len(args) != 1 {
		return "usage: /attach <path>"
	}
	data, err := os.ReadFile(args[0]) // #nosec G304
	if err != nil {
		return "cannot read " + args[0] + ": " + err.Error()
	}
	added, skipped := r.Registry.Attach([]asset.RawFile{{Name: args[0], Data: data}})
	if skipped > 0 {
		return "not attachable: " + args[0]
	}
	return "attached " + added[0].Name + " (" + added[0].ID + ")"
}

func (r *Runner) cmdAttachURL(args []string) string {
	if len(args) == 0 {
		return "usage: /url <url>"
	}
	a := r.Registry.AttachURL(args[0], args[0])
	return "attached " + a.Handle + " (" + a.ID + ")"
}

func (r *Runner) cmdAssets() string {
	assets := r.Registry.List()
	if len(assets) == 0 {
		return "no assets attached"
	}
	var b strings.Builder
	for _, a := range assets {
		fmt.Fprintf(&b, "%s  %-16s  %s\n", a.ID, a.Kind, a.Name)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *Runner) cmdDetach(args []string) string {
	if len(args) != 1 {
		return "usage: /detach <id>"
	}
	if err := r.Registry.Detach(args[0]); err != nil {
		return err.Error()
	}
	return "detached " + args[0]
}

func (r *Runner) cmdRegenerate(ctx context.Context) string {
	if r.lastTurnID == "" {
		return "nothing to regenerate yet"
	}
	r.UI.UpdateStatus("Regenerating...")
	turn, err := r.Orchestrator.Regenerate(ctx, r.lastTurnID)
	if err != nil {
		r.UI.UpdateStatus("Ready")
		return "regeneration failed: " + err.Error()
	}
	r.UI.UpdateStatus("Ready")
	return r.formatTurn(turn)
}

func (r *Runner) cmdPost(ctx context.Context, args []string) string {
	if r.lastTurnID == "" {
		return "nothing to post yet"
	}
	turn, ok := r.Sessions.Turn(r.lastTurnID)
	if !ok {
		return "nothing to post yet"
	}

	selected, err := selectCandidates(turn.Candidates, args)
	if err != nil {
		return err.Error()
	}

	out, err := r.Saga.PostSelected(ctx, selected, turn.InputAssets)
	if err != nil {
		return "post failed: " + err.Error()
	}

	if out.NeedsAccountSelection {
		r.pendingPosts = out.Posts
		r.pendingAccounts = out.Accounts
		var b strings.Builder
		fmt.Fprintf(&b, "%s; pick an account with /account <n>:\n", out.Summary)
		for i, acc := range out.Accounts {
			fmt.Fprintf(&b, "  %d. %s (%s)\n", i+1, acc.Name, acc.Network)
		}
		return strings.TrimRight(b.String(), "\n")
	}
	return out.Summary + "; handed off for posting"
}

func (r *Runner) cmdAccount(ctx context.Context, args []string) string {
	if len(r.pendingPosts) == 0 {
		return "no post waiting for an account"
	}
	if len(args) != 1 {
		return "usage: /account <n>"
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(r.pendingAccounts) {
		return "pick a number between 1 and " + strconv.Itoa(len(r.pendingAccounts))
	}

	acc := r.pendingAccounts[n-1]
	if err := r.Saga.PublishTo(ctx, acc.ID, r.pendingPosts); err != nil {
		return "publish failed: " + err.Error()
	}
	count := len(r.pendingPosts)
	r.pendingPosts = nil
	r.pendingAccounts = nil
	return fmt.Sprintf("published %d post(s) to %s", count, acc.Name)
}

func (r *Runner) cmdSessions() string {
	summaries := r.Sessions.Sessions()
	if len(summaries) == 0 {
		return "no sessions yet"
	}
	var b strings.Builder
	for _, s := range summaries {
		fmt.Fprintf(&b, "%s  %2d turn(s)  %s\n", s.SessionID, s.TurnCount, truncate(s.Latest.Prompt, 48))
	}
	return strings.TrimRight(b.String(), "\n")
}

// selectCandidates resolves 1-based selectors like "1,3" against the
// turn's candidate list. No selector means all of them.
func selectCandidates(candidates []session.Candidate, args []string) ([]session.Candidate, error) {
	if len(args) == 0 {
		return candidates, nil
	}

	var out []session.Candidate
	for _, part := range strings.Split(strings.Join(args, ","), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 || n > len(candidates) {
			return nil, fmt.Errorf("no candidate %q, the last turn has %d", part, len(candidates))
		}
		out = append(out, candidates[n-1])
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no candidates selected")
	}
	return out, nil
}

func (r *Runner) formatTurn(turn session.Turn) string {
	var b strings.Builder
	if turn.State == session.TurnFallback {
		b.WriteString("generation is degraded; placeholders below\n")
	}

	for i, c := range turn.Candidates {
		fmt.Fprintf(&b, "%d. %s\n", i+1, candidateLine(c, turn.InputAssets))
		for j, s := range c.Slides {
			url := asset.ResolveDisplayURL(s.ImageRef, turn.InputAssets, placeholderImage)
			fmt.Fprintf(&b, "   slide %d: %s  %s\n", j+1, s.Caption, url)
		}
		if len(c.Tags) > 0 {
			fmt.Fprintf(&b, "   #%s\n", strings.Join(c.Tags, " #"))
		}
	}
	if n := len(turn.DownloadableCandidates()); n > 0 {
		fmt.Fprintf(&b, "%d downloadable, /post <n> to save and post\n", n)
	}
	return strings.TrimRight(b.String(), "\n")
}

func candidateLine(c session.Candidate, assets []asset.Asset) string {
	url := asset.ResolveDisplayURL(c.PrimaryImageRef(), assets, placeholderImage)
	caption := c.Caption
	if caption == "" {
		caption = "(no caption)"
	}
	return caption + "  " + url
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
