package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/atelier/internal/asset"
	"github.com/felixgeelhaar/atelier/internal/observe"
	"github.com/felixgeelhaar/atelier/internal/saved"
	"github.com/felixgeelhaar/atelier/internal/session"
)

// ErrNothingToPost is returned when no candidate survives the save
// phase.
var ErrNothingToPost = errors.New("nothing to post")

// Outcome reports how the save phase went and what happens next.
type Outcome struct {
	Saved   []saved.Record
	Posts   []Post
	Skipped int
	Total   int
	Summary string

	// NeedsAccountSelection is set when connected accounts exist; the
	// caller picks one and completes with PublishTo. Without accounts
	// the posts are handed off directly.
	NeedsAccountSelection bool
	Accounts              []Account
}

// Saga runs the save-then-post flow. Saves are per-candidate and best
// effort: a failed save skips that candidate instead of aborting the
// batch, and only an empty result fails the operation.
type Saga struct {
	obs       *observe.Observer
	cache     *saved.Cache
	publisher Publisher
}

func NewSaga(obs *observe.Observer, cache *saved.Cache, publisher Publisher) *Saga {
	return &Saga{
		obs:       obs,
		cache:     cache,
		publisher: publisher,
	}
}

// PostSelected saves each selected candidate's primary image and
// prepares the posts. Candidates whose image hint cannot be resolved,
// and candidates whose save fails, are skipped with a warning.
func (s *Saga) PostSelected(ctx context.Context, candidates []session.Candidate, assets []asset.Asset) (Outcome, error) {
	ctx, span := s.obs.StartSpan(ctx, "publish.post_selected")
	defer span.End()

	out := Outcome{Total: len(candidates)}

	for _, c := range candidates {
		url := asset.ResolveDisplayURL(c.PrimaryImageRef(), assets, "")
		if url == "" {
			s.obs.Log().Warn().Str("candidate", c.ID).Msg("no resolvable image, skipping")
			out.Skipped++
			continue
		}

		rec, err := s.cache.Save(ctx, url)
		if err != nil {
			s.obs.Log().Warn().Str("candidate", c.ID).Err(err).Msg("save failed, skipping")
			out.Skipped++
			continue
		}

		out.Saved = append(out.Saved, rec)
		out.Posts = append(out.Posts, Post{
			RecordID: rec.RecordID,
			ImageURL: rec.SourceURL,
			Caption:  c.Caption,
			Tags:     append([]string(nil), c.Tags...),
		})
	}

	out.Summary = fmt.Sprintf("%d of %d images saved", len(out.Saved), out.Total)

	if len(out.Saved) == 0 {
		return out, fmt.Errorf("%w: all %d saves failed", ErrNothingToPost, out.Total)
	}

	if s.publisher != nil {
		accounts, err := s.publisher.Accounts(ctx)
		if err != nil {
			s.obs.Log().Warn().Err(err).Msg("account lookup failed, handing off directly")
		}
		if len(accounts) > 0 {
			out.NeedsAccountSelection = true
			out.Accounts = accounts
			return out, nil
		}
	}

	s.obs.Log().Info().Str("summary", out.Summary).Msg("posts handed off")
	return out, nil
}

// PublishTo completes an outcome that paused for account selection.
func (s *Saga) PublishTo(ctx context.Context, accountID string, posts []Post) error {
	if s.publisher == nil {
		return errors.New("no publisher connected")
	}
	if len(posts) == 0 {
		return ErrNothingToPost
	}

	if err := s.publisher.Publish(ctx, accountID, posts); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}

	s.obs.Log().Info().
		Str("account", accountID).
		Int("posts", len(posts)).
		Msg("published")
	return nil
}
