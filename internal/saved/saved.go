// Package saved keeps durable records of saved generated images.
// Records live in the local store under a single key, carry a TTL and
// survive restarts; permanent records are exempt from expiry.
package saved

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/atelier/internal/observe"
	"github.com/felixgeelhaar/atelier/internal/store"
)

// storageKey is the key-value slot holding the full record list as a
// JSON array.
const storageKey = "saved_images"

// Record is one saved image. The JSON field names are the persisted
// wire format and must stay stable across versions.
type Record struct {
	RecordID    string    `json:"recordId"`
	SourceURL   string    `json:"sourceUrl"`
	SavedAt     time.Time `json:"savedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
	IsPermanent bool      `json:"isPermanent"`
}

// Expired reports whether the record is past its TTL. The boundary is
// inclusive: a record is expired the instant expiresAt is reached.
// Permanent records never expire.
func (r Record) Expired(now time.Time) bool {
	return !r.IsPermanent && !r.ExpiresAt.After(now)
}

// Remote is the optional backing service that mirrors save and promote
// operations. A nil remote keeps everything local.
type Remote interface {
	SaveImage(ctx context.Context, sourceURL string) error
	PromoteImage(ctx context.Context, recordID string) error
}

// Cache manages the saved-image records.
type Cache struct {
	mu     sync.Mutex
	store  store.Storage
	obs    *observe.Observer
	remote Remote
	ttl    time.Duration

	now func() time.Time
}

func NewCache(st store.Storage, obs *observe.Observer, remote Remote, ttl time.Duration) *Cache {
	return NewCacheWithClock(st, obs, remote, ttl, time.Now)
}

// NewCacheWithClock is NewCache with an injectable clock, for tests
// that need to move time past the TTL.
func NewCacheWithClock(st store.Storage, obs *observe.Observer, remote Remote, ttl time.Duration, now func() time.Time) *Cache {
	return &Cache{
		store:  st,
		obs:    obs,
		remote: remote,
		ttl:    ttl,
		now:    now,
	}
}

// Save records a source URL. Saving is idempotent by URL: an existing
// record is returned unchanged, and in particular its TTL is not
// extended. A remote failure aborts the save.
func (c *Cache) Save(ctx context.Context, sourceURL string) (Record, error) {
	if sourceURL == "" {
		return Record{}, fmt.Errorf("source URL is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.load()
	if err != nil {
		return Record{}, err
	}

	for _, r := range records {
		if r.SourceURL == sourceURL {
			return r, nil
		}
	}

	if c.remote != nil {
		if err := c.remote.SaveImage(ctx, sourceURL); err != nil {
			return Record{}, fmt.Errorf("remote save failed: %w", err)
		}
	}

	now := c.now()
	rec := Record{
		RecordID:  uuid.NewString(),
		SourceURL: sourceURL,
		SavedAt:   now,
		ExpiresAt: now.Add(c.ttl),
	}
	records = append(records, rec)

	if err := c.persist(records); err != nil {
		return Record{}, err
	}

	c.obs.Log().Info().
		Str("record", rec.RecordID).
		Str("expires", rec.ExpiresAt.Format(time.RFC3339)).
		Msg("image saved")
	return rec, nil
}

// PromoteToPermanent exempts a record from expiry. Promotion is one
// way: there is no demotion, and promoting an already permanent record
// is a no-op.
func (c *Cache) PromoteToPermanent(ctx context.Context, recordID string) (Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.load()
	if err != nil {
		return Record{}, err
	}

	for i, r := range records {
		if r.RecordID != recordID {
			continue
		}
		if r.IsPermanent {
			return r, nil
		}

		if c.remote != nil {
			if err := c.remote.PromoteImage(ctx, recordID); err != nil {
				return Record{}, fmt.Errorf("remote promote failed: %w", err)
			}
		}

		records[i].IsPermanent = true
		if err := c.persist(records); err != nil {
			return Record{}, err
		}
		return records[i], nil
	}

	return Record{}, fmt.Errorf("record not found: %s", recordID)
}

// SweepExpired evicts every record past its TTL and returns the
// evicted set. Permanent records are never touched.
func (c *Cache) SweepExpired() ([]Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.load()
	if err != nil {
		return nil, err
	}

	now := c.now()
	kept := records[:0]
	var evicted []Record
	for _, r := range records {
		if r.Expired(now) {
			evicted = append(evicted, r)
			continue
		}
		kept = append(kept, r)
	}

	if len(evicted) == 0 {
		return nil, nil
	}
	if err := c.persist(kept); err != nil {
		return nil, err
	}

	c.obs.Log().Info().
		Int("evicted", len(evicted)).
		Int("kept", len(kept)).
		Msg("expired saves evicted")
	return evicted, nil
}

// UpcomingExpirations lists non-permanent records that will expire
// within the given number of days, soonest first.
func (c *Cache) UpcomingExpirations(withinDays int) ([]Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.load()
	if err != nil {
		return nil, err
	}

	now := c.now()
	horizon := now.Add(time.Duration(withinDays) * 24 * time.Hour)

	var out []Record
	for _, r := range records {
		if r.IsPermanent || r.Expired(now) {
			continue
		}
		if !r.ExpiresAt.After(horizon) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].ExpiresAt.Before(out[b].ExpiresAt)
	})
	return out, nil
}

// List returns every record, saved order preserved.
func (c *Cache) List() ([]Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load()
}

func (c *Cache) load() ([]Record, error) {
	raw, err := c.store.Value(storageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read saved records: %w", err)
	}
	if raw == "" {
		return nil, nil
	}

	var records []Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("failed to decode saved records: %w", err)
	}
	return records, nil
}

func (c *Cache) persist(records []Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode saved records: %w", err)
	}
	if err := c.store.SetValue(storageKey, string(data)); err != nil {
		return fmt.Errorf("failed to persist saved records: %w", err)
	}
	return nil
}
