package saved

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/felixgeelhaar/atelier/internal/observe"
)

func silentObserver() *observe.Observer {
	return observe.New(io.Discard, false)
}

// memStore is an in-memory Storage for tests.
type memStore struct {
	kv     map[string]string
	staged map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{kv: make(map[string]string), staged: make(map[string][]byte)}
}

func (m *memStore) SetValue(key, value string) error { m.kv[key] = value; return nil }
func (m *memStore) Value(key string) (string, error) { return m.kv[key], nil }
func (m *memStore) DeleteValue(key string) error     { delete(m.kv, key); return nil }

func (m *memStore) StageAsset(id string, content []byte) (string, error) {
	m.staged[id] = content
	return "mem://" + id, nil
}

func (m *memStore) ReadAsset(id string) ([]byte, error) {
	content, ok := m.staged[id]
	if !ok {
		return nil, fmt.Errorf("not staged: %s", id)
	}
	return content, nil
}

func (m *memStore) RemoveAsset(id string) error { delete(m.staged, id); return nil }
func (m *memStore) Close() error                { return nil }

type failingRemote struct {
	err error
}

func (f *failingRemote) SaveImage(ctx context.Context, sourceURL string) error  { return f.err }
func (f *failingRemote) PromoteImage(ctx context.Context, recordID string) error { return f.err }

func newTestCache(t *testing.T) (*Cache, *time.Time) {
	t.Helper()
	obs := silentObserver()
	c := NewCache(newMemStore(), obs, nil, 15*24*time.Hour)
	clock := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }
	return c, &clock
}

func TestSave_IdempotentByURL(t *testing.T) {
	c, clock := newTestCache(t)

	first, err := c.Save(context.Background(), "https://img.example.com/a.png")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Re-saving days later must not mint a new record or extend the TTL.
	*clock = clock.Add(5 * 24 * time.Hour)
	second, err := c.Save(context.Background(), "https://img.example.com/a.png")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if second.RecordID != first.RecordID {
		t.Errorf("idempotent save minted a new record: %s vs %s", second.RecordID, first.RecordID)
	}
	if !second.ExpiresAt.Equal(first.ExpiresAt) {
		t.Errorf("idempotent save extended the TTL: %s vs %s", second.ExpiresAt, first.ExpiresAt)
	}

	records, _ := c.List()
	if len(records) != 1 {
		t.Errorf("expected 1 record, got %d", len(records))
	}
}

func TestSave_PersistsAcrossInstances(t *testing.T) {
	st := newMemStore()
	obs := silentObserver()

	c1 := NewCache(st, obs, nil, 15*24*time.Hour)
	rec, err := c1.Save(context.Background(), "https://img.example.com/a.png")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	c2 := NewCache(st, obs, nil, 15*24*time.Hour)
	records, err := c2.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 1 || records[0].RecordID != rec.RecordID {
		t.Errorf("record did not survive a restart: %+v", records)
	}
}

func TestSweep_EvictsAfterTTL(t *testing.T) {
	c, clock := newTestCache(t)

	rec, err := c.Save(context.Background(), "https://img.example.com/a.png")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Inside the TTL nothing is evicted.
	*clock = clock.Add(14 * 24 * time.Hour)
	evicted, err := c.SweepExpired()
	if err != nil {
		t.Fatalf("SweepExpired failed: %v", err)
	}
	if len(evicted) != 0 {
		t.Errorf("premature eviction: %+v", evicted)
	}

	// Two days later the record is past its 15-day TTL.
	*clock = clock.Add(2 * 24 * time.Hour)
	evicted, err = c.SweepExpired()
	if err != nil {
		t.Fatalf("SweepExpired failed: %v", err)
	}
	if len(evicted) != 1 || evicted[0].RecordID != rec.RecordID {
		t.Errorf("expected the record evicted, got %+v", evicted)
	}

	records, _ := c.List()
	if len(records) != 0 {
		t.Errorf("evicted record still listed: %+v", records)
	}
}

func TestSweep_EvictsAtExactExpiryInstant(t *testing.T) {
	c, clock := newTestCache(t)

	rec, err := c.Save(context.Background(), "https://img.example.com/a.png")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// A sweep landing exactly on expiresAt evicts; expiry is inclusive.
	*clock = rec.ExpiresAt
	evicted, err := c.SweepExpired()
	if err != nil {
		t.Fatalf("SweepExpired failed: %v", err)
	}
	if len(evicted) != 1 || evicted[0].RecordID != rec.RecordID {
		t.Errorf("expected eviction at the expiry instant, got %+v", evicted)
	}
}

func TestPromote_ExemptsFromSweep(t *testing.T) {
	c, clock := newTestCache(t)

	rec, err := c.Save(context.Background(), "https://img.example.com/a.png")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	promoted, err := c.PromoteToPermanent(context.Background(), rec.RecordID)
	if err != nil {
		t.Fatalf("PromoteToPermanent failed: %v", err)
	}
	if !promoted.IsPermanent {
		t.Error("record not marked permanent")
	}

	// Well past the TTL, the permanent record survives the sweep.
	*clock = clock.Add(20 * 24 * time.Hour)
	evicted, err := c.SweepExpired()
	if err != nil {
		t.Fatalf("SweepExpired failed: %v", err)
	}
	if len(evicted) != 0 {
		t.Errorf("permanent record evicted: %+v", evicted)
	}

	records, _ := c.List()
	if len(records) != 1 || !records[0].IsPermanent {
		t.Errorf("permanent record lost: %+v", records)
	}

	// Promotion is one way and idempotent.
	again, err := c.PromoteToPermanent(context.Background(), rec.RecordID)
	if err != nil || !again.IsPermanent {
		t.Errorf("re-promotion should be a no-op: %+v %v", again, err)
	}
}

func TestPromote_UnknownRecord(t *testing.T) {
	c, _ := newTestCache(t)
	if _, err := c.PromoteToPermanent(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown record")
	}
}

func TestUpcomingExpirations(t *testing.T) {
	c, clock := newTestCache(t)

	soon, _ := c.Save(context.Background(), "https://img.example.com/soon.png")

	*clock = clock.Add(10 * 24 * time.Hour)
	later, _ := c.Save(context.Background(), "https://img.example.com/later.png")

	permanent, _ := c.Save(context.Background(), "https://img.example.com/keep.png")
	if _, err := c.PromoteToPermanent(context.Background(), permanent.RecordID); err != nil {
		t.Fatalf("PromoteToPermanent failed: %v", err)
	}

	// The first record now has 5 days left; the second has 15.
	upcoming, err := c.UpcomingExpirations(7)
	if err != nil {
		t.Fatalf("UpcomingExpirations failed: %v", err)
	}
	if len(upcoming) != 1 || upcoming[0].RecordID != soon.RecordID {
		t.Errorf("expected only the soon-expiring record, got %+v", upcoming)
	}

	upcoming, _ = c.UpcomingExpirations(30)
	if len(upcoming) != 2 {
		t.Fatalf("expected both transient records, got %d", len(upcoming))
	}
	if upcoming[0].RecordID != soon.RecordID || upcoming[1].RecordID != later.RecordID {
		t.Error("upcoming expirations not sorted soonest first")
	}
}

func TestSave_RemoteFailureAborts(t *testing.T) {
	st := newMemStore()
	c := NewCache(st, silentObserver(), &failingRemote{err: errors.New("backend down")}, 15*24*time.Hour)

	if _, err := c.Save(context.Background(), "https://img.example.com/a.png"); err == nil {
		t.Fatal("expected remote failure to surface")
	}

	records, _ := c.List()
	if len(records) != 0 {
		t.Errorf("failed save must not persist a record: %+v", records)
	}
}

func TestService(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)
	}))
	defer srv.Close()

	svc, err := NewService("secret", srv.URL)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	svc.WithIdentity("user-1", "ws-1")

	if err := svc.SaveImage(context.Background(), "https://img.example.com/a.png"); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}
	if gotPath != "/v1/images/save" {
		t.Errorf("unexpected path: %s", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("unexpected auth header: %s", gotAuth)
	}
	if gotBody["sourceUrl"] != "https://img.example.com/a.png" {
		t.Errorf("unexpected body: %v", gotBody)
	}
	if gotBody["userId"] != "user-1" || gotBody["workspaceId"] != "ws-1" {
		t.Errorf("identity not sent: %v", gotBody)
	}

	if err := svc.PromoteImage(context.Background(), "rec-1"); err != nil {
		t.Fatalf("PromoteImage failed: %v", err)
	}
	if gotPath != "/v1/images/promote" || gotBody["recordId"] != "rec-1" {
		t.Errorf("unexpected promote request: %s %v", gotPath, gotBody)
	}
}

func TestService_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	svc, _ := NewService("", srv.URL)
	if err := svc.SaveImage(context.Background(), "https://img.example.com/a.png"); err == nil {
		t.Error("expected error for 403 response")
	}
}

func TestSweeper_SweepsOnStart(t *testing.T) {
	c, clock := newTestCache(t)
	if _, err := c.Save(context.Background(), "https://img.example.com/a.png"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	*clock = clock.Add(16 * 24 * time.Hour)

	s := NewSweeper(c, silentObserver())
	if err := s.Start("@hourly"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	records, _ := c.List()
	if len(records) != 0 {
		t.Errorf("expected the startup sweep to evict, got %+v", records)
	}
}

func TestSweeper_RejectsBadSchedule(t *testing.T) {
	c, _ := newTestCache(t)
	s := NewSweeper(c, silentObserver())
	if err := s.Start("not a schedule"); err == nil {
		t.Error("expected error for invalid schedule")
	}
}
