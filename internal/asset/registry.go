package asset

import (
	"fmt"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/atelier/internal/policy"
	"github.com/felixgeelhaar/atelier/internal/store"
)

// RawFile is a user-supplied binary before it becomes an Asset.
type RawFile struct {
	Name string
	Data []byte
}

// Registry owns Asset lifetimes. It is the only component that stages
// or releases local binary handles; session-scoped, nothing persists
// across runs.
type Registry struct {
	mu       sync.Mutex
	store    store.Storage
	guard    *policy.Guard
	assets   []Asset
	onDetach func(assetID string)
}

func NewRegistry(s store.Storage, g *policy.Guard) *Registry {
	return &Registry{store: s, guard: g}
}

// SetOnDetach registers a hook invoked after an asset is removed, so the
// owner of candidate bindings can prune references to it.
func (r *Registry) SetOnDetach(fn func(assetID string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDetach = fn
}

// Attach registers the given files as local-binary assets. It never
// fails: unattachable inputs (disallowed type, staging error, over
// budget) are skipped and reported via the skipped count.
func (r *Registry) Attach(files []RawFile) (added []Asset, skipped int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, f := range files {
		if v := r.guard.CheckAttachmentCount(len(r.assets) + 1); v != nil {
			skipped++
			continue
		}
		if v := r.guard.CheckAttachment(f.Name); v != nil {
			skipped++
			continue
		}

		id := uuid.NewString()
		staged, err := r.store.StageAsset(id+filepath.Ext(f.Name), f.Data)
		if err != nil {
			skipped++
			continue
		}

		a := Asset{
			ID:     id,
			Kind:   SourceLocal,
			Handle: staged,
			Name:   filepath.Base(f.Name),
			Size:   int64(len(f.Data)),
			MIME:   http.DetectContentType(f.Data),
		}
		r.assets = append(r.assets, a)
		added = append(added, a)
	}
	return added, skipped
}

// AttachURL registers a remote asset by reference.
func (r *Registry) AttachURL(url, name string) Asset {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := Asset{
		ID:     uuid.NewString(),
		Kind:   SourceRemote,
		Handle: url,
		Name:   name,
	}
	r.assets = append(r.assets, a)
	return a
}

// Detach removes an asset. Staged local handles are released; failing
// to release is not an error for the caller, the asset is gone either way.
func (r *Registry) Detach(assetID string) error {
	r.mu.Lock()

	idx := -1
	for i, a := range r.assets {
		if a.ID == assetID {
			idx = i
			break
		}
	}
	if idx == -1 {
		r.mu.Unlock()
		return fmt.Errorf("asset not found: %s", assetID)
	}

	a := r.assets[idx]
	r.assets = append(r.assets[:idx], r.assets[idx+1:]...)
	if a.Kind == SourceLocal {
		_ = r.store.RemoveAsset(filepath.Base(a.Handle))
	}
	hook := r.onDetach
	r.mu.Unlock()

	if hook != nil {
		hook(assetID)
	}
	return nil
}

// List returns the assets in attachment order.
func (r *Registry) List() []Asset {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Asset, len(r.assets))
	copy(out, r.assets)
	return out
}

// Get looks up a single asset by id.
func (r *Registry) Get(assetID string) (Asset, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.assets {
		if a.ID == assetID {
			return a, true
		}
	}
	return Asset{}, false
}

// Clear releases every asset; used on session teardown.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.assets {
		if a.Kind == SourceLocal {
			_ = r.store.RemoveAsset(filepath.Base(a.Handle))
		}
	}
	r.assets = nil
}
