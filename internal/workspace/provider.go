package workspace

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Provider hands out the current workspace profile. Long-lived chat
// sessions read through it so a profile edit on disk is picked up without
// restarting.
type Provider struct {
	mu      sync.RWMutex
	path    string
	profile Profile
}

// NewProvider loads the profile at path and returns a provider for it.
func NewProvider(path string) (*Provider, error) {
	p, err := LoadProfile(path)
	if err != nil {
		return nil, err
	}
	return &Provider{path: path, profile: *p}, nil
}

// NewStaticProvider wraps a fixed profile, for callers without a file.
func NewStaticProvider(p Profile) *Provider {
	return &Provider{profile: p}
}

// Current returns a snapshot of the active profile.
func (pr *Provider) Current() Profile {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	return pr.profile
}

// Reload re-reads the profile from disk. The previous profile stays
// active if the reload fails.
func (pr *Provider) Reload() error {
	if pr.path == "" {
		return nil
	}
	p, err := LoadProfile(pr.path)
	if err != nil {
		return fmt.Errorf("profile reload failed: %w", err)
	}
	pr.mu.Lock()
	pr.profile = *p
	pr.mu.Unlock()
	return nil
}

// Watch reloads the profile whenever the file changes, until ctx is done.
// onReload is invoked after each attempt with the reload error, if any;
// it may be nil.
func (pr *Provider) Watch(ctx context.Context, onReload func(error)) error {
	if pr.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	// Watch the directory: editors replace files on save, which drops
	// a watch on the file itself.
	if err := watcher.Add(filepath.Dir(pr.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch profile dir: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(pr.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				err := pr.Reload()
				if onReload != nil {
					onReload(err)
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return nil
}
