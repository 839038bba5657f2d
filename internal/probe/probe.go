// Package probe answers one question: is this asset location still
// backed by a decodable image? Generated results silently expire
// server-side, so anything offered for reuse as a generation input is
// probed first instead of trusted.
package probe

import (
	"context"
	"image"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	// Decoders for the formats the studio produces.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

type Prober struct {
	client  *http.Client
	timeout time.Duration
}

// New creates a Prober. Each individual probe is time-boxed by timeout.
func New(timeout time.Duration) *Prober {
	return &Prober{
		client:  &http.Client{},
		timeout: timeout,
	}
}

// Probe reports whether the location resolves to decodable image bytes.
// It never returns an error: failures, non-2xx responses, undecodable
// bodies and timeouts all count as "not live".
func (p *Prober) Probe(ctx context.Context, location string) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		return probeFile(location)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false
	}

	// Decoding the header is enough to prove liveness; the body is not
	// fully consumed.
	_, _, err = image.DecodeConfig(resp.Body)
	return err == nil
}

// ProbeAll probes every location concurrently. Each probe is
// independently time-boxed, so the aggregate never waits longer than
// the slowest individual timeout.
func (p *Prober) ProbeAll(ctx context.Context, locations []string) map[string]bool {
	// Seed every unique location up front so the goroutines below are
	// the only writers, all serialized by mu.
	results := make(map[string]bool, len(locations))
	for _, loc := range locations {
		results[loc] = false
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for loc := range results {
		wg.Add(1)
		go func(loc string) {
			defer wg.Done()
			live := p.Probe(ctx, loc)
			mu.Lock()
			results[loc] = live
			mu.Unlock()
		}(loc)
	}
	wg.Wait()

	return results
}

func probeFile(path string) bool {
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return false
	}
	defer f.Close()

	_, _, err = image.DecodeConfig(f)
	return err == nil
}
