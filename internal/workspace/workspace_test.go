package workspace

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeProfile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write profile: %v", err)
	}
	return path
}

func TestLoadProfile_JSON(t *testing.T) {
	path := writeProfile(t, "profile.json", `{
		"name": "Bloom Coffee",
		"industry": "food & beverage",
		"audience": "young professionals",
		"default_logo": "https://cdn.example.com/bloom/logo.png"
	}`)

	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}
	if p.Name != "Bloom Coffee" {
		t.Errorf("expected name, got %q", p.Name)
	}
	if p.DefaultLogo != "https://cdn.example.com/bloom/logo.png" {
		t.Errorf("expected logo, got %q", p.DefaultLogo)
	}
}

func TestLoadProfile_YAML(t *testing.T) {
	path := writeProfile(t, "profile.yaml", "name: Bloom Coffee\nindustry: food\naudience: commuters\n")

	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}
	if p.Industry != "food" {
		t.Errorf("expected industry, got %q", p.Industry)
	}
}

func TestLoadProfile_Errors(t *testing.T) {
	if _, err := LoadProfile("/nonexistent/profile.json"); err == nil {
		t.Error("expected error for missing file")
	}

	badExt := writeProfile(t, "profile.toml", "name = 'x'")
	if _, err := LoadProfile(badExt); err == nil {
		t.Error("expected error for unsupported format")
	}

	badJSON := writeProfile(t, "broken.json", "{not json")
	if _, err := LoadProfile(badJSON); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestValidate(t *testing.T) {
	res := Validate(Profile{})
	if res.Valid {
		t.Error("expected invalid result for empty profile")
	}

	res = Validate(Profile{Name: "Bloom"})
	if !res.Valid {
		t.Errorf("expected valid result, errors: %v", res.Errors)
	}
	if len(res.Warnings) == 0 {
		t.Error("expected warnings for sparse profile")
	}
}

func TestContextJSON(t *testing.T) {
	p := Profile{Name: "Bloom", Industry: "food"}
	ctx := ContextJSON(p)

	var round Profile
	if err := json.Unmarshal([]byte(ctx), &round); err != nil {
		t.Fatalf("ContextJSON produced invalid JSON: %v", err)
	}
	if round.Name != "Bloom" {
		t.Errorf("expected round-tripped name, got %q", round.Name)
	}
	if !strings.Contains(ctx, "food") {
		t.Errorf("expected industry in context, got %s", ctx)
	}
}

func TestProvider_ReloadAndCurrent(t *testing.T) {
	path := writeProfile(t, "profile.json", `{"name": "Before"}`)

	pr, err := NewProvider(path)
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	if pr.Current().Name != "Before" {
		t.Errorf("expected initial profile, got %q", pr.Current().Name)
	}

	if err := os.WriteFile(path, []byte(`{"name": "After"}`), 0600); err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}
	if err := pr.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if pr.Current().Name != "After" {
		t.Errorf("expected reloaded profile, got %q", pr.Current().Name)
	}

	// A broken rewrite keeps the previous profile active.
	if err := os.WriteFile(path, []byte("{broken"), 0600); err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}
	if err := pr.Reload(); err == nil {
		t.Error("expected reload error for broken profile")
	}
	if pr.Current().Name != "After" {
		t.Errorf("broken reload replaced the profile: %q", pr.Current().Name)
	}
}

func TestWatch_ReloadsOnRewrite(t *testing.T) {
	path := writeProfile(t, "profile.json", `{"name": "Before"}`)

	pr, err := NewProvider(path)
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := pr.Watch(ctx, nil); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := os.WriteFile(path, []byte(`{"name": "After"}`), 0600); err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}

	// The watcher reloads asynchronously; poll until it lands.
	deadline := time.Now().Add(5 * time.Second)
	for pr.Current().Name != "After" {
		if time.Now().After(deadline) {
			t.Fatalf("watcher never picked up the rewrite, still %q", pr.Current().Name)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestWatch_StaticProviderIsNoOp(t *testing.T) {
	pr := NewStaticProvider(Profile{Name: "Fixed"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := pr.Watch(ctx, nil); err != nil {
		t.Fatalf("Watch on static provider failed: %v", err)
	}
}

func TestStaticProvider(t *testing.T) {
	pr := NewStaticProvider(Profile{Name: "Fixed"})
	if pr.Current().Name != "Fixed" {
		t.Error("static provider lost its profile")
	}
	if err := pr.Reload(); err != nil {
		t.Errorf("Reload on static provider failed: %v", err)
	}
}
