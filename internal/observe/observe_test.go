package observe

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestNew_VerboseLogsInfo(t *testing.T) {
	var buf bytes.Buffer
	obs := New(&buf, true)

	obs.Log().Info().Str("component", "test").Msg("hello")

	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("expected info log in verbose mode, got: %s", buf.String())
	}
}

func TestNew_QuietSuppressesInfo(t *testing.T) {
	var buf bytes.Buffer
	obs := New(&buf, false)

	obs.Log().Info().Msg("should not appear")
	if strings.Contains(buf.String(), "should not appear") {
		t.Errorf("info log leaked in quiet mode: %s", buf.String())
	}

	obs.Log().Warn().Msg("warning shows")
	if !strings.Contains(buf.String(), "warning shows") {
		t.Errorf("expected warning in quiet mode, got: %s", buf.String())
	}
}

func TestNewJSON_OutputsJSON(t *testing.T) {
	var buf bytes.Buffer
	obs := NewJSON(&buf, true)

	obs.Log().Info().Str("key", "value").Msg("structured")

	out := buf.String()
	if !strings.Contains(out, `"key"`) {
		t.Errorf("expected JSON field in output, got: %s", out)
	}
}

func TestStartSpan(t *testing.T) {
	obs := New(&bytes.Buffer{}, false)

	ctx, span := obs.StartSpan(context.Background(), "test-span")
	if ctx == nil {
		t.Fatal("expected non-nil context")
	}
	span.End()
}

func TestClose(t *testing.T) {
	obs := New(&bytes.Buffer{}, false)
	if err := obs.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
