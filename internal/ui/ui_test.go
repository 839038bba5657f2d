package ui

import (
	"testing"
)

func TestSilentUI(t *testing.T) {
	u := SilentUI{}
	// Should not panic
	u.UpdateStatus("generating")
	u.ShowTranscript("you: make a coffee promo")
	u.Log("dispatched")
}

func TestSilentUI_ImplementsInterface(t *testing.T) {
	var _ UI = SilentUI{}
	var _ UI = &SilentUI{}
}

// MockUI implements UI interface for testing
type MockUI struct {
	StatusUpdates []string
	Transcript    []string
	LogMessages   []string
}

func (m *MockUI) UpdateStatus(status string)  { m.StatusUpdates = append(m.StatusUpdates, status) }
func (m *MockUI) ShowTranscript(entry string) { m.Transcript = append(m.Transcript, entry) }
func (m *MockUI) Log(msg string)              { m.LogMessages = append(m.LogMessages, msg) }

func TestMockUI(t *testing.T) {
	u := &MockUI{}

	u.UpdateStatus("generating")
	u.UpdateStatus("done")
	u.ShowTranscript("you: hello")
	u.Log("dispatched")

	if len(u.StatusUpdates) != 2 {
		t.Errorf("expected 2 status updates, got %d", len(u.StatusUpdates))
	}
	if u.StatusUpdates[1] != "done" {
		t.Errorf("expected 'done', got %q", u.StatusUpdates[1])
	}
	if len(u.Transcript) != 1 || u.Transcript[0] != "you: hello" {
		t.Errorf("unexpected transcript: %v", u.Transcript)
	}
	if len(u.LogMessages) != 1 {
		t.Errorf("expected 1 log message, got %d", len(u.LogMessages))
	}
}

func TestMockUI_ImplementsInterface(t *testing.T) {
	var _ UI = &MockUI{}
}
