package ui

type UI interface {
	UpdateStatus(status string)
	ShowTranscript(entry string)
	Log(msg string)
}

type SilentUI struct{}

func (s SilentUI) UpdateStatus(status string)  {}
func (s SilentUI) ShowTranscript(entry string) {}
func (s SilentUI) Log(msg string)              {}
