package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type TUI struct {
	program *tea.Program
}

func NewTUI(p *tea.Program) *TUI {
	return &TUI{program: p}
}

func (t *TUI) UpdateStatus(status string) {
	t.program.Send(StatusMsg(status))
}

func (t *TUI) ShowTranscript(entry string) {
	t.program.Send(TranscriptMsg(entry))
}

func (t *TUI) Log(msg string) {
	t.program.Send(LogMsg(msg))
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB454"))
)

type TranscriptMsg string
type StatusMsg string
type LogMsg string
type BusyMsg bool

// Model is the chat loop: a scrolling transcript above a prompt line.
// OnSubmit runs the submitted prompt off the update loop and feeds the
// resulting message back in; a TranscriptMsg clears the busy state.
type Model struct {
	Title    string
	Status   string
	Entries  []string
	Input    textinput.Model
	Viewport viewport.Model
	Spinner  spinner.Model
	Busy     bool
	Ready    bool
	Quitting bool
	Width    int
	Height   int

	OnSubmit func(prompt string) tea.Msg
}

func NewModel(title string, onSubmit func(prompt string) tea.Msg) Model {
	ti := textinput.New()
	ti.Placeholder = "Describe the creative you want..."
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		Title:    title,
		Status:   "Ready",
		Input:    ti,
		Spinner:  sp,
		OnSubmit: onSubmit,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.Quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			prompt := strings.TrimSpace(m.Input.Value())
			if prompt == "" || m.Busy || m.OnSubmit == nil {
				break
			}
			m.Input.Reset()
			m.appendEntry("you: " + prompt)
			m.Busy = true
			submit := func() tea.Msg { return m.OnSubmit(prompt) }
			cmds = append(cmds, submit, m.Spinner.Tick)
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		if !m.Ready {
			m.Viewport = viewport.New(msg.Width, msg.Height-6)
			m.Ready = true
		} else {
			m.Viewport.Width = msg.Width
			m.Viewport.Height = msg.Height - 6
		}
		m.Viewport.SetContent(strings.Join(m.Entries, "\n"))

	case TranscriptMsg:
		m.appendEntry(string(msg))
		m.Busy = false

	case LogMsg:
		m.appendEntry(string(msg))

	case StatusMsg:
		m.Status = string(msg)

	case BusyMsg:
		m.Busy = bool(msg)

	case spinner.TickMsg:
		if m.Busy {
			var cmd tea.Cmd
			m.Spinner, cmd = m.Spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)

	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) appendEntry(entry string) {
	m.Entries = append(m.Entries, entry)
	if m.Ready {
		m.Viewport.SetContent(strings.Join(m.Entries, "\n"))
		m.Viewport.GotoBottom()
	}
}

func (m Model) View() string {
	if !m.Ready {
		return "\n  Initializing..."
	}

	header := titleStyle.Render(" " + m.Title + " ")
	status := statusStyle.Render(fmt.Sprintf(" %s ", m.Status))
	if m.Busy {
		status += m.Spinner.View()
	}

	view := fmt.Sprintf("%s%s\n\n%s\n\n%s",
		header, status,
		m.Viewport.View(),
		promptStyle.Render("> ")+m.Input.View())

	if m.Quitting {
		return view + "\n  Quitting...\n"
	}

	return view
}
