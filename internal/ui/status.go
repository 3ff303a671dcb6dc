package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type statusMsg string

type doneMsg struct{}

// statusModel is a one-line spinner with the current session status.
type statusModel struct {
	spinner spinner.Model
	status  string
	done    bool
}

func newStatusModel(status string) statusModel {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = SpinnerStyle
	return statusModel{spinner: s, status: status}
}

func (m statusModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statusMsg:
		m.status = string(msg)
		return m, nil

	case doneMsg:
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m statusModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), MutedStyle.Render(m.status))
}

// StatusUI keeps a spinner line at the bottom of the terminal and prints
// chat lines above it. It does not read stdin, so the caller can.
type StatusUI struct {
	program *tea.Program
	wg      sync.WaitGroup
	once    sync.Once
}

// NewStatusUI creates a status line writing to out.
func NewStatusUI(out io.Writer, status string) *StatusUI {
	return &StatusUI{
		program: tea.NewProgram(newStatusModel(status), tea.WithInput(nil), tea.WithOutput(out), tea.WithoutSignalHandler()),
	}
}

// Start runs the UI in a goroutine
func (ui *StatusUI) Start() {
	ui.wg.Add(1)
	go func() {
		defer ui.wg.Done()
		if _, err := ui.program.Run(); err != nil {
			PrintErrorf("UI error: %v", err)
		}
	}()
}

// SetStatus replaces the status text.
func (ui *StatusUI) SetStatus(status string) {
	ui.program.Send(statusMsg(status))
}

// Println prints a line above the status line.
func (ui *StatusUI) Println(args ...any) {
	ui.program.Println(args...)
}

// Stop removes the status line and waits for the UI to exit. It must only
// be called after Start.
func (ui *StatusUI) Stop() {
	ui.once.Do(func() {
		ui.program.Send(doneMsg{})
		ui.wg.Wait()
	})
}
