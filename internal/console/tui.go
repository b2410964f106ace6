package console

import (
	"context"
	"errors"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/andrei-cloud/go_cmdhost/internal/dispatch"
)

// maxLines bounds the scrollback kept by the prompt model.
const maxLines = 500

// replyMsg carries console output into the model.
type replyMsg string

// doneMsg reports a finished command.
type doneMsg struct{}

type promptModel struct {
	ctx      context.Context
	exec     Executor
	title    string
	input    []rune
	lines    []string
	history  []string
	browse   int
	running  int
	quitting bool
}

// newPromptModel creates the TUI model.
func newPromptModel(ctx context.Context, exec Executor, title string) promptModel {
	return promptModel{ctx: ctx, exec: exec, title: title, browse: -1}
}

// Init initializes the model.
func (m promptModel) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model state.
func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case replyMsg:
		m.lines = append(m.lines, strings.Split(strings.TrimRight(string(msg), "\n"), "\n")...)
		if len(m.lines) > maxLines {
			m.lines = m.lines[len(m.lines)-maxLines:]
		}
	case doneMsg:
		if m.running > 0 {
			m.running--
		}
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.quitting = true

			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(string(m.input))
			m.input = nil
			m.browse = -1
			if line == "" {
				return m, nil
			}
			if IsExit(line) {
				m.quitting = true

				return m, tea.Quit
			}
			m.history = append(m.history, line)
			m.lines = append(m.lines, Prompt+line)
			m.running++

			return m, m.run(line)
		case tea.KeyBackspace:
			if len(m.input) > 0 {
				m.input = m.input[:len(m.input)-1]
			}
		case tea.KeyUp:
			if len(m.history) == 0 {
				break
			}
			if m.browse < 0 {
				m.browse = len(m.history)
			}
			if m.browse > 0 {
				m.browse--
			}
			m.input = []rune(m.history[m.browse])
		case tea.KeyDown:
			if m.browse < 0 {
				break
			}
			m.browse++
			if m.browse >= len(m.history) {
				m.browse = -1
				m.input = nil
				break
			}
			m.input = []rune(m.history[m.browse])
		case tea.KeySpace:
			m.input = append(m.input, ' ')
		case tea.KeyRunes:
			m.input = append(m.input, msg.Runes...)
		}
	}

	return m, nil
}

func (m promptModel) run(line string) tea.Cmd {
	ctx, exec := m.ctx, m.exec
	return func() tea.Msg {
		// failures are replied to the console by the dispatcher.
		_ = exec.Execute(ctx, line, dispatch.ConsoleSender)
		return doneMsg{}
	}
}

// View renders the current state of the model.
func (m promptModel) View() string {
	if m.quitting {
		return "Shutting down.\n"
	}

	var b strings.Builder
	b.WriteString(Header(m.title))
	b.WriteString("\n\n")
	for _, line := range m.lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(promptStyle.Render(Prompt))
	b.WriteString(string(m.input))
	if m.running > 0 {
		b.WriteString(" …")
	}
	b.WriteString("\n")
	b.WriteString("Enter: run  ↑/↓: history  exit or Ctrl+C: quit\n")

	return b.String()
}

// programWriter forwards console replies into a running program.
type programWriter struct {
	p *tea.Program
}

func (w programWriter) Write(data []byte) (int, error) {
	w.p.Send(replyMsg(data))
	return len(data), nil
}

// RunTUI runs the full-screen prompt until an exit word or Ctrl+C. setOutput
// is called with the writer console replies must go to while the prompt
// owns the terminal.
func RunTUI(ctx context.Context, exec Executor, title string, setOutput func(w io.Writer)) error {
	p := tea.NewProgram(newPromptModel(ctx, exec, title), tea.WithContext(ctx))
	if setOutput != nil {
		setOutput(programWriter{p: p})
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
