// Package console reads commands typed by the local operator, either line
// by line or through a full-screen prompt.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/andrei-cloud/go_cmdhost/internal/dispatch"
)

// Executor runs one line of input for a sender.
type Executor interface {
	Execute(ctx context.Context, input string, sender uint64) error
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// Prompt is printed before each console line.
const Prompt = "> "

// Header renders a section banner such as "Loading plugins".
func Header(title string) string {
	line := strings.Repeat("=", 8)
	return headerStyle.Render(fmt.Sprintf("%s %s %s", line, title, line))
}

// Error renders an error line.
func Error(text string) string {
	return errorStyle.Render(text)
}

// IsExit reports whether line asks the host to shut down.
func IsExit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "exit", "stop", "quit", "close":
		return true
	}
	return false
}

// RunLine reads commands from in until an exit word, EOF or ctx is done.
// Replies are written by the host reply sink, not here.
func RunLine(ctx context.Context, in io.Reader, out io.Writer, exec Executor) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				errc <- nil
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		fmt.Fprint(out, promptStyle.Render(Prompt))

		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-errc
			}
			if IsExit(line) {
				return nil
			}
			// failures are replied to the console by the dispatcher.
			_ = exec.Execute(ctx, line, dispatch.ConsoleSender)
		}
	}
}
