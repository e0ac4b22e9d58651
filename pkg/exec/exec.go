// Package exec runs the external tools norms consults, such as git.
package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/simonhull/norms/pkg/logger"
)

// Executor runs external commands and captures their output
type Executor struct {
	stderr  io.Writer
	env     []string
	dir     string
	spinner bool
	logger  logger.Logger

	// For mocking in tests
	commandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// Options configures command execution
type Options struct {
	Stderr  io.Writer // spinner output; defaults to os.Stderr
	Env     []string  // Additional environment variables
	Dir     string    // Working directory
	Spinner bool      // Show a spinner while commands run, terminals only
	Logger  logger.Logger
}

// CommandError is a command that ran and exited unsuccessfully
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s failed (exit %d)", e.Command, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// NotFoundError is a command missing from PATH
type NotFoundError struct {
	Command string
	Err     error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("command %q not found; install it and try again", e.Command)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// NewExecutor creates an executor with sensible defaults
func NewExecutor(opts *Options) *Executor {
	if opts == nil {
		opts = &Options{}
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}

	return &Executor{
		stderr:      stderr,
		env:         opts.Env,
		dir:         opts.Dir,
		spinner:     opts.Spinner,
		logger:      log,
		commandFunc: exec.CommandContext, // Can be mocked for tests
	}
}

// Output runs a command and returns its stdout. A non-zero exit becomes a
// *CommandError carrying the trimmed stderr.
func (e *Executor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := e.commandFunc(ctx, name, args...)
	if e.dir != "" {
		cmd.Dir = e.dir
	}
	if len(e.env) > 0 {
		cmd.Env = append(cmd.Environ(), e.env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	display := commandString(name, args)
	e.logger.Debug("Running command", logger.F("command", display), logger.F("dir", e.dir))

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s cancelled: %w", name, ctxErr)
		}
		if isCommandNotFound(err) {
			return nil, &NotFoundError{Command: name, Err: err}
		}
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return nil, &CommandError{
			Command:  display,
			ExitCode: code,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
	}
	return stdout.Bytes(), nil
}

// Lines runs a command and splits its stdout into non-empty lines
func (e *Executor) Lines(ctx context.Context, name string, args ...string) ([]string, error) {
	out, err := e.OutputWithSpinner(ctx, "", name, args...)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, l := range strings.Split(string(out), "\n") {
		if l = strings.TrimRight(l, "\r"); strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines, nil
}

// OutputWithSpinner is Output with a progress spinner on stderr. The
// spinner only appears when it is enabled and stderr is a terminal.
func (e *Executor) OutputWithSpinner(ctx context.Context, message, name string, args ...string) ([]byte, error) {
	if !e.spinner || !isTerminal(e.stderr) {
		return e.Output(ctx, name, args...)
	}
	if message == "" {
		message = commandString(name, args)
	}

	m := newSpinnerModel(message)
	p := tea.NewProgram(m, tea.WithOutput(e.stderr), tea.WithInput(nil))
	programDone := make(chan struct{})
	go func() {
		defer close(programDone)
		if _, err := p.Run(); err != nil {
			e.logger.Debug("Spinner stopped", logger.F("error", err.Error()))
		}
	}()

	out, err := e.Output(ctx, name, args...)
	p.Send(spinnerDoneMsg{err: err})
	<-programDone
	return out, err
}

// spinnerModel is the bubbletea model for the spinner
type spinnerModel struct {
	spinner spinner.Model
	message string
	done    bool
	err     error
}

type spinnerDoneMsg struct {
	err error
}

func newSpinnerModel(message string) *spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return &spinnerModel{
		spinner: s,
		message: message,
	}
}

func (m *spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinnerDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		if !m.done {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m *spinnerModel) View() string {
	if m.done {
		if m.err != nil {
			return fmt.Sprintf("❌ %s\n", m.message)
		}
		return fmt.Sprintf("✅ %s\n", m.message)
	}
	return fmt.Sprintf("%s %s...", m.spinner.View(), m.message)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// isCommandNotFound checks if an error indicates a command was not found
func isCommandNotFound(err error) bool {
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	return strings.Contains(err.Error(), "executable file not found")
}

func commandString(name string, args []string) string {
	return strings.Join(append([]string{name}, args...), " ")
}
