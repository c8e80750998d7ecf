package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/hive/internal/report"
)

// CommandHandler resolves one submitted command and returns the response
// text shown in the history pane. Handlers run off the UI goroutine.
type CommandHandler func(ctx context.Context, text string) (string, error)

// commandResultMsg carries a handler's outcome back to the UI.
type commandResultMsg struct {
	input    string
	response string
	err      error
}

// statusTickMsg triggers a status snapshot refresh.
type statusTickMsg time.Time

const statusRefreshInterval = 500 * time.Millisecond

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	inputEchoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	responseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

// App is the interactive-mode model: input field on the bottom, status line
// on top, conversation history in between.
type App struct {
	input    *InputField
	reporter *report.Reporter
	history  *History
	handler  CommandHandler

	status   *report.Status
	width    int
	height   int
	busy     bool
	quitting bool
}

// NewApp creates the interactive app.
func NewApp(reporter *report.Reporter, handler CommandHandler) *App {
	return &App{
		input:    NewInputField(),
		reporter: reporter,
		history:  NewHistory(100),
		handler:  handler,
		status:   reporter.Snapshot(),
	}
}

// History exposes the session's conversation history.
func (a *App) History() *History {
	return a.history
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.input.Focus(), statusTick())
}

func statusTick() tea.Cmd {
	return tea.Tick(statusRefreshInterval, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		}
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.SetWidth(msg.Width)
		return a, nil

	case CommandSubmittedMsg:
		a.busy = true
		return a, a.runCommand(msg.Text)

	case commandResultMsg:
		a.busy = false
		entry := HistoryEntry{Input: msg.input, Response: msg.response}
		if msg.err != nil {
			entry.Response = msg.err.Error()
			entry.IsError = true
		}
		a.history.Add(entry)
		return a, nil

	case statusTickMsg:
		a.status = a.reporter.Snapshot()
		return a, statusTick()
	}

	return a, nil
}

// runCommand invokes the handler off the UI goroutine.
func (a *App) runCommand(text string) tea.Cmd {
	return func() tea.Msg {
		resp, err := a.handler(context.Background(), text)
		return commandResultMsg{input: text, response: resp, err: err}
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return "Goodbye!\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("hive"))
	b.WriteString("  ")
	b.WriteString(statusStyle.Render(a.statusLine()))
	b.WriteString("\n\n")
	b.WriteString(a.historyView())
	b.WriteString("\n")
	b.WriteString(a.input.View())
	return b.String()
}

func (a *App) statusLine() string {
	s := a.status
	if s == nil {
		return "starting..."
	}
	line := fmt.Sprintf("agents %d | tasks %d | done %d | failed %d | completion %.0f%%",
		len(s.Agents), s.TasksTotal, s.TasksCompleted, s.TasksFailed, s.CompletionRate*100)
	if a.busy {
		line += " | working..."
	}
	return line
}

// historyView renders the most recent conversation entries that fit the
// terminal height.
func (a *App) historyView() string {
	entries := a.history.Entries()
	if len(entries) == 0 {
		return statusStyle.Render("No commands yet. Try \"analyze code in src/\" or \"status\".")
	}

	// Each entry takes two lines plus a blank; keep what fits.
	maxEntries := 10
	if a.height > 0 {
		if fit := (a.height - 6) / 3; fit > 0 {
			maxEntries = fit
		}
	}
	if len(entries) > maxEntries {
		entries = entries[len(entries)-maxEntries:]
	}

	var lines []string
	for _, e := range entries {
		lines = append(lines, inputEchoStyle.Render("> "+e.Input))
		style := responseStyle
		if e.IsError {
			style = errorStyle
		}
		lines = append(lines, style.Render("  "+e.Response), "")
	}
	return strings.Join(lines, "\n")
}

// NewProgram creates a Bubbletea program for interactive mode.
func NewProgram(reporter *report.Reporter, handler CommandHandler) (*tea.Program, *App) {
	app := NewApp(reporter, handler)
	p := tea.NewProgram(app, tea.WithAltScreen())
	return p, app
}
