package cli

import (
	"context"
	"fmt"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/civiscope/civiscope-go/internal/client"
	"github.com/civiscope/civiscope-go/internal/stream"
)

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
	Source  lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
	Source:  lipgloss.Color("#AFAF5F"), // olive
}

// Style functions for dynamic theming
func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func (t Theme) sourceStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Source)
}

// watchEventMsg carries one websocket notification into the UI.
type watchEventMsg struct {
	event client.WatchEvent
}

// watchErrMsg signals that the websocket stream failed.
type watchErrMsg struct {
	err error
}

// watchModel is the bubbletea model for live research progress.
type watchModel struct {
	researchID   string
	progress     progress.Model
	theme        Theme
	percent      int
	currentTask  string
	sourcesFound int
	remaining    int
	lastSource   string
	summary      map[string]int
	resultsURL   string
	done         bool
	quitting     bool
	err          error
}

// newWatchModel creates a new watch model.
func newWatchModel(researchID string) watchModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return watchModel{
		researchID:  researchID,
		progress:    prog,
		theme:       defaultTheme,
		currentTask: "Connecting...",
	}
}

// Init returns the initial command.
func (m watchModel) Init() tea.Cmd {
	return m.progress.Init()
}

// Update handles messages and returns the updated model.
func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case watchEventMsg:
		return m.applyEvent(msg.event)

	case watchErrMsg:
		m.err = msg.err
		m.done = true
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// applyEvent folds one stream notification into the model.
func (m watchModel) applyEvent(event client.WatchEvent) (tea.Model, tea.Cmd) {
	switch event.Type {
	case stream.TypeProgress:
		m.percent = event.PercentComplete
		m.currentTask = event.CurrentTask
		m.sourcesFound = event.SourcesFound
		m.remaining = event.EstimatedRemainingSeconds

	case stream.TypeSource:
		m.sourcesFound++
		m.lastSource = event.Title

	case stream.TypeComplete:
		m.percent = 100
		m.summary = event.Summary
		m.resultsURL = event.ResultsURL
		m.done = true
		return m, tea.Quit

	case stream.TypeError:
		m.err = fmt.Errorf("%s", event.Message)
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the progress display.
func (m watchModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m watchModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%3d%%]", m.percent))
	progressBar := m.progress.ViewAs(float64(m.percent) / 100)
	counts := fmt.Sprintf("%d sources", m.sourcesFound)

	out := fmt.Sprintf("%s %s %s\n%s\n", status, progressBar, counts, m.currentTask)
	if m.lastSource != "" {
		out += m.theme.sourceStyle().Render("  ↳ "+m.lastSource) + "\n"
	}
	out += m.theme.hintStyle().Render("Press Ctrl+C to continue in background") + "\n"
	return out
}

// finalView renders the completion message.
func (m watchModel) finalView() string {
	if m.quitting {
		msg := fmt.Sprintf("\nResearch %s continues in background.\nUse 'civiscope status %s' to check on it.\n",
			m.researchID, m.researchID)
		return m.theme.hintStyle().Render(msg)
	}

	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Research failed: %s\n", m.err))
	}

	var output string
	output += m.theme.completedStyle().Render("✓ Research complete") + "\n\n"
	if n, ok := m.summary["total_sources"]; ok {
		output += fmt.Sprintf("  Sources collected:  %d\n", n)
	}
	if n, ok := m.summary["stances_identified"]; ok {
		output += fmt.Sprintf("  Stances identified: %d\n", n)
	}
	if n, ok := m.summary["issues_covered"]; ok {
		output += fmt.Sprintf("  Issues covered:     %d\n", n)
	}
	if n, ok := m.summary["candidates_compared"]; ok {
		output += fmt.Sprintf("  Candidates compared: %d\n", n)
	}
	if n, ok := m.summary["stance_cards_generated"]; ok {
		output += fmt.Sprintf("  Stance cards:       %d\n", n)
	}
	output += fmt.Sprintf("\nUse 'civiscope results %s' to fetch the full report.\n", m.researchID)
	return output
}

// RunWatchProgress runs the interactive progress UI for a research task,
// fed by the task's websocket stream. Returns nil on completion or
// Ctrl+C (background), error on task failure.
func RunWatchProgress(c *client.Client, researchID string) error {
	model := newWatchModel(researchID)
	p := tea.NewProgram(model)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		err := c.Watch(ctx, researchID, func(event client.WatchEvent) error {
			p.Send(watchEventMsg{event: event})
			return nil
		})
		if err != nil && ctx.Err() == nil {
			p.Send(watchErrMsg{err: err})
		}
	}()

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(watchModel); ok {
		// Detaching with Ctrl+C leaves the task running server-side.
		if m.quitting {
			return nil
		}
		if m.err != nil {
			return m.err
		}
	}

	return nil
}
