package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/studiowebux/reqproc/internal/stresstest"
)

const (
	// PollInterval is how often the view samples the pipeline
	PollInterval = 100 * time.Millisecond

	progressBarWidth = 40
	maxModalWidth    = 70
	modalPadding     = 4 // Horizontal padding inside the modal
)

// Runner is the running pipeline the view observes
type Runner interface {
	Snapshot() stresstest.Snapshot
	Stop()
}

// ProgressModel renders live pipeline progress until the report is written
type ProgressModel struct {
	runner   Runner
	bar      progress.Model
	snapshot stresstest.Snapshot
	width    int
	stopping bool
	done     bool
}

// NewProgressModel creates a progress view for runner
func NewProgressModel(runner Runner) ProgressModel {
	return ProgressModel{
		runner: runner,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(progressBarWidth)),
	}
}

// Message types
type progressTickMsg struct{}

// pollProgress schedules the next snapshot
func pollProgress() tea.Cmd {
	return tea.Tick(PollInterval, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}

// Init starts polling
func (m ProgressModel) Init() tea.Cmd {
	return pollProgress()
}

// Update handles key presses, resizes and poll ticks
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if !m.stopping {
				m.stopping = true
				m.runner.Stop()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(progressBarWidth, m.modalWidth()-modalPadding)
		return m, nil

	case progressTickMsg:
		m.snapshot = m.runner.Snapshot()
		if m.snapshot.Done {
			m.done = true
			return m, tea.Quit
		}
		return m, pollProgress()
	}

	return m, nil
}

// View renders the progress modal
func (m ProgressModel) View() string {
	s := m.snapshot
	var content strings.Builder

	title := "Pipeline - Running"
	switch {
	case m.done:
		title = "Pipeline - Done"
	case m.stopping || s.Stopped:
		title = "Pipeline - Stopping"
	}
	content.WriteString(styleTitle.Render(title) + "\n\n")

	content.WriteString(styleTitleFocused.Render("Progress") + "\n")
	content.WriteString(fmt.Sprintf("%d/%d responses (%.1f%%)\n", s.Processed, s.Total, s.Progress()))
	content.WriteString(m.bar.ViewAs(s.Progress()/100) + "\n")
	content.WriteString(fmt.Sprintf("Generated:      %d\n", s.Generated))
	content.WriteString(fmt.Sprintf("Active Workers: %d\n", s.ActiveWorkers))
	content.WriteString(fmt.Sprintf("Elapsed:        %s\n", formatDuration(s.Elapsed)))

	rps := 0.0
	if s.Elapsed.Seconds() > 0 {
		rps = float64(s.Processed) / s.Elapsed.Seconds()
	}
	content.WriteString(fmt.Sprintf("Responses/sec:  %.2f\n", rps))

	if s.Stopped && !m.stopping {
		content.WriteString("\n" + styleWarning.Render("Stop flag raised, draining remaining responses...") + "\n")
	}

	content.WriteString("\n")
	footer := "q/esc: Stop run"
	if m.stopping {
		footer = "Stopping run... waiting for the report"
	}
	content.WriteString(styleSubtle.Render(footer))

	modalStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorCyan).
		Padding(1, 2).
		Width(m.modalWidth())

	return modalStyle.Render(content.String()) + "\n"
}

func (m ProgressModel) modalWidth() int {
	if m.width > 0 && m.width-ModalWidthMarginNarrow < maxModalWidth {
		return max(m.width-ModalWidthMarginNarrow, modalPadding+1)
	}
	return maxModalWidth
}

// Done reports whether the view saw the run finish
func (m ProgressModel) Done() bool {
	return m.done
}

// Stopping reports whether the user asked to stop the run
func (m ProgressModel) Stopping() bool {
	return m.stopping
}

// Run shows the progress view on out until runner reports completion or ctx is cancelled
func Run(ctx context.Context, runner Runner, out io.Writer) error {
	p := tea.NewProgram(NewProgressModel(runner), tea.WithContext(ctx), tea.WithOutput(out))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("progress view failed: %w", err)
	}
	return nil
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
