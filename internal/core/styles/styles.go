// Package styles provides shared lipgloss styles for CLI and TUI output.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/duckling-ai/duckwatch/internal/core/logstream"
	"github.com/duckling-ai/duckwatch/internal/core/task"
)

var (
	Success = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	Warning = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	Error   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	Info    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	Muted   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	Bold    = lipgloss.NewStyle().Bold(true)
)

// StatusStyle returns the style used to render a task status.
func StatusStyle(s task.Status) lipgloss.Style {
	switch s {
	case task.StatusCompleted:
		return Success
	case task.StatusFailed:
		return Error
	case task.StatusCancelled:
		return Muted
	case task.StatusRunning, task.StatusTesting, task.StatusCreatingPR:
		return Info
	default:
		return Warning
	}
}

// LineStyle returns the style used to render a classified log line.
func LineStyle(c logstream.Class) lipgloss.Style {
	switch c {
	case logstream.ClassError:
		return Error
	case logstream.ClassWarning:
		return Warning
	case logstream.ClassStep:
		return Info.Bold(true)
	default:
		return lipgloss.NewStyle()
	}
}

// StatusDot renders the colored bullet shown next to a task status.
func StatusDot(s task.Status) string {
	return StatusStyle(s).Render("●")
}
