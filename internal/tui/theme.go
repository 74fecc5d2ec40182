package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/joescharf/bleue/internal/models"
)

// Theme holds the colors and styles shared by every screen.
type Theme struct {
	Blue      lipgloss.Color
	LightBlue lipgloss.Color
	Yellow    lipgloss.Color
	Green     lipgloss.Color
	Orange    lipgloss.Color
	Gray      lipgloss.Color
	White     lipgloss.Color

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Text     lipgloss.Style
	Bold     lipgloss.Style
	Faint    lipgloss.Style
	Label    lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style

	SelectedItem   lipgloss.Style
	UnselectedItem lipgloss.Style
	Modal          lipgloss.Style
	Focused        lipgloss.Style
}

// NewTheme builds the default blue theme.
func NewTheme() *Theme {
	t := &Theme{
		Blue:      "#0072B2",
		LightBlue: "#56B4E9",
		Yellow:    "#E69F00",
		Green:     "#009E73",
		Orange:    "#D55E00",
		Gray:      "#999999",
		White:     "#FFFFFF",
	}

	t.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Blue).
		MarginBottom(1)

	t.Subtitle = lipgloss.NewStyle().
		Foreground(t.LightBlue)

	t.Text = lipgloss.NewStyle()

	t.Bold = lipgloss.NewStyle().Bold(true)

	t.Faint = lipgloss.NewStyle().
		Faint(true).
		Foreground(t.Gray)

	t.Label = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.LightBlue).
		Width(12)

	t.Error = lipgloss.NewStyle().Foreground(t.Orange)
	t.Success = lipgloss.NewStyle().Foreground(t.Green)

	t.SelectedItem = lipgloss.NewStyle().
		Bold(true).
		Background(t.LightBlue).
		Foreground(t.White).
		Padding(0, 1)

	t.UnselectedItem = lipgloss.NewStyle().
		Padding(0, 1)

	t.Modal = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(t.LightBlue).
		Padding(1, 2)

	t.Focused = lipgloss.NewStyle().Foreground(t.Blue).Bold(true)

	return t
}

// Status renders an issue status in its color.
func (t *Theme) Status(s models.IssueStatus) string {
	switch s {
	case models.IssueStatusPending:
		return lipgloss.NewStyle().Foreground(t.Yellow).Render(string(s))
	case models.IssueStatusStarted:
		return lipgloss.NewStyle().Foreground(t.LightBlue).Render(string(s))
	case models.IssueStatusCompleted:
		return lipgloss.NewStyle().Foreground(t.Green).Render(string(s))
	}
	return string(s)
}
