package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joescharf/bleue/internal/models"
	"github.com/joescharf/bleue/internal/output"
)

// DetailScreen shows one issue and its comments, newest first.
type DetailScreen struct {
	BaseScreen
	id       int64
	issue    *models.Issue
	comments []*models.Comment
	err      error
	viewport viewport.Model
}

// NewDetailScreen creates the detail screen for issue id.
func NewDetailScreen(app *App, id int64) *DetailScreen {
	return &DetailScreen{
		BaseScreen: NewBaseScreen(app, fmt.Sprintf("Issue #%d", id)),
		id:         id,
		viewport:   viewport.New(app.width, max(app.height-6, 5)),
	}
}

// Init fetches the issue and its comments.
func (s *DetailScreen) Init() tea.Cmd {
	return s.app.loadDetail(s.id)
}

// Update handles load results, scrolling and navigation.
func (s *DetailScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case detailLoadedMsg:
		if msg.id != s.id {
			return s, nil
		}
		s.err = msg.err
		if msg.err == nil {
			s.issue = msg.issue
			s.comments = msg.comments
		}
		s.viewport.SetContent(s.content())
		return s, nil

	case tea.WindowSizeMsg:
		s.viewport.Width = msg.Width
		s.viewport.Height = max(msg.Height-6, 5)
		s.viewport.SetContent(s.content())
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, s.app.keyMap.Back):
			return s, s.app.pop()
		case key.Matches(msg, s.app.keyMap.Refresh):
			return s, s.app.loadDetail(s.id)
		}
	}

	var cmd tea.Cmd
	s.viewport, cmd = s.viewport.Update(msg)
	return s, cmd
}

// View renders the issue.
func (s *DetailScreen) View() string {
	return s.RenderTitle() + "\n" + s.viewport.View() + "\n" + s.RenderFooter()
}

// ShortHelp returns keybindings to be shown in the help line.
func (s *DetailScreen) ShortHelp() []key.Binding {
	km := s.app.keyMap
	return []key.Binding{km.Up, km.Down, km.Refresh, km.Back, km.Quit}
}

func (s *DetailScreen) content() string {
	th := s.app.theme
	if s.err != nil {
		return th.Error.Render("Error loading issue: " + s.err.Error())
	}
	if s.issue == nil {
		return th.Faint.Render("Loading...")
	}

	wrap := lipgloss.NewStyle().Width(max(s.viewport.Width-2, 20))
	i := s.issue

	var b strings.Builder
	field := func(label, value string) {
		b.WriteString(th.Label.Render(label) + value + "\n")
	}
	if i.Title != "" {
		field("Title", i.Title)
	}
	field("Status", th.Status(i.Status))
	field("Workflow", i.Workflow.Display())
	worker := models.WorkerDisplayName(i.AssignedTo)
	if worker == "" {
		worker = "Unassigned"
	}
	field("Worker", worker)
	field("Created", output.Timestamp(i.CreatedAt))
	field("Updated", output.Timestamp(i.UpdatedAt))

	b.WriteString("\n" + th.Subtitle.Render("Description") + "\n")
	b.WriteString(wrap.Render(i.Description) + "\n")

	b.WriteString("\n" + th.Subtitle.Render(fmt.Sprintf("Comments (%d)", len(s.comments))) + "\n")
	if len(s.comments) == 0 {
		b.WriteString(th.Faint.Render("No comments yet.") + "\n")
	}
	for _, c := range s.comments {
		meta := output.Timestamp(c.CreatedAt)
		if c.Source != "" {
			meta += " · " + c.Source
		}
		if c.Type != "" {
			meta += " · " + c.Type
		}
		b.WriteString(th.Faint.Render(meta) + "\n")
		b.WriteString(wrap.Render(c.Comment) + "\n\n")
	}
	return b.String()
}
