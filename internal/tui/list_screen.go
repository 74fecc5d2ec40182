package tui

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joescharf/bleue/internal/models"
	"github.com/joescharf/bleue/internal/output"
)

const titleWidth = 35

// ListScreen shows every issue, newest first.
type ListScreen struct {
	BaseScreen
	table   table.Model
	issues  []*models.Issue
	loading bool
}

// NewListScreen creates the issue list screen.
func NewListScreen(app *App) *ListScreen {
	columns := []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Title", Width: titleWidth},
		{Title: "Workflow", Width: 10},
		{Title: "Worker", Width: 14},
		{Title: "Status", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(app.theme.LightBlue).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(app.theme.White).
		Background(app.theme.Blue).
		Bold(false)
	t.SetStyles(styles)

	return &ListScreen{
		BaseScreen: NewBaseScreen(app, "Issues"),
		table:      t,
	}
}

// Init loads the issues.
func (s *ListScreen) Init() tea.Cmd {
	s.loading = true
	return s.app.loadIssues()
}

// Update handles list keys and load results.
func (s *ListScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case issuesLoadedMsg:
		s.loading = false
		if msg.err != nil {
			s.app.flashError(fmt.Errorf("error loading issues: %w", msg.err))
			return s, nil
		}
		s.setIssues(msg.issues)
		if len(s.issues) == 0 && s.app.status == "" {
			s.app.flash("No issues found. Press 'n' to create one.")
		}
		return s, nil

	case tea.WindowSizeMsg:
		s.table.SetHeight(max(msg.Height-8, 5))
		return s, nil

	case tea.KeyMsg:
		km := s.app.keyMap
		switch {
		case key.Matches(msg, km.New):
			return s, s.app.push(NewIssueScreen(s.app))

		case key.Matches(msg, km.View):
			issue := s.selected()
			if issue == nil {
				s.app.flash("No issue selected")
				return s, nil
			}
			return s, s.app.push(NewDetailScreen(s.app, issue.ID))

		case key.Matches(msg, km.Refresh):
			s.loading = true
			return s, s.app.loadIssues()

		case key.Matches(msg, km.Assign):
			issue, ok := s.pendingSelection("Only pending issues can be assigned")
			if !ok {
				return s, nil
			}
			return s, s.app.push(NewWorkerPicker(s.app, issue))

		case key.Matches(msg, km.Workflow):
			issue, ok := s.pendingSelection("Only pending issues can have their workflow changed")
			if !ok {
				return s, nil
			}
			return s, s.app.push(NewWorkflowPicker(s.app, issue))

		case key.Matches(msg, km.Delete):
			issue, ok := s.pendingSelection("Only pending issues can be deleted")
			if !ok {
				return s, nil
			}
			return s, s.app.push(NewConfirmDeleteScreen(s.app, issue))
		}
	}

	var cmd tea.Cmd
	s.table, cmd = s.table.Update(msg)
	return s, cmd
}

// View renders the table.
func (s *ListScreen) View() string {
	body := s.table.View()
	if s.loading && len(s.issues) == 0 {
		body = s.app.theme.Faint.Render("Loading issues...")
	}
	header := s.RenderTitle() + s.app.theme.Faint.Render(fmt.Sprintf("  (%d)", len(s.issues)))
	return header + "\n" + body + "\n" + s.RenderFooter()
}

// ShortHelp returns keybindings to be shown in the help line.
func (s *ListScreen) ShortHelp() []key.Binding {
	km := s.app.keyMap
	return []key.Binding{km.New, km.View, km.Refresh, km.Assign, km.Workflow, km.Delete, km.Help, km.Quit}
}

func (s *ListScreen) setIssues(issues []*models.Issue) {
	s.issues = issues
	rows := make([]table.Row, 0, len(issues))
	for _, i := range issues {
		rows = append(rows, issueRow(i))
	}
	s.table.SetRows(rows)
	if s.table.Cursor() >= len(rows) {
		s.table.SetCursor(max(len(rows)-1, 0))
	}
}

func (s *ListScreen) selected() *models.Issue {
	n := s.table.Cursor()
	if n < 0 || n >= len(s.issues) {
		return nil
	}
	return s.issues[n]
}

// pendingSelection returns the selected issue when it is still pending,
// flashing msg otherwise.
func (s *ListScreen) pendingSelection(msg string) (*models.Issue, bool) {
	issue := s.selected()
	if issue == nil {
		s.app.flash("No issue selected")
		return nil, false
	}
	if !issue.IsPending() {
		s.app.flashError(errors.New(msg))
		return nil, false
	}
	return issue, true
}

func issueRow(i *models.Issue) table.Row {
	title := i.Title
	if title == "" {
		title = i.Description
	}
	worker := models.WorkerDisplayName(i.AssignedTo)
	if worker == "" {
		worker = "None"
	}
	return table.Row{
		strconv.FormatInt(i.ID, 10),
		output.Truncate(title, titleWidth),
		i.Workflow.Display(),
		worker,
		string(i.Status),
	}
}
