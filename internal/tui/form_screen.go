package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joescharf/bleue/internal/models"
	"github.com/joescharf/bleue/internal/tracker"
)

// Form fields in focus order.
const (
	fieldTitle = iota
	fieldDescription
	fieldWorkflow
	fieldWorker
	fieldCount
)

// NewIssueForm collects a new issue. Input is validated before dispatch with
// the same rules the store applies.
type NewIssueForm struct {
	BaseScreen
	title       textinput.Model
	description textarea.Model
	workflows   []models.WorkflowOption
	workers     []models.WorkerOption
	workflowIdx int
	workerIdx   int
	focus       int
	err         string
	submitting  bool
}

// NewIssueScreen creates the new-issue form.
func NewIssueScreen(app *App) *NewIssueForm {
	title := textinput.New()
	title.Placeholder = "Enter issue title ..."
	title.CharLimit = tracker.MaxTitleLen
	title.Width = 60
	title.Cursor.SetMode(cursor.CursorStatic)
	title.Focus()

	desc := textarea.New()
	desc.Placeholder = "Enter issue description ..."
	desc.CharLimit = tracker.MaxDescriptionLen
	desc.SetWidth(60)
	desc.SetHeight(6)
	desc.ShowLineNumbers = false
	desc.Cursor.SetMode(cursor.CursorStatic)

	return &NewIssueForm{
		BaseScreen:  NewBaseScreen(app, "Create New Issue"),
		title:       title,
		description: desc,
		workflows:   models.WorkflowOptions,
		workers:     models.WorkerOptions(),
	}
}

func (f *NewIssueForm) capturesText() bool { return true }

// Init does nothing; the title field is focused on creation.
func (f *NewIssueForm) Init() tea.Cmd { return nil }

// Update handles field navigation, option cycling and submission.
func (f *NewIssueForm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case issueSavedMsg:
		f.submitting = false
		if msg.err != nil {
			f.err = msg.err.Error()
		}
		return f, nil

	case tea.KeyMsg:
		km := f.app.keyMap
		switch {
		case key.Matches(msg, km.Back):
			return f, f.app.pop()
		case key.Matches(msg, km.Save):
			return f, f.submit()
		case key.Matches(msg, km.Next):
			f.setFocus((f.focus + 1) % fieldCount)
			return f, nil
		case key.Matches(msg, km.Prev):
			f.setFocus((f.focus + fieldCount - 1) % fieldCount)
			return f, nil
		}

		switch f.focus {
		case fieldWorkflow:
			f.workflowIdx = cycle(f.workflowIdx, len(f.workflows), msg, km)
			return f, nil
		case fieldWorker:
			f.workerIdx = cycle(f.workerIdx, len(f.workers), msg, km)
			return f, nil
		}
	}

	var cmd tea.Cmd
	switch f.focus {
	case fieldTitle:
		f.title, cmd = f.title.Update(msg)
	case fieldDescription:
		f.description, cmd = f.description.Update(msg)
	}
	return f, cmd
}

// View renders the form.
func (f *NewIssueForm) View() string {
	th := f.app.theme
	label := func(n int, text string) string {
		if f.focus == n {
			return th.Focused.Render("> " + text)
		}
		return th.Bold.Render("  " + text)
	}

	var b strings.Builder
	b.WriteString(f.RenderTitle() + "\n")
	b.WriteString(label(fieldTitle, "Title") + "\n" + f.title.View() + "\n\n")
	b.WriteString(label(fieldDescription, "Description") + "\n" + f.description.View() + "\n\n")
	b.WriteString(label(fieldWorkflow, "Workflow") + "  ‹ " + f.workflows[f.workflowIdx].Label + " ›\n")
	b.WriteString(label(fieldWorker, "Worker") + "    ‹ " + f.workers[f.workerIdx].Label + " ›\n")
	if f.err != "" {
		b.WriteString("\n" + th.Error.Render(f.err) + "\n")
	}
	if f.submitting {
		b.WriteString("\n" + th.Faint.Render("Saving...") + "\n")
	}
	b.WriteString("\n" + th.Faint.Render("tab next field • ←/→ change option • ctrl+s save • esc cancel"))
	return th.Modal.Render(b.String())
}

// ShortHelp returns keybindings to be shown in the help line.
func (f *NewIssueForm) ShortHelp() []key.Binding {
	km := f.app.keyMap
	return []key.Binding{km.Next, km.Prev, km.Left, km.Right, km.Save, km.Back}
}

func (f *NewIssueForm) setFocus(n int) {
	f.focus = n
	f.title.Blur()
	f.description.Blur()
	switch n {
	case fieldTitle:
		f.title.Focus()
	case fieldDescription:
		f.description.Focus()
	}
}

// submit validates locally and dispatches the create.
func (f *NewIssueForm) submit() tea.Cmd {
	if f.submitting {
		return nil
	}
	title, err := tracker.ValidateTitle(f.title.Value())
	if err != nil {
		f.err = err.Error()
		return nil
	}
	desc, err := tracker.ValidateDescription(f.description.Value())
	if err != nil {
		f.err = err.Error()
		return nil
	}
	f.err = ""
	f.submitting = true
	return f.app.createIssue(tracker.CreateIssueInput{
		Description: desc,
		Title:       title,
		Workflow:    string(f.workflows[f.workflowIdx].Workflow),
		AssignedTo:  f.workers[f.workerIdx].ID,
	})
}

func cycle(idx, n int, msg tea.KeyMsg, km KeyMap) int {
	switch {
	case key.Matches(msg, km.Right):
		return (idx + 1) % n
	case key.Matches(msg, km.Left):
		return (idx + n - 1) % n
	}
	return idx
}
