package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joescharf/bleue/internal/models"
	"github.com/joescharf/bleue/internal/output"
)

type pickerOption struct {
	label string
	value string
}

// PickerScreen is a modal single-choice list. Selecting an option dispatches
// onSave with its value.
type PickerScreen struct {
	BaseScreen
	prompt  string
	options []pickerOption
	cursor  int
	onSave  func(value string) tea.Cmd
}

// NewWorkerPicker offers the worker registry for a pending issue.
func NewWorkerPicker(app *App, issue *models.Issue) *PickerScreen {
	var opts []pickerOption
	for _, o := range models.WorkerOptions() {
		opts = append(opts, pickerOption{label: o.Label, value: o.ID})
	}
	return newPicker(app, "Assign Worker", issue, "Select a worker to assign this issue:", opts, issue.AssignedTo,
		func(v string) tea.Cmd { return app.assignIssue(issue.ID, v) })
}

// NewWorkflowPicker offers the workflows for a pending issue.
func NewWorkflowPicker(app *App, issue *models.Issue) *PickerScreen {
	var opts []pickerOption
	for _, o := range models.WorkflowOptions {
		opts = append(opts, pickerOption{label: o.Label, value: string(o.Workflow)})
	}
	return newPicker(app, "Select Workflow", issue, "Choose a workflow for this issue:", opts, string(issue.Workflow),
		func(v string) tea.Cmd { return app.setWorkflow(issue.ID, v) })
}

func newPicker(app *App, title string, issue *models.Issue, prompt string, opts []pickerOption, current string, onSave func(string) tea.Cmd) *PickerScreen {
	p := &PickerScreen{
		BaseScreen: NewBaseScreen(app, fmt.Sprintf("%s · Issue #%d", title, issue.ID)),
		prompt:     prompt,
		options:    opts,
		onSave:     onSave,
	}
	for n, o := range opts {
		if o.value == current {
			p.cursor = n
			break
		}
	}
	return p
}

// Init does nothing.
func (p *PickerScreen) Init() tea.Cmd { return nil }

// Update moves the cursor, saves or cancels.
func (p *PickerScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch {
	case key.Matches(km, p.app.keyMap.Up):
		if p.cursor > 0 {
			p.cursor--
		}
	case key.Matches(km, p.app.keyMap.Down):
		if p.cursor < len(p.options)-1 {
			p.cursor++
		}
	case key.Matches(km, p.app.keyMap.Select):
		return p, p.onSave(p.options[p.cursor].value)
	case key.Matches(km, p.app.keyMap.Back):
		return p, p.app.pop()
	}
	return p, nil
}

// View renders the options.
func (p *PickerScreen) View() string {
	th := p.app.theme
	var b strings.Builder
	b.WriteString(p.RenderTitle() + "\n")
	b.WriteString(th.Subtitle.Render(p.prompt) + "\n\n")
	for n, o := range p.options {
		cursor, style := " ", th.UnselectedItem
		if n == p.cursor {
			cursor, style = ">", th.SelectedItem
		}
		b.WriteString(cursor + " " + style.Render(o.label) + "\n")
	}
	b.WriteString("\n" + th.Faint.Render("enter to save • esc to cancel"))
	return th.Modal.Render(b.String())
}

// ShortHelp returns keybindings to be shown in the help line.
func (p *PickerScreen) ShortHelp() []key.Binding {
	km := p.app.keyMap
	return []key.Binding{km.Up, km.Down, km.Select, km.Back}
}

// ConfirmDeleteScreen asks before deleting an issue.
type ConfirmDeleteScreen struct {
	BaseScreen
	issue *models.Issue
}

// NewConfirmDeleteScreen creates the confirmation modal.
func NewConfirmDeleteScreen(app *App, issue *models.Issue) *ConfirmDeleteScreen {
	return &ConfirmDeleteScreen{
		BaseScreen: NewBaseScreen(app, fmt.Sprintf("Delete Issue #%d", issue.ID)),
		issue:      issue,
	}
}

// Init does nothing.
func (c *ConfirmDeleteScreen) Init() tea.Cmd { return nil }

// Update confirms with y or enter and cancels with n or esc.
func (c *ConfirmDeleteScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil
	}
	switch {
	case key.Matches(km, c.app.keyMap.Confirm):
		return c, c.app.deleteIssue(c.issue.ID)
	case key.Matches(km, c.app.keyMap.Back), km.String() == "n":
		return c, c.app.pop()
	}
	return c, nil
}

// View renders the prompt.
func (c *ConfirmDeleteScreen) View() string {
	th := c.app.theme
	label := c.issue.Title
	if label == "" {
		label = c.issue.Description
	}
	body := c.RenderTitle() + "\n" +
		th.Text.Render(output.Truncate(label, 60)) + "\n\n" +
		th.Error.Render("This cannot be undone. Its comments are deleted too.") + "\n\n" +
		th.Faint.Render("y to delete • n or esc to cancel")
	return th.Modal.Render(body)
}

// ShortHelp returns keybindings to be shown in the help line.
func (c *ConfirmDeleteScreen) ShortHelp() []key.Binding {
	return []key.Binding{c.app.keyMap.Confirm, c.app.keyMap.Back}
}
