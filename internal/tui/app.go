package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/joescharf/bleue/internal/models"
	"github.com/joescharf/bleue/internal/tracker"
)

// IssueService is the part of tracker.IssueStore the TUI drives.
type IssueService interface {
	FetchAll(ctx context.Context) ([]*models.Issue, error)
	Fetch(ctx context.Context, id int64) (*models.Issue, error)
	Create(ctx context.Context, in tracker.CreateIssueInput) (*models.Issue, error)
	UpdateAssignment(ctx context.Context, id int64, workerID string) (*models.Issue, error)
	UpdateWorkflow(ctx context.Context, id int64, workflow string) (*models.Issue, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// CommentService is the part of tracker.CommentLog the TUI reads.
type CommentService interface {
	List(ctx context.Context, issueID int64) ([]*models.Comment, error)
}

// KeyMap defines keybindings
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Select   key.Binding
	Back     key.Binding
	Quit     key.Binding
	Help     key.Binding
	New      key.Binding
	View     key.Binding
	Refresh  key.Binding
	Assign   key.Binding
	Workflow key.Binding
	Delete   key.Binding
	Next     key.Binding
	Prev     key.Binding
	Save     key.Binding
	Confirm  key.Binding
}

// DefaultKeyMap returns the default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Left: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "previous option"),
		),
		Right: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "next option"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new"),
		),
		View: key.NewBinding(
			key.WithKeys("enter", "v"),
			key.WithHelp("enter/v", "view"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Assign: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "assign"),
		),
		Workflow: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "workflow"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "delete"),
		),
		Next: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next field"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous field"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y", "enter"),
			key.WithHelp("y", "confirm"),
		),
	}
}

// App is the root bubbletea model. It owns a stack of screens with the issue
// list at the bottom.
type App struct {
	ctx      context.Context
	issues   IssueService
	comments CommentService
	logger   *zap.Logger

	theme    *Theme
	keyMap   KeyMap
	help     help.Model
	list     *ListScreen
	stack    []Screen
	width    int
	height   int
	ready    bool
	showHelp bool

	status    string
	statusErr bool
}

// NewApp creates the TUI application.
func NewApp(ctx context.Context, issues IssueService, comments CommentService, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	theme := NewTheme()
	helpModel := help.New()
	helpModel.Styles.ShortKey = theme.Bold
	helpModel.Styles.ShortDesc = theme.Text
	helpModel.Styles.ShortSeparator = theme.Faint

	app := &App{
		ctx:      ctx,
		issues:   issues,
		comments: comments,
		logger:   logger,
		theme:    theme,
		keyMap:   DefaultKeyMap(),
		help:     helpModel,
		width:    80,
		height:   24,
	}
	app.list = NewListScreen(app)
	app.stack = []Screen{app.list}
	return app
}

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

type pushScreenMsg struct{ screen Screen }

type popScreenMsg struct{}

type issuesLoadedMsg struct {
	issues []*models.Issue
	err    error
}

type detailLoadedMsg struct {
	id       int64
	issue    *models.Issue
	comments []*models.Comment
	err      error
}

// issueSavedMsg reports the outcome of a create, assign or workflow change.
type issueSavedMsg struct {
	issue  *models.Issue
	action string
	err    error
}

type issueDeletedMsg struct {
	id  int64
	err error
}

// ---------------------------------------------------------------------------
// bubbletea.Model
// ---------------------------------------------------------------------------

// Init loads the issue list.
func (a *App) Init() tea.Cmd {
	a.logger.Info("tui started")
	return a.list.Init()
}

// Update routes messages. Data results for the list always reach the list
// screen; everything else goes to the top of the stack.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		a.status = ""
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if !a.capturingText() {
			switch {
			case key.Matches(msg, a.keyMap.Quit):
				return a, tea.Quit
			case key.Matches(msg, a.keyMap.Help):
				a.showHelp = !a.showHelp
				return a, nil
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		a.ready = true
		var cmds []tea.Cmd
		for _, s := range a.stack {
			_, cmd := s.Update(msg)
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)

	case pushScreenMsg:
		a.stack = append(a.stack, msg.screen)
		return a, msg.screen.Init()

	case popScreenMsg:
		a.popToRoot(false)
		return a, nil

	case issuesLoadedMsg:
		_, cmd := a.list.Update(msg)
		return a, cmd

	case issueSavedMsg:
		if msg.err != nil {
			a.logger.Warn("issue update failed", zap.String("action", msg.action), zap.Error(msg.err))
			a.flashError(msg.err)
			if a.capturingText() {
				_, cmd := a.top().Update(msg)
				return a, cmd
			}
			a.popToRoot(true)
			return a, nil
		}
		a.logger.Info("issue saved", zap.Int64("issue_id", msg.issue.ID), zap.String("action", msg.action))
		a.flash(fmt.Sprintf("Issue #%d %s successfully", msg.issue.ID, msg.action))
		a.popToRoot(true)
		return a, a.loadIssues()

	case issueDeletedMsg:
		a.popToRoot(true)
		if msg.err != nil {
			a.logger.Warn("issue delete failed", zap.Int64("issue_id", msg.id), zap.Error(msg.err))
			a.flashError(fmt.Errorf("error deleting issue: %w", msg.err))
			return a, nil
		}
		a.logger.Info("issue deleted", zap.Int64("issue_id", msg.id))
		a.flash(fmt.Sprintf("Issue #%d deleted successfully", msg.id))
		return a, a.loadIssues()
	}

	top := a.top()
	newScreen, cmd := top.Update(msg)
	if s, ok := newScreen.(Screen); ok && s != top {
		a.stack[len(a.stack)-1] = s
	}
	return a, cmd
}

// View renders the top screen plus the status and help lines.
func (a *App) View() string {
	if !a.ready {
		return "Initializing..."
	}

	parts := []string{a.top().View()}
	if a.status != "" {
		style := a.theme.Success
		if a.statusErr {
			style = a.theme.Error
		}
		parts = append(parts, style.Render(a.status))
	}
	if a.showHelp {
		parts = append(parts, a.help.ShortHelpView(a.top().ShortHelp()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (a *App) top() Screen {
	return a.stack[len(a.stack)-1]
}

func (a *App) capturingText() bool {
	ts, ok := a.top().(textScreen)
	return ok && ts.capturesText()
}

// popToRoot removes the top screen, or every screen above the list when all is set.
func (a *App) popToRoot(all bool) {
	if len(a.stack) <= 1 {
		return
	}
	if all {
		a.stack = a.stack[:1]
		return
	}
	a.stack = a.stack[:len(a.stack)-1]
}

func (a *App) flash(text string) {
	a.status = text
	a.statusErr = false
}

func (a *App) flashError(err error) {
	a.status = "Error: " + err.Error()
	a.statusErr = true
}

// push returns a command that opens s on top of the stack.
func (a *App) push(s Screen) tea.Cmd {
	return func() tea.Msg { return pushScreenMsg{screen: s} }
}

// pop returns a command that closes the top screen.
func (a *App) pop() tea.Cmd {
	return func() tea.Msg { return popScreenMsg{} }
}

// ---------------------------------------------------------------------------
// Store commands, run off the render loop
// ---------------------------------------------------------------------------

func (a *App) loadIssues() tea.Cmd {
	return func() tea.Msg {
		issues, err := a.issues.FetchAll(a.ctx)
		return issuesLoadedMsg{issues: issues, err: err}
	}
}

func (a *App) loadDetail(id int64) tea.Cmd {
	return func() tea.Msg {
		issue, err := a.issues.Fetch(a.ctx, id)
		if err != nil {
			return detailLoadedMsg{id: id, err: err}
		}
		comments, err := a.comments.List(a.ctx, id)
		return detailLoadedMsg{id: id, issue: issue, comments: comments, err: err}
	}
}

func (a *App) createIssue(in tracker.CreateIssueInput) tea.Cmd {
	return func() tea.Msg {
		issue, err := a.issues.Create(a.ctx, in)
		return issueSavedMsg{issue: issue, action: "created", err: err}
	}
}

func (a *App) assignIssue(id int64, workerID string) tea.Cmd {
	return func() tea.Msg {
		issue, err := a.issues.UpdateAssignment(a.ctx, id, workerID)
		return issueSavedMsg{issue: issue, action: "assigned", err: err}
	}
}

func (a *App) setWorkflow(id int64, workflow string) tea.Cmd {
	return func() tea.Msg {
		issue, err := a.issues.UpdateWorkflow(a.ctx, id, workflow)
		return issueSavedMsg{issue: issue, action: "updated", err: err}
	}
}

func (a *App) deleteIssue(id int64) tea.Cmd {
	return func() tea.Msg {
		_, err := a.issues.Delete(a.ctx, id)
		return issueDeletedMsg{id: id, err: err}
	}
}

// Run starts the TUI and blocks until the user quits.
func Run(ctx context.Context, issues IssueService, comments CommentService, logger *zap.Logger) error {
	app := NewApp(ctx, issues, comments, logger)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}
