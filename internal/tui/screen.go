package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Screen is one view on the App's screen stack.
type Screen interface {
	Init() tea.Cmd
	Update(tea.Msg) (tea.Model, tea.Cmd)
	View() string
	ShortHelp() []key.Binding
}

// textScreen is implemented by screens that take free text, so the global
// q and ? bindings do not steal keystrokes.
type textScreen interface {
	capturesText() bool
}

// BaseScreen provides common functionality for all screens.
type BaseScreen struct {
	app   *App
	title string
}

// NewBaseScreen creates a new base screen.
func NewBaseScreen(app *App, title string) BaseScreen {
	return BaseScreen{app: app, title: title}
}

// ShortHelp returns keybindings to be shown in the help line.
func (b *BaseScreen) ShortHelp() []key.Binding {
	return []key.Binding{b.app.keyMap.Back, b.app.keyMap.Help, b.app.keyMap.Quit}
}

// RenderTitle renders the screen title.
func (b *BaseScreen) RenderTitle() string {
	return b.app.theme.Title.Render(b.title)
}

// RenderFooter renders the screen footer.
func (b *BaseScreen) RenderFooter() string {
	return b.app.theme.Faint.Render("? for help • q to quit")
}
