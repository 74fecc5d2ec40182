package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/joescharf/bleue/internal/models"
)

// UI writes user-facing lines for the CLI. Info and success go to Out,
// warnings and errors to ErrOut. Verbose and DryRun gate their helpers.
type UI struct {
	Verbose bool
	DryRun  bool
	Out     io.Writer
	ErrOut  io.Writer
}

// New creates a UI on stdout/stderr.
func New() *UI {
	return &UI{Out: os.Stdout, ErrOut: os.Stderr}
}

var (
	cyan   = color.New(color.FgHiCyan).SprintFunc()
	green  = color.New(color.FgHiGreen).SprintFunc()
	yellow = color.New(color.FgHiYellow).SprintFunc()
	red    = color.New(color.FgHiRed).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()

	prefixes = map[string]string{
		"info":    color.New(color.FgHiBlue).Sprint("i"),
		"success": green("✓"),
		"warning": yellow("⚠"),
		"error":   red("✗"),
		"verbose": color.New(color.FgHiBlue).Sprint("  →"),
	}

	statusColors = map[models.IssueStatus]func(a ...any) string{
		models.IssueStatusPending:   yellow,
		models.IssueStatusStarted:   cyan,
		models.IssueStatusCompleted: green,
	}
)

// Faint dims s, for secondary detail such as comment metadata.
func Faint(s string) string { return faint(s) }

// IssueRef renders an issue id as "#12".
func IssueRef(id int64) string {
	return cyan(fmt.Sprintf("#%d", id))
}

// StatusColor colors an issue status; unknown values are returned as is.
func StatusColor(status models.IssueStatus) string {
	if paint, ok := statusColors[status]; ok {
		return paint(string(status))
	}
	return string(status)
}

// WorkflowColor renders the workflow's display name, red when unset.
func WorkflowColor(w models.Workflow) string {
	switch w {
	case models.WorkflowMain:
		return cyan(w.Display())
	case models.WorkflowPatch:
		return yellow(w.Display())
	}
	return red(w.Display())
}

// WorkerName is the worker's display name, or placeholder when unassigned.
func WorkerName(id, placeholder string) string {
	if name := models.WorkerDisplayName(id); name != "" {
		return name
	}
	return placeholder
}

// Truncate collapses whitespace and shortens s to at most n runes, ending in
// an ellipsis when cut. n <= 0 disables truncation.
func Truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

// Timestamp formats t in local time for tables, "-" for the zero time.
func Timestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func line(w io.Writer, kind, format string, a []any) {
	fmt.Fprintf(w, "%s %s\n", prefixes[kind], fmt.Sprintf(format, a...))
}

func (u *UI) Info(format string, a ...any)    { line(u.Out, "info", format, a) }
func (u *UI) Success(format string, a ...any) { line(u.Out, "success", format, a) }
func (u *UI) Warning(format string, a ...any) { line(u.ErrOut, "warning", format, a) }
func (u *UI) Error(format string, a ...any)   { line(u.ErrOut, "error", format, a) }

func (u *UI) VerboseLog(format string, a ...any) {
	if u.Verbose {
		line(u.Out, "verbose", format, a)
	}
}

// DryRunMsg reports a skipped mutation when DryRun is set.
func (u *UI) DryRunMsg(format string, a ...any) {
	if u.DryRun {
		u.Warning("[DRY-RUN] "+format, a...)
	}
}

// Field prints an indented "Label:  value" detail line.
func (u *UI) Field(label, value string) {
	fmt.Fprintf(u.Out, "  %-11s %s\n", label+":", value)
}

// Table returns a borderless, left-aligned table writing to Out.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders:  tw.BorderNone,
			Settings: tw.Settings{Lines: tw.LinesNone, Separators: tw.SeparatorsNone},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}
