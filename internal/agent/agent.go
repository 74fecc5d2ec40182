// Package agent invokes an AI coding agent with a named slash-command template.
package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AgentImplementor is the agent name used by implementation steps.
const AgentImplementor = "sdlc_implementor"

// TemplateRequest asks an agent to run a slash command with arguments.
type TemplateRequest struct {
	AgentName    string   `json:"agent_name"`
	SlashCommand string   `json:"slash_command"`
	Args         []string `json:"args"`
	RunID        string   `json:"run_id"`
	IssueID      int64    `json:"issue_id"`
	Model        string   `json:"model"`
}

// Response is the final outcome of an agent invocation.
type Response struct {
	Success   bool   `json:"success"`
	Output    string `json:"output"`
	SessionID string `json:"session_id,omitempty"`
}

// Event is one streamed progress message from a running agent.
type Event struct {
	Type string         // "assistant", "result", ...
	Text string         // human-readable text, empty for non-text events
	Raw  map[string]any // decoded message as received
}

// StreamHandler receives events while the agent runs. It may be nil.
type StreamHandler func(Event)

// Executor runs agent templates.
type Executor interface {
	ExecuteTemplate(ctx context.Context, req TemplateRequest, handler StreamHandler) (*Response, error)
}

// Prompt returns the command line form of the request, e.g. "/adw-pull-request 12".
func (r TemplateRequest) Prompt() string {
	parts := append([]string{r.SlashCommand}, r.Args...)
	return strings.TrimSpace(strings.Join(parts, " "))
}

// RenderTemplate expands the slash command from <workdir>/.claude/commands/<name>.md,
// substituting $ARGUMENTS and $1..$n. When no template file exists the plain
// prompt is returned.
func RenderTemplate(workdir string, req TemplateRequest) (string, error) {
	name := strings.TrimPrefix(req.SlashCommand, "/")
	if name == "" {
		return "", fmt.Errorf("empty slash command")
	}
	path := filepath.Join(workdir, ".claude", "commands", name+".md")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return req.Prompt(), nil
	}
	if err != nil {
		return "", fmt.Errorf("read command template %s: %w", path, err)
	}

	text := strings.ReplaceAll(string(data), "$ARGUMENTS", strings.Join(req.Args, " "))
	for i := len(req.Args); i >= 1; i-- {
		text = strings.ReplaceAll(text, fmt.Sprintf("$%d", i), req.Args[i-1])
	}
	return text, nil
}

func emit(handler StreamHandler, ev Event) {
	if handler != nil {
		handler(ev)
	}
}
