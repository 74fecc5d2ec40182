package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/bleue/internal/models"
	"github.com/joescharf/bleue/internal/tracker"
)

func TestTemplateRequest_Prompt(t *testing.T) {
	assert.Equal(t, "/adw-pull-request", TemplateRequest{SlashCommand: "/adw-pull-request"}.Prompt())
	assert.Equal(t, "/implement 3 plan.md", TemplateRequest{SlashCommand: "/implement", Args: []string{"3", "plan.md"}}.Prompt())
}

func TestRenderTemplate(t *testing.T) {
	dir := t.TempDir()
	cmdDir := filepath.Join(dir, ".claude", "commands")
	require.NoError(t, os.MkdirAll(cmdDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cmdDir, "review.md"),
		[]byte("Review issue $1 using $2.\nAll args: $ARGUMENTS"), 0o644))

	t.Run("template file", func(t *testing.T) {
		got, err := RenderTemplate(dir, TemplateRequest{SlashCommand: "/review", Args: []string{"12", "plan.md"}})
		require.NoError(t, err)
		assert.Equal(t, "Review issue 12 using plan.md.\nAll args: 12 plan.md", got)
	})

	t.Run("missing template falls back to prompt", func(t *testing.T) {
		got, err := RenderTemplate(dir, TemplateRequest{SlashCommand: "/adw-pull-request"})
		require.NoError(t, err)
		assert.Equal(t, "/adw-pull-request", got)
	})

	t.Run("empty command", func(t *testing.T) {
		_, err := RenderTemplate(dir, TemplateRequest{})
		assert.Error(t, err)
	})
}

// --- AnthropicAPI ---

func sseEvent(name, data string) string {
	return fmt.Sprintf("event: %s\ndata: %s\n\n", name, data)
}

func anthropicStreamBody(chunks ...string) string {
	var sb strings.Builder
	sb.WriteString(sseEvent("message_start", `{"type":"message_start","message":{"id":"msg_01","type":"message","role":"assistant","content":[],"model":"claude-sonnet-4-5","stop_reason":null,"stop_sequence":null,"usage":{"input_tokens":10,"output_tokens":1}}}`))
	sb.WriteString(sseEvent("content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`))
	for _, c := range chunks {
		sb.WriteString(sseEvent("content_block_delta", fmt.Sprintf(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":%q}}`, c)))
	}
	sb.WriteString(sseEvent("content_block_stop", `{"type":"content_block_stop","index":0}`))
	sb.WriteString(sseEvent("message_delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"output_tokens":5}}`))
	sb.WriteString(sseEvent("message_stop", `{"type":"message_stop"}`))
	return sb.String()
}

func TestAnthropicAPI_ExecuteTemplate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(anthropicStreamBody("PR ", "description ready")))
	}))
	defer srv.Close()

	api := NewAnthropicAPI("test-key", "claude-sonnet-4-5", t.TempDir(), nil,
		option.WithBaseURL(srv.URL), option.WithMaxRetries(0))

	var deltas, messages []string
	resp, err := api.ExecuteTemplate(context.Background(),
		TemplateRequest{AgentName: AgentImplementor, SlashCommand: "/adw-pull-request", Model: "sonnet"},
		func(ev Event) {
			switch ev.Type {
			case "text_delta":
				deltas = append(deltas, ev.Text)
			case "assistant":
				messages = append(messages, ev.Text)
			}
		})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "PR description ready", resp.Output)
	assert.Equal(t, "msg_01", resp.SessionID)
	assert.Equal(t, []string{"PR ", "description ready"}, deltas)
	assert.Equal(t, []string{"PR description ready"}, messages, "one assistant event per text block")
}

func TestAnthropicAPI_OneProgressCommentPerReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(anthropicStreamBody("I ", "opened ", "the ", "pull ", "request.")))
	}))
	defer srv.Close()

	api := NewAnthropicAPI("test-key", "claude-sonnet-4-5", t.TempDir(), nil,
		option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	app := &fakeAppender{}
	h := ProgressCommentHandler(context.Background(), app, 3, "run-9", nil)

	resp, err := api.ExecuteTemplate(context.Background(), TemplateRequest{SlashCommand: "/adw-pull-request"}, h)
	require.NoError(t, err)
	require.True(t, resp.Success)

	require.Len(t, app.inputs, 1)
	assert.Equal(t, "I opened the pull request.", app.inputs[0].Text)
	assert.Equal(t, "run-9", app.inputs[0].Raw["run_id"])
}

func TestAnthropicAPI_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"overloaded"}}`))
	}))
	defer srv.Close()

	api := NewAnthropicAPI("test-key", "claude-sonnet-4-5", t.TempDir(), nil,
		option.WithBaseURL(srv.URL), option.WithMaxRetries(0))

	resp, err := api.ExecuteTemplate(context.Background(), TemplateRequest{SlashCommand: "/adw-pull-request"}, nil)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Output)
}

func TestAnthropicAPI_ResolveModel(t *testing.T) {
	api := NewAnthropicAPI("", "claude-sonnet-4-5", "", nil)
	assert.Equal(t, "claude-sonnet-4-5", string(api.resolveModel("sonnet")))
	assert.Equal(t, "claude-opus-4-1", string(api.resolveModel("claude-opus-4-1")))
	assert.Equal(t, "claude-sonnet-4-5", string(api.resolveModel("")))
}

// --- ProgressCommentHandler ---

type fakeAppender struct {
	inputs []tracker.CommentInput
	err    error
}

func (f *fakeAppender) Append(_ context.Context, in tracker.CommentInput) (*models.Comment, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, in)
	return &models.Comment{IssueID: in.IssueID, Comment: in.Text}, nil
}

func TestProgressCommentHandler(t *testing.T) {
	app := &fakeAppender{}
	h := ProgressCommentHandler(context.Background(), app, 7, "run-1", nil)

	h(Event{Type: "system"})
	h(Event{Type: "assistant", Text: "   "})
	h(Event{Type: "assistant", Text: "Opening PR", Raw: map[string]any{"type": "assistant"}})
	h(Event{Type: "result", Text: "done"})

	require.Len(t, app.inputs, 1)
	in := app.inputs[0]
	assert.Equal(t, int64(7), in.IssueID)
	assert.Equal(t, "Opening PR", in.Text)
	assert.Equal(t, models.CommentSourceAgent, in.Source)
	assert.Equal(t, models.CommentTypeWorkflow, in.Type)
	assert.Equal(t, "run-1", in.Raw["run_id"])
}

func TestProgressCommentHandler_DoesNotMutateEvent(t *testing.T) {
	app := &fakeAppender{}
	h := ProgressCommentHandler(context.Background(), app, 7, "run-1", nil)

	raw := map[string]any{"type": "assistant"}
	h(Event{Type: "assistant", Text: "Opening PR", Raw: raw})

	require.Len(t, app.inputs, 1)
	assert.Equal(t, "run-1", app.inputs[0].Raw["run_id"])
	assert.Equal(t, "Opening PR", app.inputs[0].Raw["text"])
	assert.Equal(t, map[string]any{"type": "assistant"}, raw)
}

func TestProgressCommentHandler_SwallowsErrors(t *testing.T) {
	app := &fakeAppender{err: errors.New("backend down")}
	h := ProgressCommentHandler(context.Background(), app, 7, "run-1", nil)
	assert.NotPanics(t, func() { h(Event{Type: "assistant", Text: "hello"}) })
}
