package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

const defaultMaxTokens = 8192

// systemPrompt frames a rendered slash-command template for a plain Messages call.
const systemPrompt = `You are an implementation agent working on a software issue tracker workflow.
Follow the instructions of the command below and answer with a concise report of what you did.`

// AnthropicAPI runs templates against the Anthropic Messages API. Text deltas
// reach the handler as "text_delta" events; each finished text block is
// delivered once as an "assistant" event. It has no tool access, so it suits commands
// whose output is text (summaries, PR descriptions).
type AnthropicAPI struct {
	api       *anthropic.Client
	model     anthropic.Model
	workdir   string
	maxTokens int64
	logger    *zap.Logger
}

// NewAnthropicAPI creates an API-backed executor. Extra options are passed to
// the client (tests use option.WithBaseURL).
func NewAnthropicAPI(apiKey, model, workdir string, logger *zap.Logger, opts ...option.RequestOption) *AnthropicAPI {
	if logger == nil {
		logger = zap.NewNop()
	}
	all := []option.RequestOption{}
	if apiKey != "" {
		all = append(all, option.WithAPIKey(apiKey))
	}
	all = append(all, opts...)
	client := anthropic.NewClient(all...)
	return &AnthropicAPI{
		api:       &client,
		model:     anthropic.Model(model),
		workdir:   workdir,
		maxTokens: defaultMaxTokens,
		logger:    logger,
	}
}

// resolveModel maps the short aliases used by CLI requests ("sonnet") to the
// configured model id. Full model ids pass through.
func (a *AnthropicAPI) resolveModel(requested string) anthropic.Model {
	if strings.HasPrefix(requested, "claude-") {
		return anthropic.Model(requested)
	}
	return a.model
}

// ExecuteTemplate renders the command template and streams the reply. API
// errors are reported as Success=false with the error text as output.
func (a *AnthropicAPI) ExecuteTemplate(ctx context.Context, req TemplateRequest, handler StreamHandler) (*Response, error) {
	prompt, err := RenderTemplate(a.workdir, req)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("starting agent",
		zap.String("agent", req.AgentName),
		zap.String("command", req.SlashCommand),
		zap.String("run_id", req.RunID))

	stream := a.api.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     a.resolveModel(req.Model),
		MaxTokens: a.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	defer stream.Close()

	message := anthropic.Message{}
	var sb, block strings.Builder
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			return nil, fmt.Errorf("accumulate stream event: %w", err)
		}

		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockStartEvent:
			block.Reset()
		case anthropic.ContentBlockDeltaEvent:
			switch delta := ev.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				sb.WriteString(delta.Text)
				block.WriteString(delta.Text)
				emit(handler, Event{
					Type: "text_delta",
					Text: delta.Text,
					Raw:  map[string]any{"type": "text_delta", "text": delta.Text},
				})
			}
		case anthropic.ContentBlockStopEvent:
			if text := strings.TrimSpace(block.String()); text != "" {
				emit(handler, Event{
					Type: "assistant",
					Text: text,
					Raw:  map[string]any{"type": "assistant", "text": text},
				})
			}
			block.Reset()
		}
	}
	if err := stream.Err(); err != nil {
		a.logger.Warn("anthropic stream failed", zap.String("agent", req.AgentName), zap.Error(err))
		return &Response{Success: false, Output: err.Error()}, nil
	}

	output := strings.TrimSpace(sb.String())
	emit(handler, Event{
		Type: "result",
		Text: output,
		Raw:  map[string]any{"type": "result", "stop_reason": string(message.StopReason)},
	})
	return &Response{Success: true, Output: output, SessionID: message.ID}, nil
}
