package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ClaudeCLI runs templates through the `claude` command in headless mode and
// parses its stream-json output.
type ClaudeCLI struct {
	Command   string // binary name or path, default "claude"
	WorkDir   string // directory the agent runs in
	OutputDir string // when set, raw output is kept under <OutputDir>/<run id>/<agent name>/
	Model     string // used when the request names none
	Logger    *zap.Logger
}

// NewClaudeCLI returns a ClaudeCLI running in workdir.
func NewClaudeCLI(workdir, model string, logger *zap.Logger) *ClaudeCLI {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClaudeCLI{Command: "claude", WorkDir: workdir, Model: model, Logger: logger}
}

func (c *ClaudeCLI) args(req TemplateRequest) []string {
	model := req.Model
	if model == "" {
		model = c.Model
	}
	args := []string{"-p", req.Prompt(), "--output-format", "stream-json", "--verbose"}
	if model != "" {
		args = append(args, "--model", model)
	}
	return args
}

// ExecuteTemplate runs the agent and blocks until it exits. A non-zero exit or
// an error result is reported as Success=false, not as an error; the error
// return is reserved for failures to start or read the process.
func (c *ClaudeCLI) ExecuteTemplate(ctx context.Context, req TemplateRequest, handler StreamHandler) (*Response, error) {
	command := c.Command
	if command == "" {
		command = "claude"
	}
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cmd := exec.CommandContext(ctx, command, c.args(req)...)
	cmd.Dir = c.WorkDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("agent stdout pipe: %w", err)
	}

	var src io.Reader = stdout
	if c.OutputDir != "" {
		f, err := c.openRawOutput(req)
		if err != nil {
			logger.Warn("raw output file unavailable", zap.Error(err))
		} else {
			defer f.Close()
			src = io.TeeReader(stdout, f)
		}
	}

	logger.Debug("starting agent",
		zap.String("agent", req.AgentName),
		zap.String("command", req.SlashCommand),
		zap.String("run_id", req.RunID))

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", command, err)
	}

	resp, parseErr := ParseStream(src, handler)
	if parseErr != nil {
		// The agent blocks on a full pipe once we stop reading, and Wait
		// would never return.
		_, _ = io.Copy(io.Discard, src)
	}
	waitErr := cmd.Wait()

	if parseErr != nil {
		return nil, fmt.Errorf("read agent output: %w", parseErr)
	}
	if waitErr != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = waitErr.Error()
		}
		if resp.Output == "" || resp.Output == noResultOutput {
			resp.Output = msg
		}
		resp.Success = false
		logger.Warn("agent exited with error", zap.String("agent", req.AgentName), zap.Error(waitErr))
	}
	return resp, nil
}

func (c *ClaudeCLI) openRawOutput(req TemplateRequest) (*os.File, error) {
	dir := filepath.Join(c.OutputDir, req.RunID, req.AgentName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return os.Create(filepath.Join(dir, "raw_output.jsonl"))
}

const noResultOutput = "agent produced no result"

// maxStreamLine bounds one stream-json line.
var maxStreamLine = 16 * 1024 * 1024

// streamMessage is the subset of stream-json fields the parser reads.
type streamMessage struct {
	Type      string `json:"type"`
	Subtype   string `json:"subtype"`
	IsError   bool   `json:"is_error"`
	Result    string `json:"result"`
	SessionID string `json:"session_id"`
	Message   struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
}

// ParseStream reads stream-json lines from r, forwards each message to handler
// and builds the Response from the final "result" message. Lines that are not
// JSON are skipped. Without a result message the run counts as failed.
func ParseStream(r io.Reader, handler StreamHandler) (*Response, error) {
	resp := &Response{}
	var lastText string
	sawResult := false

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxStreamLine)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var msg streamMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			continue
		}
		var raw map[string]any
		_ = json.Unmarshal(line, &raw)

		if msg.SessionID != "" {
			resp.SessionID = msg.SessionID
		}

		ev := Event{Type: msg.Type, Raw: raw}
		switch msg.Type {
		case "assistant":
			var parts []string
			for _, block := range msg.Message.Content {
				if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
					parts = append(parts, block.Text)
				}
			}
			ev.Text = strings.Join(parts, "\n")
			if ev.Text != "" {
				lastText = ev.Text
			}
		case "result":
			sawResult = true
			ev.Text = msg.Result
			resp.Output = msg.Result
			resp.Success = !msg.IsError && (msg.Subtype == "" || msg.Subtype == "success")
		}
		emit(handler, ev)
	}
	if err := sc.Err(); err != nil {
		return resp, err
	}

	if !sawResult {
		resp.Success = false
		if resp.Output == "" {
			resp.Output = lastText
		}
		if resp.Output == "" {
			resp.Output = noResultOutput
		}
	}
	return resp, nil
}
