// Package workflow runs the agent-driven steps that close out an issue.
package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Context carries the identity of one workflow run through its steps.
type Context struct {
	IssueID int64
	RunID   string
	Logger  *zap.Logger
}

// NewContext returns a Context with a fresh run id and a logger tagged with
// the issue and run.
func NewContext(issueID int64, logger *zap.Logger) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	runID := NewRunID()
	return &Context{
		IssueID: issueID,
		RunID:   runID,
		Logger:  logger.With(zap.Int64("issue_id", issueID), zap.String("run_id", runID)),
	}
}

// NewRunID returns a new lower-case ULID identifying a workflow run.
func NewRunID() string {
	return strings.ToLower(ulid.Make().String())
}

// Result is the outcome of one step.
type Result struct {
	Success bool
	Message string
}

// Step is one unit of a workflow. A critical step that fails stops the run.
type Step interface {
	Name() string
	Critical() bool
	Run(ctx context.Context, wc *Context) Result
}

// Finalizer is implemented by steps whose closing actions must happen even
// when the run ends before the step starts. Finalize gets a context that is
// never cancelled.
type Finalizer interface {
	Finalize(ctx context.Context, wc *Context)
}

// StepError reports the critical step that stopped a run.
type StepError struct {
	Step    string
	Message string
}

func (e *StepError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("critical step %q failed", e.Step)
	}
	return fmt.Sprintf("critical step %q failed: %s", e.Step, e.Message)
}

// Runner executes steps in order.
type Runner struct{}

// Run executes steps sequentially. Non-critical failures are logged and the
// run continues; the first failing critical step ends the run with a
// *StepError. A panicking step counts as a failure. When the run ends early,
// steps that never ran are finalized if they implement Finalizer.
func (r *Runner) Run(ctx context.Context, wc *Context, steps ...Step) ([]Result, error) {
	results := make([]Result, 0, len(steps))
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			finalizeSkipped(ctx, wc, steps[i:])
			return results, fmt.Errorf("workflow cancelled before %q: %w", step.Name(), err)
		}

		wc.Logger.Info("step started", zap.String("step", step.Name()))
		res := runStep(ctx, wc, step)
		results = append(results, res)

		if res.Success {
			wc.Logger.Info("step completed", zap.String("step", step.Name()))
			continue
		}
		wc.Logger.Error("step failed", zap.String("step", step.Name()), zap.String("message", res.Message))
		if step.Critical() {
			finalizeSkipped(ctx, wc, steps[i+1:])
			return results, &StepError{Step: step.Name(), Message: res.Message}
		}
	}
	return results, nil
}

func finalizeSkipped(ctx context.Context, wc *Context, skipped []Step) {
	ctx = context.WithoutCancel(ctx)
	for _, step := range skipped {
		f, ok := step.(Finalizer)
		if !ok {
			continue
		}
		wc.Logger.Warn("step skipped, finalizing", zap.String("step", step.Name()))
		func() {
			defer func() {
				if p := recover(); p != nil {
					wc.Logger.Error("finalize panicked", zap.String("step", step.Name()), zap.Any("panic", p))
				}
			}()
			f.Finalize(ctx, wc)
		}()
	}
}

func runStep(ctx context.Context, wc *Context, step Step) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			wc.Logger.Warn("step panicked", zap.String("step", step.Name()), zap.Any("panic", p))
			res = Result{Success: false, Message: fmt.Sprintf("panic: %v", p)}
		}
	}()
	return step.Run(ctx, wc)
}
