package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/browseragent/agentcore"
)

// Executor is the timeout-bounded dispatch half of the ToolRegistry: given
// a call id, tool name, and raw arguments it validates, runs, and emits the
// ToolExecutionStart/End/Error/Timeout lifecycle events a TurnManager
// needs to stream back to the caller.
type Executor struct {
	registry       *Registry
	validator      *Validator
	defaultTimeout time.Duration
	sem            *semaphore.Weighted
}

// NewExecutor builds an Executor bounding concurrent dispatch to
// maxConcurrent simultaneous tool calls, the way the teacher's worker pool
// bounds MaxConcurrentTools.
func NewExecutor(registry *Registry, defaultTimeout time.Duration, maxConcurrent int64) *Executor {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Executor{
		registry:       registry,
		validator:      NewValidator(),
		defaultTimeout: defaultTimeout,
		sem:            semaphore.NewWeighted(maxConcurrent),
	}
}

// Execute runs a single tool call, validating arguments first. Every
// outcome is both returned as a *agentcore.ToolError (nil on success) and
// mirrored into sink as a tool_execution_* event carrying submissionID, so
// events emitted from a task carry that task's submission id (I7); sink may
// be nil to skip emission (e.g. in tests).
func (e *Executor) Execute(ctx context.Context, sink agentcore.EventSink, submissionID, callID, toolName string, input json.RawMessage, timeout time.Duration) (string, *agentcore.ToolError) {
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}

	emit(sink, submissionID, agentcore.EventMsg{Tag: agentcore.EvToolExecutionStart, CallID: callID, ToolName: toolName})
	start := time.Now()

	t, ok := e.registry.Get(toolName)
	if !ok {
		toolErr := &agentcore.ToolError{Code: agentcore.ToolCodeNotFound, Message: fmt.Sprintf("tool %q is not registered", toolName)}
		emit(sink, submissionID, agentcore.EventMsg{Tag: agentcore.EvToolExecutionError, CallID: callID, ToolName: toolName, ErrorMessage: toolErr.Error(), DurationMs: time.Since(start).Milliseconds()})
		return "", toolErr
	}

	if issues := e.validator.Validate(t.InputSchema(), input); len(issues) > 0 {
		toolErr := &agentcore.ToolError{Code: agentcore.ToolCodeValidationError, Message: "argument validation failed", Issues: issues}
		emit(sink, submissionID, agentcore.EventMsg{Tag: agentcore.EvToolExecutionError, CallID: callID, ToolName: toolName, ErrorMessage: toolErr.Error(), DurationMs: time.Since(start).Milliseconds()})
		return "", toolErr
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		toolErr := &agentcore.ToolError{Code: agentcore.ToolCodeExecutionError, Message: err.Error()}
		emit(sink, submissionID, agentcore.EventMsg{Tag: agentcore.EvToolExecutionError, CallID: callID, ToolName: toolName, ErrorMessage: toolErr.Error(), DurationMs: time.Since(start).Milliseconds()})
		return "", toolErr
	}
	defer e.sem.Release(1)

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	output, err := t.Execute(execCtx, input)
	duration := time.Since(start)

	if execCtx.Err() == context.DeadlineExceeded {
		toolErr := &agentcore.ToolError{Code: agentcore.ToolCodeTimeout, Message: fmt.Sprintf("tool %q timed out after %s", toolName, timeout)}
		emit(sink, submissionID, agentcore.EventMsg{Tag: agentcore.EvToolExecutionTimeout, CallID: callID, ToolName: toolName, TimeoutMsV: int(timeout.Milliseconds()), DurationMs: duration.Milliseconds()})
		return "", toolErr
	}

	if err != nil {
		toolErr := &agentcore.ToolError{Code: agentcore.ToolCodeExecutionError, Message: err.Error()}
		emit(sink, submissionID, agentcore.EventMsg{Tag: agentcore.EvToolExecutionError, CallID: callID, ToolName: toolName, ErrorMessage: toolErr.Error(), DurationMs: duration.Milliseconds()})
		return "", toolErr
	}

	emit(sink, submissionID, agentcore.EventMsg{Tag: agentcore.EvToolExecutionEnd, CallID: callID, ToolName: toolName, Success: true, DurationMs: duration.Milliseconds()})
	return output, nil
}

// Call is one pending tool invocation, used by ExecuteBatch.
type Call struct {
	CallID   string
	ToolName string
	Input    json.RawMessage
	Timeout  time.Duration
}

// Result pairs a Call's CallID with its outcome.
type Result struct {
	CallID string
	Output string
	Err    *agentcore.ToolError
}

// ExecuteBatch runs every call concurrently, bounded by the Executor's
// semaphore, and returns results in the same order as calls regardless of
// completion order. submissionID is shared across the batch since every
// call belongs to the same task.
func (e *Executor) ExecuteBatch(ctx context.Context, sink agentcore.EventSink, submissionID string, calls []Call) []Result {
	results := make([]Result, len(calls))
	done := make(chan int, len(calls))

	for i, call := range calls {
		go func(idx int, c Call) {
			output, err := e.Execute(ctx, sink, submissionID, c.CallID, c.ToolName, c.Input, c.Timeout)
			results[idx] = Result{CallID: c.CallID, Output: output, Err: err}
			done <- idx
		}(i, call)
	}

	for range calls {
		<-done
	}
	return results
}

func emit(sink agentcore.EventSink, submissionID string, msg agentcore.EventMsg) {
	if sink == nil {
		return
	}
	sink.Emit(agentcore.Event{ID: submissionID, Msg: msg})
}
