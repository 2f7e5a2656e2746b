package agentcore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RunState is TaskRunner's state machine (§4.5).
type RunState string

const (
	RunIdle      RunState = "idle"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
	RunCancelled RunState = "cancelled"
)

// TaskRunnerOptions configures one TaskRunner.Run call.
type TaskRunnerOptions struct {
	TimeoutMs   *int
	AutoCompact bool
}

// TaskRunner owns the multi-turn loop for one submission (§4.5): it streams
// turns through TurnManager until the model stops calling tools, enforcing
// MaxTurns, a timeout, cancellation, and threshold-triggered compaction.
type TaskRunner struct {
	session     *Session
	turnManager *TurnManager
	discoverer  ToolDiscoverer
	turnContext TurnContext

	cancel context.CancelFunc
	state  RunState
}

// NewTaskRunner binds a TaskRunner to the session it will drive, the
// TurnManager it drives turns through, the ToolRegistry it discovers tool
// definitions from (may be nil for a tool-free task), and an immutable
// TurnContext snapshot (I5: never mutated mid-task).
func NewTaskRunner(session *Session, turnManager *TurnManager, discoverer ToolDiscoverer, turnContext TurnContext) *TaskRunner {
	return &TaskRunner{session: session, turnManager: turnManager, discoverer: discoverer, turnContext: turnContext, state: RunIdle}
}

// Cancel requests the running task stop at its next suspension point.
// Partial output from an in-flight turn is never persisted (§4.5's
// cancellation semantics); it is a no-op if no task is running.
func (r *TaskRunner) Cancel() {
	if r.cancel != nil {
		r.cancel()
	}
}

// State returns the TaskRunner's current lifecycle state.
func (r *TaskRunner) State() RunState { return r.state }

// Run drives submissionID's input through the turn loop to completion,
// emitting TaskStarted/TaskComplete/TurnAborted/Error to the session's sink
// as it goes. ctx's cancellation and a call to Cancel are both treated as a
// user_interrupt; ctx's deadline (if any) is independent of opts.TimeoutMs,
// which this call establishes itself.
func (r *TaskRunner) Run(ctx context.Context, submissionID string, input []InputItem, opts TaskRunnerOptions) error {
	r.state = RunRunning

	toolNames := r.turnContext.ToolsConfig.ToolNames
	var timeoutMsField *int
	if opts.TimeoutMs != nil {
		v := *opts.TimeoutMs
		timeoutMsField = &v
	}
	r.session.EmitEvent(submissionID, EventMsg{
		Tag:                 EvTaskStarted,
		ModelContextWindow:  r.turnContext.ModelContextWindow,
		Model:               r.turnContext.Model,
		Cwd:                 r.turnContext.Cwd,
		ApprovalPolicy:      r.turnContext.ApprovalPolicy,
		SandboxPolicy:       r.turnContext.SandboxPolicy,
		AutoCompact:         opts.AutoCompact,
		CompactionThreshold: CompactionThreshold,
		Tools:               toolNames,
		ToolsConfig:         r.turnContext.ToolsConfig,
		TimeoutMs:           timeoutMsField,
		BrowserEnvPolicy:    r.turnContext.BrowserEnvPolicy,
		ReasoningEffort:     r.turnContext.ReasoningEffort,
		ReasoningSummary:    r.turnContext.ReasoningSummary,
	})

	if len(input) == 0 {
		r.state = RunCompleted
		r.session.EmitEvent(submissionID, EventMsg{Tag: EvTaskComplete, TurnCount: 0, TokenUsageTotal: &TokenUsage{}, Aborted: false})
		return nil
	}

	if err := r.session.RecordInputAndRolloutUserMsg(ctx, input); err != nil {
		r.state = RunFailed
		r.session.EmitEvent(submissionID, EventMsg{Tag: EvError, ErrorMessage: err.Error()})
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	defer cancel()

	cancelledByUser := false
	turnCount := 0
	var totalUsage TokenUsage
	var lastUsage TokenUsage
	var lastAgentMessage *string
	compactionPerformed := false
	compactionAttempted := false

	for {
		if runCtx.Err() != nil {
			cancelledByUser = true
			break
		}

		if turnCount >= MaxTurns {
			r.session.EmitEvent(submissionID, EventMsg{
				Tag:     EvBackgroundEvent,
				Level:   LevelWarning,
				Message: fmt.Sprintf("reached the %d-turn cap for this task; stopping", MaxTurns),
			})
			r.state = RunCancelled
			r.session.EmitEvent(submissionID, EventMsg{Tag: EvTurnAborted, Reason: AbortAutomaticAbort, TurnCount: turnCount})
			return nil
		}

		pending := r.session.GetPendingInput()
		turnInput := r.session.BuildTurnInputWithHistory(pending)
		if len(pending) > 0 {
			r.session.RecordConversationItems(pending)
		}

		turnCtx := runCtx
		var turnCancel context.CancelFunc
		if opts.TimeoutMs != nil {
			turnCtx, turnCancel = context.WithTimeout(runCtx, time.Duration(*opts.TimeoutMs)*time.Millisecond)
		}

		var toolDefs []ToolDescriptor
		if r.discoverer != nil {
			toolDefs = r.discoverer.DiscoverModelTools(toolNames...)
		}

		result, err := r.turnManager.Run(turnCtx, submissionID, ModelRequest{
			Model:            r.turnContext.Model,
			SystemPrompt:     r.turnContext.SystemPrompt,
			Input:            turnInput,
			Tools:            toolDefs,
			ReasoningEffort:  r.turnContext.ReasoningEffort,
			ReasoningSummary: r.turnContext.ReasoningSummary,
		})
		timedOut := turnCtx.Err() == context.DeadlineExceeded
		if turnCancel != nil {
			turnCancel()
		}

		if err != nil {
			if runCtx.Err() != nil {
				cancelledByUser = true
				break
			}
			r.state = RunFailed
			r.session.EmitEvent(submissionID, EventMsg{Tag: EvError, ErrorMessage: err.Error()})
			return err
		}

		if result.Cancelled {
			if timedOut {
				r.state = RunFailed
				timeoutErr := NewCoreError("TaskRunner.Run", KindTimeout, errors.New("turn timed out"))
				r.session.EmitEvent(submissionID, EventMsg{Tag: EvError, ErrorMessage: timeoutErr.Error()})
				return timeoutErr
			}
			cancelledByUser = true
			break
		}

		turnCount++

		taskComplete := true
		var turnItems []ResponseItem
		for _, p := range result.ProcessedItems {
			turnItems = append(turnItems, p.Item)
			if p.Response != nil {
				taskComplete = false
				turnItems = append(turnItems, *p.Response)
			}
			if p.Item.Tag == ItemMessage && p.Item.Role == RoleAssistant {
				text := p.Item.OutputText()
				lastAgentMessage = &text
			}
		}

		if err := r.session.RecordConversationItemsDual(runCtx, turnItems); err != nil {
			r.state = RunFailed
			r.session.EmitEvent(submissionID, EventMsg{Tag: EvError, ErrorMessage: err.Error()})
			return err
		}

		if result.TotalTokenUsage != nil {
			lastUsage = *result.TotalTokenUsage
			totalUsage = totalUsage.Add(lastUsage)
		}

		if opts.AutoCompact && !compactionAttempted && r.turnContext.ModelContextWindow > 0 &&
			float64(totalUsage.TotalTokens) >= float64(r.turnContext.ModelContextWindow)*CompactionThreshold {
			compactionAttempted = true
			if err := r.session.Compact(runCtx); err != nil {
				r.session.EmitEvent(submissionID, EventMsg{
					Tag:     EvBackgroundEvent,
					Level:   LevelWarning,
					Message: fmt.Sprintf("context compaction failed at turn %d: %v", turnCount, err),
				})
			} else {
				compactionPerformed = true
				r.session.EmitEvent(submissionID, EventMsg{
					Tag:     EvBackgroundEvent,
					Level:   LevelInfo,
					Message: fmt.Sprintf("context compacted at turn %d", turnCount),
				})
			}
		}

		if taskComplete {
			r.state = RunCompleted
			r.session.EmitEvent(submissionID, EventMsg{
				Tag:                 EvTaskComplete,
				LastAgentMessage:    lastAgentMessage,
				TurnCount:           turnCount,
				CompactionPerformed: compactionPerformed,
				Aborted:             false,
				TokenUsageTotal:     &totalUsage,
				TokenUsageLastTurn:  &lastUsage,
			})
			return nil
		}
	}

	if cancelledByUser {
		r.state = RunCancelled
		r.session.EmitEvent(submissionID, EventMsg{Tag: EvTurnAborted, Reason: AbortUserInterrupt, TurnCount: turnCount})
		return nil
	}

	r.state = RunFailed
	return nil
}
