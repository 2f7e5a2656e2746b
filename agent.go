package agentcore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// EventBus is the full surface Agent needs from the session's event sink:
// Session only needs to push (EventSink), but Agent also drains it for
// nextEvent(). Declared locally for the same acyclic-import reason as
// EventSink/Recorder; *events.Sink satisfies this structurally.
type EventBus interface {
	EventSink
	Next(ctx context.Context) (Event, bool)
	TryNext() (Event, bool)
	Close()
}

// Agent serializes submissions against one Session and dispatches at most
// one active TaskRunner at a time (I6), per §4.6.
type Agent struct {
	session    *Session
	sink       EventBus
	model      ModelClient
	executor   ToolExecutor
	discoverer ToolDiscoverer

	defaultToolTimeout int64 // milliseconds; never set or read: runTask builds TurnManager with 0

	nextID int64

	mu           sync.Mutex
	queue        []Submission
	queueCond    *sync.Cond
	current      *TaskRunner
	baseTurnCtx  TurnContext
	pendingPatch TurnContextPatch
	closed       bool
}

// NewAgent builds an Agent bound to session, draining/emitting through
// sink, streaming turns via model, and dispatching tool calls via executor
// and tool definitions via discoverer (either may be nil for a tool-free
// agent). baseTurnContext is the snapshot new tasks start from until a
// Configure submission patches it.
func NewAgent(session *Session, sink EventBus, model ModelClient, executor ToolExecutor, discoverer ToolDiscoverer, baseTurnContext TurnContext) *Agent {
	a := &Agent{
		session:     session,
		sink:        sink,
		model:       model,
		executor:    executor,
		discoverer:  discoverer,
		baseTurnCtx: baseTurnContext,
	}
	a.queueCond = sync.NewCond(&a.mu)
	return a
}

// Run drains and dispatches submissions until ctx is cancelled. Intended to
// be run in its own goroutine; it is the single logical thread §5 requires
// all shared Agent/Session state to be touched from.
func (a *Agent) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		a.mu.Lock()
		a.closed = true
		a.queueCond.Broadcast()
		a.mu.Unlock()
	}()

	for {
		sub, ok := a.dequeue()
		if !ok {
			return
		}
		a.dispatch(ctx, sub)
	}
}

func (a *Agent) dequeue() (Submission, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for len(a.queue) == 0 {
		if a.closed {
			return Submission{}, false
		}
		a.queueCond.Wait()
	}
	sub := a.queue[0]
	a.queue = a.queue[1:]
	return sub, true
}

// Submit enqueues op and returns its assigned submission id. Interrupt is
// handled immediately rather than queued, since the dispatcher goroutine
// may currently be blocked inside a running TaskRunner.
func (a *Agent) Submit(op Op) string {
	id := fmt.Sprintf("sub-%d", atomic.AddInt64(&a.nextID, 1))
	sub := Submission{ID: id, Op: op}

	if op.Tag == OpInterrupt {
		a.handleInterrupt(sub)
		return id
	}

	a.mu.Lock()
	a.queue = append(a.queue, sub)
	a.queueCond.Broadcast()
	a.mu.Unlock()
	return id
}

// NextEvent blocks for the next buffered event, per §4.6's nextEvent().
func (a *Agent) NextEvent(ctx context.Context) (Event, bool) {
	return a.sink.Next(ctx)
}

// TryNextEvent is NextEvent's non-blocking counterpart.
func (a *Agent) TryNextEvent() (Event, bool) {
	return a.sink.TryNext()
}

func (a *Agent) handleInterrupt(sub Submission) {
	a.mu.Lock()
	runner := a.current
	a.mu.Unlock()

	if runner == nil {
		a.session.EmitEvent(sub.ID, EventMsg{Tag: EvTurnAborted, Reason: AbortUserInterrupt})
		return
	}
	// TaskRunner.Run's own cancellation path emits TurnAborted{user_interrupt}
	// once the in-flight turn observes ctx.Done, satisfying "emit once".
	runner.Cancel()
}

func (a *Agent) dispatch(ctx context.Context, sub Submission) {
	switch sub.Op.Tag {
	case OpUserInput:
		a.runTask(ctx, sub)

	case OpConfigure:
		a.mu.Lock()
		a.pendingPatch = mergePatch(a.pendingPatch, sub.Op.Patch)
		a.mu.Unlock()

	case OpListTools:
		var names []string
		if a.discoverer != nil {
			for _, d := range a.discoverer.DiscoverModelTools() {
				names = append(names, d.Name)
			}
		}
		a.session.EmitEvent(sub.ID, EventMsg{Tag: EvToolList, Tools: names})

	case OpCompactNow:
		if err := a.session.Compact(ctx); err != nil {
			a.session.EmitEvent(sub.ID, EventMsg{Tag: EvBackgroundEvent, Level: LevelWarning, Message: "manual compaction failed: " + err.Error()})
		} else {
			a.session.EmitEvent(sub.ID, EventMsg{Tag: EvBackgroundEvent, Level: LevelInfo, Message: "context compacted on request"})
		}
	}
}

func (a *Agent) runTask(ctx context.Context, sub Submission) {
	a.mu.Lock()
	turnCtx := applyPatch(a.baseTurnCtx, a.pendingPatch)
	a.pendingPatch = TurnContextPatch{}
	a.baseTurnCtx = turnCtx
	a.mu.Unlock()

	a.session.SetTurnContext(turnCtx)
	tm := NewTurnManager(a.model, a.executor, a.sink, 0)
	runner := NewTaskRunner(a.session, tm, a.discoverer, turnCtx)

	a.mu.Lock()
	a.current = runner
	a.mu.Unlock()

	_ = runner.Run(ctx, sub.ID, sub.Op.Items, TaskRunnerOptions{AutoCompact: true})

	a.mu.Lock()
	a.current = nil
	a.mu.Unlock()
}

// mergePatch folds incoming into base, preferring incoming's non-nil
// fields; repeated Configure submissions accumulate until the next task
// consumes them.
func mergePatch(base, incoming TurnContextPatch) TurnContextPatch {
	if incoming.Model != nil {
		base.Model = incoming.Model
	}
	if incoming.SystemPrompt != nil {
		base.SystemPrompt = incoming.SystemPrompt
	}
	if incoming.Cwd != nil {
		base.Cwd = incoming.Cwd
	}
	if incoming.ApprovalPolicy != nil {
		base.ApprovalPolicy = incoming.ApprovalPolicy
	}
	if incoming.SandboxPolicy != nil {
		base.SandboxPolicy = incoming.SandboxPolicy
	}
	if incoming.ReasoningEffort != nil {
		base.ReasoningEffort = incoming.ReasoningEffort
	}
	if incoming.ReasoningSummary != nil {
		base.ReasoningSummary = incoming.ReasoningSummary
	}
	if incoming.ToolsConfig != nil {
		base.ToolsConfig = incoming.ToolsConfig
	}
	if incoming.BrowserEnvPolicy != nil {
		base.BrowserEnvPolicy = incoming.BrowserEnvPolicy
	}
	if incoming.ModelContextWindow != nil {
		base.ModelContextWindow = incoming.ModelContextWindow
	}
	return base
}

// applyPatch returns base with every non-nil patch field overlaid.
func applyPatch(base TurnContext, patch TurnContextPatch) TurnContext {
	if patch.Model != nil {
		base.Model = *patch.Model
	}
	if patch.SystemPrompt != nil {
		base.SystemPrompt = *patch.SystemPrompt
	}
	if patch.Cwd != nil {
		base.Cwd = *patch.Cwd
	}
	if patch.ApprovalPolicy != nil {
		base.ApprovalPolicy = *patch.ApprovalPolicy
	}
	if patch.SandboxPolicy != nil {
		base.SandboxPolicy = *patch.SandboxPolicy
	}
	if patch.ReasoningEffort != nil {
		base.ReasoningEffort = *patch.ReasoningEffort
	}
	if patch.ReasoningSummary != nil {
		base.ReasoningSummary = *patch.ReasoningSummary
	}
	if patch.ToolsConfig != nil {
		base.ToolsConfig = *patch.ToolsConfig
	}
	if patch.BrowserEnvPolicy != nil {
		base.BrowserEnvPolicy = *patch.BrowserEnvPolicy
	}
	if patch.ModelContextWindow != nil {
		base.ModelContextWindow = *patch.ModelContextWindow
	}
	return base
}
