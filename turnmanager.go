package agentcore

import (
	"context"
	"encoding/json"
	"time"
)

// ToolExecutor is the dispatch half of ToolRegistry that TurnManager needs.
// Declared locally (rather than importing package tool) for the same
// acyclic-import reason ModelClient is declared in root: tool.Executor
// already depends on agentcore.EventSink/ToolError, so the root package
// cannot import tool back without a cycle. tool.Executor satisfies this
// structurally.
type ToolExecutor interface {
	Execute(ctx context.Context, sink EventSink, submissionID, callID, toolName string, input json.RawMessage, timeout time.Duration) (string, *ToolError)
}

// ToolDiscoverer is the subset of ToolRegistry TaskRunner needs to build a
// turn's tool list, declared locally for the same reason as ToolExecutor.
type ToolDiscoverer interface {
	DiscoverModelTools(names ...string) []ToolDescriptor
}

// ProcessedResponseItem pairs one model-produced item with its tool
// response, if any (§4.4).
type ProcessedResponseItem struct {
	Item     ResponseItem
	Response *ResponseItem
}

// TurnRunResult is the outcome of one TurnManager.Run call.
type TurnRunResult struct {
	ProcessedItems  []ProcessedResponseItem
	TotalTokenUsage *TokenUsage
	Cancelled       bool
}

// TurnManager executes exactly one turn: a single pass over a streamed
// model response with inline tool dispatch (§4.4).
type TurnManager struct {
	model    ModelClient
	executor ToolExecutor
	sink     EventSink

	defaultToolTimeout time.Duration
}

// NewTurnManager builds a TurnManager. sink may be nil to run without
// event emission (e.g. in tests).
func NewTurnManager(model ModelClient, executor ToolExecutor, sink EventSink, defaultToolTimeout time.Duration) *TurnManager {
	return &TurnManager{model: model, executor: executor, sink: sink, defaultToolTimeout: defaultToolTimeout}
}

// Run drives one turn to completion, streaming the model's response and
// dispatching every tool call inline. On ctx cancellation it stops
// consuming, closes the stream, and returns a partial result with
// Cancelled set; the caller (TaskRunner) must not persist a cancelled
// turn's items.
func (tm *TurnManager) Run(ctx context.Context, submissionID string, req ModelRequest) (TurnRunResult, error) {
	stream, err := tm.model.Stream(ctx, req)
	if err != nil {
		return TurnRunResult{}, NewCoreError("TurnManager.Run", KindModelError, err)
	}
	defer stream.Close()

	result := TurnRunResult{}

	for {
		select {
		case <-ctx.Done():
			result.Cancelled = true
			return result, nil
		case ev, ok := <-stream.Events():
			if !ok {
				return result, nil
			}
			done, cancelled, err := tm.absorb(ctx, submissionID, ev, &result)
			if cancelled {
				result.Cancelled = true
				return result, nil
			}
			if err != nil {
				return result, err
			}
			if done {
				return result, nil
			}
		}
	}
}

// absorb processes one ModelResponseEvent, emitting the matching session
// event and, for a completed item, dispatching any tool call inline.
// Returns done=true once the stream's terminal Completed event has been
// handled; an Error event returns done=false with a ModelError.
func (tm *TurnManager) absorb(ctx context.Context, submissionID string, ev ModelResponseEvent, result *TurnRunResult) (done bool, cancelled bool, err error) {
	switch ev.Kind {
	case ModelEventOutputTextDelta:
		tm.emit(submissionID, EventMsg{Tag: EvOutputTextDelta, Delta: ev.Delta})

	case ModelEventReasoningSummaryDelta:
		tm.emit(submissionID, EventMsg{Tag: EvReasoningSummaryDelta, Delta: ev.Delta})

	case ModelEventReasoningContentDelta:
		tm.emit(submissionID, EventMsg{Tag: EvReasoningContentDelta, Delta: ev.Delta})

	case ModelEventItemCompleted:
		if ev.Item == nil {
			return false, false, nil
		}
		processed, cancelledDispatch := tm.dispatch(ctx, submissionID, *ev.Item)
		if cancelledDispatch {
			return false, true, nil
		}
		result.ProcessedItems = append(result.ProcessedItems, processed)

	case ModelEventCompleted:
		result.TotalTokenUsage = ev.Usage
		tm.emit(submissionID, EventMsg{Tag: EvCompleted, ResponseID: ev.ResponseID, TokenUsage: ev.Usage})
		return true, false, nil

	case ModelEventError:
		return false, false, NewCoreError("TurnManager.Run", KindModelError, ev.Err)
	}
	return false, false, nil
}

// dispatch classifies one completed item per §4.4 step 2: messages and
// reasoning are recorded with no response; function_call/local_shell_call/
// custom_tool_call are routed through ToolExecutor and paired with their
// output; web_search_call is recorded with no response.
func (tm *TurnManager) dispatch(ctx context.Context, submissionID string, item ResponseItem) (ProcessedResponseItem, bool) {
	switch item.Tag {
	case ItemMessage:
		if item.Role == RoleAssistant {
			tm.emit(submissionID, EventMsg{Tag: EvAgentMessage, Text: item.OutputText()})
		}
		return ProcessedResponseItem{Item: item}, false

	case ItemReasoning:
		tm.emit(submissionID, EventMsg{Tag: EvAgentReasoning, Text: item.OutputText()})
		return ProcessedResponseItem{Item: item}, false

	case ItemWebSearchCall:
		tm.emit(submissionID, EventMsg{Tag: EvWebSearchCallBegin, WebSearchCallID: item.WebSearchCallID})
		return ProcessedResponseItem{Item: item}, false

	case ItemFunctionCall, ItemLocalShellCall, ItemCustomToolCall:
		select {
		case <-ctx.Done():
			return ProcessedResponseItem{}, true
		default:
		}

		output, toolErr := tm.executor.Execute(ctx, tm.sink, submissionID, item.CallID, item.Name, json.RawMessage(item.Arguments), tm.defaultToolTimeout)
		responseTag := ItemFunctionCallOutput
		if item.Tag == ItemCustomToolCall {
			responseTag = ItemCustomToolCallOutput
		}

		response := ResponseItem{Tag: responseTag, CallID: item.CallID}
		if toolErr != nil {
			response.Output = toolErr.Error()
			response.Status = "error"
		} else {
			response.Output = output
			response.Status = "success"
		}
		return ProcessedResponseItem{Item: item, Response: &response}, false

	default:
		return ProcessedResponseItem{Item: item}, false
	}
}

func (tm *TurnManager) emit(submissionID string, msg EventMsg) {
	if tm.sink == nil {
		return
	}
	tm.sink.Emit(Event{ID: submissionID, Msg: msg})
}
