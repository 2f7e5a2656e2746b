package agentcore

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

type scriptedStream struct {
	events chan ModelResponseEvent
}

func (s *scriptedStream) Events() <-chan ModelResponseEvent { return s.events }
func (s *scriptedStream) Close() error                       { return nil }

type scriptedModelClient struct {
	events []ModelResponseEvent
}

func (c *scriptedModelClient) Stream(ctx context.Context, req ModelRequest) (ModelStream, error) {
	ch := make(chan ModelResponseEvent, len(c.events))
	for _, ev := range c.events {
		ch <- ev
	}
	close(ch)
	return &scriptedStream{events: ch}, nil
}

type fakeExecutor struct {
	output string
	err    *ToolError
}

func (f *fakeExecutor) Execute(ctx context.Context, sink EventSink, submissionID, callID, toolName string, input json.RawMessage, timeout time.Duration) (string, *ToolError) {
	return f.output, f.err
}

func TestTurnManagerRunMessageOnly(t *testing.T) {
	msg := TextContent(RoleAssistant, "hi there")
	client := &scriptedModelClient{events: []ModelResponseEvent{
		{Kind: ModelEventItemCompleted, Item: &msg},
		{Kind: ModelEventCompleted, Usage: &TokenUsage{TotalTokens: 42}},
	}}
	sink := &collectingSink{}
	tm := NewTurnManager(client, nil, sink, 0)

	result, err := tm.Run(context.Background(), "sub-1", ModelRequest{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Cancelled {
		t.Fatalf("Run() unexpectedly cancelled")
	}
	if len(result.ProcessedItems) != 1 || result.ProcessedItems[0].Response != nil {
		t.Fatalf("expected one message item with no response, got %+v", result.ProcessedItems)
	}
	if result.TotalTokenUsage == nil || result.TotalTokenUsage.TotalTokens != 42 {
		t.Fatalf("TotalTokenUsage = %+v, want 42 total tokens", result.TotalTokenUsage)
	}

	var sawAgentMessage bool
	for _, ev := range sink.events {
		if ev.Msg.Tag == EvAgentMessage && ev.Msg.Text == "hi there" {
			sawAgentMessage = true
		}
	}
	if !sawAgentMessage {
		t.Errorf("expected an EvAgentMessage event, got %+v", sink.events)
	}
}

func TestTurnManagerDispatchesToolCall(t *testing.T) {
	call := ResponseItem{Tag: ItemFunctionCall, CallID: "call-1", Name: "search", Arguments: `{"q":"go"}`}
	client := &scriptedModelClient{events: []ModelResponseEvent{
		{Kind: ModelEventItemCompleted, Item: &call},
		{Kind: ModelEventCompleted, Usage: &TokenUsage{}},
	}}
	exec := &fakeExecutor{output: "search results"}
	tm := NewTurnManager(client, exec, nil, 0)

	result, err := tm.Run(context.Background(), "sub-1", ModelRequest{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.ProcessedItems) != 1 {
		t.Fatalf("expected one processed item, got %d", len(result.ProcessedItems))
	}
	p := result.ProcessedItems[0]
	if p.Response == nil || p.Response.Output != "search results" || p.Response.Status != "success" {
		t.Fatalf("unexpected tool response: %+v", p.Response)
	}
	if p.Response.Tag != ItemFunctionCallOutput || p.Response.CallID != "call-1" {
		t.Fatalf("tool response not paired correctly: %+v", p.Response)
	}
}

func TestTurnManagerToolErrorSurfacesAsOutput(t *testing.T) {
	call := ResponseItem{Tag: ItemFunctionCall, CallID: "call-1", Name: "search"}
	client := &scriptedModelClient{events: []ModelResponseEvent{
		{Kind: ModelEventItemCompleted, Item: &call},
		{Kind: ModelEventCompleted, Usage: &TokenUsage{}},
	}}
	exec := &fakeExecutor{err: &ToolError{Code: ToolCodeExecutionError, Message: "boom"}}
	tm := NewTurnManager(client, exec, nil, 0)

	result, err := tm.Run(context.Background(), "sub-1", ModelRequest{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	resp := result.ProcessedItems[0].Response
	if resp.Status != "error" {
		t.Errorf("Status = %q, want error", resp.Status)
	}
}

func TestTurnManagerModelErrorPropagates(t *testing.T) {
	client := &scriptedModelClient{events: []ModelResponseEvent{
		{Kind: ModelEventError, Err: context.DeadlineExceeded},
	}}
	tm := NewTurnManager(client, nil, nil, 0)

	_, err := tm.Run(context.Background(), "sub-1", ModelRequest{})
	if err == nil {
		t.Fatal("expected an error from a ModelEventError")
	}
}

type blockingStream struct {
	events chan ModelResponseEvent
}

func (s *blockingStream) Events() <-chan ModelResponseEvent { return s.events }
func (s *blockingStream) Close() error                       { return nil }

type blockingModelClient struct{}

func (blockingModelClient) Stream(ctx context.Context, req ModelRequest) (ModelStream, error) {
	return &blockingStream{events: make(chan ModelResponseEvent)}, nil
}

func TestTurnManagerRunCancelledByContext(t *testing.T) {
	tm := NewTurnManager(blockingModelClient{}, nil, nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := tm.Run(ctx, "sub-1", ModelRequest{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.Cancelled {
		t.Errorf("expected Cancelled=true for an already-cancelled context")
	}
}
