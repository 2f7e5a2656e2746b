package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/browseragent/agentcore"
)

func TestExecuteBatchNoRaceCondition(t *testing.T) {
	registry := NewRegistry()

	var counter int32
	counterTool := NewFuncTool(
		"counter",
		"Increments counter",
		ToolSchema{Type: "object", Properties: map[string]PropertyDef{}},
		func(ctx context.Context, input json.RawMessage) (string, error) {
			atomic.AddInt32(&counter, 1)
			time.Sleep(time.Millisecond * time.Duration(1+atomic.LoadInt32(&counter)%5))
			return "done", nil
		},
	)
	if err := registry.Register(counterTool); err != nil {
		t.Fatalf("Failed to register tool: %v", err)
	}

	executor := NewExecutor(registry, time.Second, 16)

	numCalls := 50
	calls := make([]Call, numCalls)
	for i := range calls {
		calls[i] = Call{
			CallID:   fmt.Sprintf("call-%d", i),
			ToolName: "counter",
			Input:    json.RawMessage(`{}`),
		}
	}

	results := executor.ExecuteBatch(context.Background(), nil, "sub-1", calls)

	if len(results) != numCalls {
		t.Errorf("Expected %d results, got %d", numCalls, len(results))
	}
	for i, r := range results {
		if r.Err != nil {
			t.Errorf("Result %d has error: %v", i, r.Err)
		}
	}

	if atomic.LoadInt32(&counter) != int32(numCalls) {
		t.Errorf("Expected counter %d, got %d", numCalls, counter)
	}
}

func TestExecuteBatchEmptyCalls(t *testing.T) {
	registry := NewRegistry()
	executor := NewExecutor(registry, time.Second, 4)

	results := executor.ExecuteBatch(context.Background(), nil, "sub-1", []Call{})

	if len(results) != 0 {
		t.Errorf("Expected 0 results, got %d", len(results))
	}
}

func TestExecuteTimesOut(t *testing.T) {
	registry := NewRegistry()

	slowTool := NewFuncTool(
		"slow",
		"A slow tool",
		ToolSchema{Type: "object", Properties: map[string]PropertyDef{}},
		func(ctx context.Context, input json.RawMessage) (string, error) {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(5 * time.Second):
				return "done", nil
			}
		},
	)
	if err := registry.Register(slowTool); err != nil {
		t.Fatalf("Failed to register tool: %v", err)
	}

	executor := NewExecutor(registry, 50*time.Millisecond, 4)

	_, toolErr := executor.Execute(context.Background(), nil, "sub-1", "call-1", "slow", json.RawMessage(`{}`), 0)
	if toolErr == nil {
		t.Fatal("Expected timeout error, got nil")
	}
	if toolErr.Code != agentcore.ToolCodeTimeout {
		t.Errorf("Code = %v, want ToolCodeTimeout", toolErr.Code)
	}
}

func TestExecuteToolNotFound(t *testing.T) {
	registry := NewRegistry()
	executor := NewExecutor(registry, time.Second, 4)

	_, toolErr := executor.Execute(context.Background(), nil, "sub-1", "call-1", "nonexistent", json.RawMessage(`{}`), 0)

	if toolErr == nil {
		t.Error("Expected error for nonexistent tool")
	}
	if toolErr.Code != agentcore.ToolCodeNotFound {
		t.Errorf("Code = %v, want ToolCodeNotFound", toolErr.Code)
	}
}

func TestExecuteValidationFailure(t *testing.T) {
	registry := NewRegistry()
	strictTool := NewFuncTool(
		"strict",
		"Requires a name",
		ToolSchema{Type: "object", Properties: map[string]PropertyDef{
			"name": {Type: "string"},
		}, Required: []string{"name"}},
		func(ctx context.Context, input json.RawMessage) (string, error) {
			return "ok", nil
		},
	)
	if err := registry.Register(strictTool); err != nil {
		t.Fatalf("Failed to register tool: %v", err)
	}
	executor := NewExecutor(registry, time.Second, 4)

	_, toolErr := executor.Execute(context.Background(), nil, "sub-1", "call-1", "strict", json.RawMessage(`{}`), 0)
	if toolErr == nil || toolErr.Code != agentcore.ToolCodeValidationError {
		t.Fatalf("toolErr = %+v, want ToolCodeValidationError", toolErr)
	}
}

func TestExecuteEmitsSubmissionIDOnEvents(t *testing.T) {
	registry := NewRegistry()
	okTool := NewFuncTool(
		"ok",
		"Always succeeds",
		ToolSchema{Type: "object", Properties: map[string]PropertyDef{}},
		func(ctx context.Context, input json.RawMessage) (string, error) {
			return "done", nil
		},
	)
	if err := registry.Register(okTool); err != nil {
		t.Fatalf("Failed to register tool: %v", err)
	}
	executor := NewExecutor(registry, time.Second, 4)

	sink := &collectingSink{}
	if _, toolErr := executor.Execute(context.Background(), sink, "sub-42", "call-1", "ok", json.RawMessage(`{}`), 0); toolErr != nil {
		t.Fatalf("Execute() error = %v", toolErr)
	}

	if len(sink.events) == 0 {
		t.Fatal("expected tool execution events to be emitted")
	}
	for _, ev := range sink.events {
		if ev.ID != "sub-42" {
			t.Errorf("event %+v has ID %q, want %q", ev, ev.ID, "sub-42")
		}
	}
}

type collectingSink struct {
	events []agentcore.Event
}

func (s *collectingSink) Emit(e agentcore.Event) { s.events = append(s.events, e) }

func TestExecuteBatchPreservesCallOrder(t *testing.T) {
	registry := NewRegistry()

	echoTool := NewFuncTool(
		"echo",
		"Echoes its id",
		ToolSchema{Type: "object", Properties: map[string]PropertyDef{
			"id": {Type: "integer"},
		}},
		func(ctx context.Context, input json.RawMessage) (string, error) {
			var params struct{ ID int }
			if err := json.Unmarshal(input, &params); err != nil {
				return "", err
			}
			return fmt.Sprintf("%d", params.ID), nil
		},
	)
	if err := registry.Register(echoTool); err != nil {
		t.Fatalf("Failed to register tool: %v", err)
	}

	executor := NewExecutor(registry, time.Second, 4)

	calls := []Call{
		{CallID: "1", ToolName: "echo", Input: json.RawMessage(`{"id": 1}`)},
		{CallID: "2", ToolName: "echo", Input: json.RawMessage(`{"id": 2}`)},
		{CallID: "3", ToolName: "echo", Input: json.RawMessage(`{"id": 3}`)},
	}

	results := executor.ExecuteBatch(context.Background(), nil, "sub-1", calls)

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	for i, want := range []string{"1", "2", "3"} {
		if results[i].CallID != want || results[i].Output != want {
			t.Errorf("results[%d] = %+v, want CallID/Output %q", i, results[i], want)
		}
	}
}
