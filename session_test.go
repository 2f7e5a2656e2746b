package agentcore

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

type fakeRecorder struct {
	id      uuid.UUID
	appends [][]RolloutItem
	closed  bool
}

func (f *fakeRecorder) RolloutID() uuid.UUID { return f.id }
func (f *fakeRecorder) Append(ctx context.Context, items []RolloutItem) error {
	f.appends = append(f.appends, items)
	return nil
}
func (f *fakeRecorder) Flush(ctx context.Context) error { return nil }
func (f *fakeRecorder) Close(ctx context.Context) error { f.closed = true; return nil }

type fakeSummarizer struct {
	summary string
	err     error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, items []ResponseItem) (string, error) {
	return f.summary, f.err
}

type collectingSink struct {
	events []Event
}

func (s *collectingSink) Emit(e Event) { s.events = append(s.events, e) }

func newTestSession() (*Session, *fakeRecorder, *collectingSink) {
	rec := &fakeRecorder{id: uuid.New()}
	sink := &collectingSink{}
	s := NewSession(uuid.New(), TurnContext{Model: "claude-opus-4-5-20251101"}, sink, rec, nil)
	return s, rec, sink
}

func TestRecordInputAndRolloutUserMsg(t *testing.T) {
	s, rec, sink := newTestSession()

	err := s.RecordInputAndRolloutUserMsg(context.Background(), []InputItem{{Type: InputText, Text: "hello"}})
	if err != nil {
		t.Fatalf("RecordInputAndRolloutUserMsg() error = %v", err)
	}

	history := s.History()
	if len(history) != 1 || history[0].OutputText() != "hello" {
		t.Fatalf("history = %+v, want one user message", history)
	}
	if len(rec.appends) != 1 || len(rec.appends[0]) != 2 {
		t.Fatalf("expected one append carrying the response_item and the event_msg, got %+v", rec.appends)
	}
	if len(sink.events) != 0 {
		t.Errorf("RecordInputAndRolloutUserMsg should not itself emit an Event, got %d", len(sink.events))
	}
}

func TestAppendLockedDropsUnpairedOutput(t *testing.T) {
	s, _, _ := newTestSession()

	s.RecordConversationItems([]ResponseItem{
		{Tag: ItemFunctionCallOutput, CallID: "orphan", Output: "stray"},
	})

	if len(s.History()) != 0 {
		t.Fatalf("orphan output should be dropped, history = %+v", s.History())
	}

	s.RecordConversationItems([]ResponseItem{
		{Tag: ItemFunctionCall, CallID: "call-1", Name: "search"},
		{Tag: ItemFunctionCallOutput, CallID: "call-1", Output: "result"},
	})

	history := s.History()
	if len(history) != 2 {
		t.Fatalf("expected call+output pair to be recorded, got %+v", history)
	}
}

func TestCompactRequiresSummarizer(t *testing.T) {
	s, _, _ := newTestSession()
	s.RecordConversationItems([]ResponseItem{TextContent(RoleUser, "hi")})

	if err := s.Compact(context.Background()); err != ErrCompactionFailed {
		t.Errorf("Compact() with no summarizer error = %v, want ErrCompactionFailed", err)
	}
}

func TestCompactReplacesHistoryWithSummary(t *testing.T) {
	rec := &fakeRecorder{id: uuid.New()}
	sink := &collectingSink{}
	sum := &fakeSummarizer{summary: "recap of the middle"}
	s := NewSession(uuid.New(), TurnContext{}, sink, rec, sum)

	items := []ResponseItem{TextContent(RoleUser, "session meta placeholder")}
	for i := 0; i < 15; i++ {
		items = append(items, TextContent(RoleUser, "msg"))
	}
	s.RecordConversationItems(items)

	if err := s.Compact(context.Background()); err != nil {
		t.Fatalf("Compact() error = %v", err)
	}

	history := s.History()
	found := false
	for _, item := range history {
		if item.OutputText() == "recap of the middle" {
			found = true
		}
	}
	if !found {
		t.Errorf("compacted summary not present in in-memory history: %+v", history)
	}
	if len(history) >= len(items) {
		t.Errorf("Compact() should shrink history, got %d items from %d", len(history), len(items))
	}
}

func TestCompactPreservesPairedCallAcrossBoundary(t *testing.T) {
	rec := &fakeRecorder{id: uuid.New()}
	sink := &collectingSink{}
	sum := &fakeSummarizer{summary: "recap"}
	s := NewSession(uuid.New(), TurnContext{}, sink, rec, sum)

	items := []ResponseItem{TextContent(RoleUser, "session meta placeholder")}
	for i := 0; i < 5; i++ {
		items = append(items, TextContent(RoleUser, "filler"))
	}
	items = append(items, ResponseItem{Tag: ItemFunctionCall, CallID: "call-1", Name: "search", Arguments: "{}"})
	items = append(items, ResponseItem{Tag: ItemFunctionCallOutput, CallID: "call-1", Output: "result", Status: "success"})
	for i := 0; i < 9; i++ {
		items = append(items, TextContent(RoleUser, "tail filler"))
	}
	s.RecordConversationItems(items)

	if err := s.Compact(context.Background()); err != nil {
		t.Fatalf("Compact() error = %v", err)
	}

	history := s.History()
	var sawCall, sawOutput bool
	for _, item := range history {
		if item.Tag == ItemFunctionCall && item.CallID == "call-1" {
			sawCall = true
		}
		if item.Tag == ItemFunctionCallOutput && item.CallID == "call-1" {
			sawOutput = true
		}
	}
	if !sawCall || !sawOutput {
		t.Fatalf("expected call-1's call and output both preserved across compaction, got %+v", history)
	}
}

func TestCompactNoCompactableItems(t *testing.T) {
	rec := &fakeRecorder{id: uuid.New()}
	sum := &fakeSummarizer{summary: "x"}
	s := NewSession(uuid.New(), TurnContext{}, &collectingSink{}, rec, sum)

	s.RecordConversationItems([]ResponseItem{TextContent(RoleUser, "only one item")})

	if err := s.Compact(context.Background()); err != ErrNoMessagesToCompact {
		t.Errorf("Compact() error = %v, want ErrNoMessagesToCompact", err)
	}
}

func TestResetClearsHistory(t *testing.T) {
	s, _, sink := newTestSession()
	s.RecordConversationItems([]ResponseItem{TextContent(RoleUser, "hi")})

	s.Reset("sub-1")

	if len(s.History()) != 0 {
		t.Errorf("Reset() should clear history")
	}
	if len(sink.events) != 1 || sink.events[0].Msg.Tag != EvSessionReset {
		t.Errorf("Reset() should emit EvSessionReset, got %+v", sink.events)
	}
}
