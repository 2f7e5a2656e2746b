package agentcore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeEventBus struct {
	events []Event
}

func newFakeEventBus() *fakeEventBus {
	return &fakeEventBus{}
}

func (b *fakeEventBus) Emit(e Event) { b.events = append(b.events, e) }
func (b *fakeEventBus) Next(ctx context.Context) (Event, bool) {
	for len(b.events) == 0 {
		select {
		case <-ctx.Done():
			return Event{}, false
		case <-time.After(time.Millisecond):
		}
	}
	ev := b.events[0]
	b.events = b.events[1:]
	return ev, true
}
func (b *fakeEventBus) TryNext() (Event, bool) {
	if len(b.events) == 0 {
		return Event{}, false
	}
	ev := b.events[0]
	b.events = b.events[1:]
	return ev, true
}
func (b *fakeEventBus) Close() {}

func newTestAgent(client ModelClient) (*Agent, *fakeEventBus) {
	sink := newFakeEventBus()
	rec := &fakeRecorder{id: uuid.New()}
	session := NewSession(uuid.New(), TurnContext{}, sink, rec, nil)
	agent := NewAgent(session, sink, client, nil, nil, TurnContext{Model: "claude-opus-4-5-20251101"})
	return agent, sink
}

func drainUntil(t *testing.T, bus *fakeEventBus, tag EventMsgTag, timeout time.Duration) Event {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		ev, ok := bus.Next(ctx)
		cancel()
		if ok && ev.Msg.Tag == tag {
			return ev
		}
	}
	t.Fatalf("timed out waiting for event tag %v", tag)
	return Event{}
}

func TestAgentRunsUserInputToCompletion(t *testing.T) {
	msg := TextContent(RoleAssistant, "hello back")
	client := &scriptedModelClient{events: []ModelResponseEvent{
		{Kind: ModelEventItemCompleted, Item: &msg},
		{Kind: ModelEventCompleted, Usage: &TokenUsage{TotalTokens: 3}},
	}}
	agent, sink := newTestAgent(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go agent.Run(ctx)

	agent.Submit(Op{Tag: OpUserInput, Items: []InputItem{{Type: InputText, Text: "hi"}}})

	ev := drainUntil(t, sink, EvTaskComplete, time.Second)
	if ev.Msg.LastAgentMessage == nil || *ev.Msg.LastAgentMessage != "hello back" {
		t.Errorf("LastAgentMessage = %v, want %q", ev.Msg.LastAgentMessage, "hello back")
	}
}

func TestAgentListToolsRepliesWithNames(t *testing.T) {
	sink := newFakeEventBus()
	rec := &fakeRecorder{id: uuid.New()}
	session := NewSession(uuid.New(), TurnContext{}, sink, rec, nil)
	discoverer := &fakeDiscoverer{tools: []ToolDescriptor{{Name: "search"}, {Name: "fetch"}}}
	agent := NewAgent(session, sink, &scriptedModelClient{}, nil, discoverer, TurnContext{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go agent.Run(ctx)

	agent.Submit(Op{Tag: OpListTools})

	ev := drainUntil(t, sink, EvToolList, time.Second)
	if len(ev.Msg.Tools) != 2 {
		t.Fatalf("Tools = %v, want 2 entries", ev.Msg.Tools)
	}
}

func TestAgentInterruptWithNoActiveTaskEmitsTurnAborted(t *testing.T) {
	agent, sink := newTestAgent(&scriptedModelClient{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go agent.Run(ctx)

	agent.Submit(Op{Tag: OpInterrupt})

	ev := drainUntil(t, sink, EvTurnAborted, time.Second)
	if ev.Msg.Reason != AbortUserInterrupt {
		t.Errorf("Reason = %v, want AbortUserInterrupt", ev.Msg.Reason)
	}
}

func TestAgentConfigurePatchesNextTask(t *testing.T) {
	msg := TextContent(RoleAssistant, "ok")
	client := &capturingModelClient{resp: []ModelResponseEvent{
		{Kind: ModelEventItemCompleted, Item: &msg},
		{Kind: ModelEventCompleted, Usage: &TokenUsage{}},
	}}
	agent, sink := newTestAgent(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go agent.Run(ctx)

	newModel := "claude-3-5-haiku-20241022"
	agent.Submit(Op{Tag: OpConfigure, Patch: TurnContextPatch{Model: &newModel}})
	agent.Submit(Op{Tag: OpUserInput, Items: []InputItem{{Type: InputText, Text: "hi"}}})

	drainUntil(t, sink, EvTaskComplete, time.Second)

	if client.lastReq.Model != newModel {
		t.Errorf("request Model = %q, want %q", client.lastReq.Model, newModel)
	}
}

// capturingModelClient records the last ModelRequest it streamed, so tests
// can assert Agent threaded a Configure patch into the next task.
type capturingModelClient struct {
	resp    []ModelResponseEvent
	lastReq ModelRequest
}

func (c *capturingModelClient) Stream(ctx context.Context, req ModelRequest) (ModelStream, error) {
	c.lastReq = req
	ch := make(chan ModelResponseEvent, len(c.resp))
	for _, ev := range c.resp {
		ch <- ev
	}
	close(ch)
	return &scriptedStream{events: ch}, nil
}
