package events

import (
	"context"
	"testing"
	"time"

	"github.com/browseragent/agentcore"
)

func textEvent(text string) agentcore.Event {
	return agentcore.Event{Msg: agentcore.EventMsg{Tag: agentcore.EvOutputTextDelta, Delta: text}}
}

func TestEmitDropsOldestDroppableUnderCapacity(t *testing.T) {
	s := NewSink(2)
	s.Emit(textEvent("a"))
	s.Emit(textEvent("b"))
	s.Emit(textEvent("c"))

	if s.Dropped() != 1 {
		t.Fatalf("Dropped() = %d, want 1", s.Dropped())
	}

	first, ok := s.TryNext()
	if !ok || first.Msg.Delta != "b" {
		t.Fatalf("first = %+v, want delta %q", first, "b")
	}
}

func TestEmitNeverDropsTerminalEvents(t *testing.T) {
	s := NewSink(1)
	s.Emit(agentcore.Event{Msg: agentcore.EventMsg{Tag: agentcore.EvTaskComplete}})
	s.Emit(agentcore.Event{Msg: agentcore.EventMsg{Tag: agentcore.EvTaskStarted}})

	if s.Dropped() != 0 {
		t.Fatalf("Dropped() = %d, want 0", s.Dropped())
	}
	ev, ok := s.TryNext()
	if !ok || ev.Msg.Tag != agentcore.EvTaskComplete {
		t.Fatalf("surviving event = %+v, want EvTaskComplete retained", ev)
	}
}

func TestEvictionEmitsBackgroundEvent(t *testing.T) {
	s := NewSink(2)
	s.Emit(textEvent("a"))
	s.Emit(textEvent("b"))
	s.Emit(textEvent("c"))

	var sawBackground bool
	for {
		ev, ok := s.TryNext()
		if !ok {
			break
		}
		if ev.Msg.Tag == agentcore.EvBackgroundEvent {
			sawBackground = true
		}
	}
	if !sawBackground {
		t.Error("expected a BackgroundEvent noting the dropped delta")
	}
}

func TestNextUnblocksOnClose(t *testing.T) {
	s := NewSink(4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, ok := s.Next(context.Background())
		if ok {
			t.Error("Next() after Close() with empty queue should return ok=false")
		}
	}()

	time.Sleep(10 * time.Millisecond)
	s.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Next() did not unblock after Close()")
	}
}

func TestNextUnblocksOnContextCancel(t *testing.T) {
	s := NewSink(4)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, ok := s.Next(ctx)
		if ok {
			t.Error("Next() after ctx cancel with empty queue should return ok=false")
		}
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Next() did not unblock after context cancellation")
	}
}
