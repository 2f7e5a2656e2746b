// Package events implements the bounded FIFO event sink every core component
// pushes into (§5): backpressure is drop-oldest for streamed deltas and
// never-drop for the terminal/lifecycle events named below, and a dropped
// delta is itself reported as a BackgroundEvent so consumers can see they
// lagged.
package events

import (
	"context"
	"sync"

	"github.com/browseragent/agentcore"
)

// neverDrop is the set of event tags §5 requires the sink to retain even
// under backpressure.
var neverDrop = map[agentcore.EventMsgTag]bool{
	agentcore.EvTaskStarted:  true,
	agentcore.EvTaskComplete: true,
	agentcore.EvTurnAborted:  true,
	agentcore.EvError:        true,
}

// Sink is a bounded FIFO queue of Events. Emission never blocks the
// producer: once Capacity is reached, the oldest droppable (non-never-drop)
// entry is evicted to make room; if every queued entry is never-drop, a
// droppable new event is itself dropped, while a never-drop new event is
// appended beyond Capacity. Dropped() counts every dropped event.
type Sink struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	queue    []agentcore.Event
	dropped  int
	closed   bool
}

// NewSink creates a Sink with the given capacity (must be positive).
func NewSink(capacity int) *Sink {
	if capacity <= 0 {
		capacity = 1
	}
	s := &Sink{capacity: capacity}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Emit pushes evt onto the queue, applying the drop-oldest/never-drop
// backpressure policy. It never blocks.
func (s *Sink) Emit(evt agentcore.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	if len(s.queue) >= s.capacity {
		if s.evictOldestDroppable() {
			s.recordDrop()
		} else if !neverDrop[evt.Msg.Tag] {
			// Queue is saturated with never-drop entries; the new event
			// itself is the one that has to go.
			s.dropped++
			s.recordDrop()
			s.cond.Broadcast()
			return
		}
	}

	s.queue = append(s.queue, evt)
	s.cond.Broadcast()
}

// evictOldestDroppable removes the oldest entry whose tag is not in
// neverDrop, reports it as dropped, and returns whether it found one.
func (s *Sink) evictOldestDroppable() bool {
	for i, e := range s.queue {
		if neverDrop[e.Msg.Tag] {
			continue
		}
		s.queue = append(s.queue[:i], s.queue[i+1:]...)
		s.dropped++
		return true
	}
	return false
}

// recordDrop appends a BackgroundEvent noting a drop just occurred, if the
// queue is below Capacity. After an eviction the notice takes the freed
// slot, so the event Emit then appends leaves the queue one over Capacity.
// If the queue is full, no notice is added; the drop is still reflected in
// Dropped().
func (s *Sink) recordDrop() {
	if len(s.queue) >= s.capacity {
		return
	}
	s.queue = append(s.queue, agentcore.Event{Msg: agentcore.EventMsg{
		Tag:     agentcore.EvBackgroundEvent,
		Level:   agentcore.LevelWarning,
		Message: "event sink dropped a queued event under backpressure",
	}})
}

// Next blocks until an event is available, ctx is cancelled, or the sink is
// closed with nothing left queued.
func (s *Sink) Next(ctx context.Context) (agentcore.Event, bool) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.cond.Broadcast()
		case <-done:
		}
	}()
	defer close(done)

	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.queue) == 0 {
		if s.closed {
			return agentcore.Event{}, false
		}
		if ctx.Err() != nil {
			return agentcore.Event{}, false
		}
		s.cond.Wait()
	}

	evt := s.queue[0]
	s.queue = s.queue[1:]
	return evt, true
}

// TryNext returns the next event without blocking, or ok=false if none is
// queued.
func (s *Sink) TryNext() (agentcore.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return agentcore.Event{}, false
	}
	evt := s.queue[0]
	s.queue = s.queue[1:]
	return evt, true
}

// Close marks the sink closed; blocked Next calls wake up and return false
// once the remaining queue is drained.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cond.Broadcast()
}

// Dropped returns how many events this sink has discarded to backpressure.
func (s *Sink) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Len returns the number of currently queued events.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}
