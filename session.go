package agentcore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Summarizer produces a compaction summary for a run of history items. The
// concrete implementation (compaction.Summarizer) lives in its own package
// and is injected so this file stays free of that package's prompt building
// and model calls, keeping summarization a dependency of Session rather than
// a Session-internal concern.
type Summarizer interface {
	Summarize(ctx context.Context, items []ResponseItem) (string, error)
}

// EventSink is the subset of events.Sink that Session needs. Declared here
// rather than imported so this root package stays a leaf: events.Sink (and
// rollout.Recorder below) import agentcore, so agentcore cannot import them
// back; any *events.Sink and rollout.Recorder value already satisfies these
// structurally.
type EventSink interface {
	Emit(Event)
}

// Recorder is the subset of rollout.Recorder that Session needs. See
// EventSink for why this is a local structural interface rather than an
// import of package rollout.
type Recorder interface {
	RolloutID() uuid.UUID
	Append(ctx context.Context, items []RolloutItem) error
	Flush(ctx context.Context) error
	Close(ctx context.Context) error
}

// preserveLastN is how many of the most recent history items survive
// compact() untouched, beyond the session_meta-equivalent prefix and the
// new summary.
const preserveLastN = 10

// Session holds one conversation in memory and bridges it to RolloutStore,
// per §4.3.
type Session struct {
	mu sync.Mutex

	conversationID ConversationId
	turnContext    TurnContext
	sink           EventSink
	recorder       Recorder
	summarizer     Summarizer

	history      []ResponseItem
	pendingInput []ResponseItem

	// pendingCalls tracks call_ids recorded in history awaiting their
	// output, enforcing I4: an output is only ever appended alongside or
	// after its matching call.
	pendingCalls map[string]bool
}

// NewSession builds a Session. recorder and summarizer may be nil: a
// recorder-less Session is fully functional in memory only (per §9's open
// question on storage-unavailable fallback), and a summarizer-less Session
// simply fails Compact with ErrCompactionFailed.
func NewSession(conversationID ConversationId, turnContext TurnContext, sink EventSink, recorder Recorder, summarizer Summarizer) *Session {
	return &Session{
		conversationID: conversationID,
		turnContext:    turnContext,
		sink:           sink,
		recorder:       recorder,
		summarizer:     summarizer,
		pendingCalls:   make(map[string]bool),
	}
}

// ConversationID returns the session's conversation identifier.
func (s *Session) ConversationID() ConversationId { return s.conversationID }

// TurnContext returns the session's current immutable turn context.
func (s *Session) TurnContext() TurnContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnContext
}

// SetTurnContext installs a new snapshot, honoring I5: callers must only do
// this between tasks (Agent's Configure handling), never mid-task.
func (s *Session) SetTurnContext(tc TurnContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turnContext = tc
}

// RecordInputAndRolloutUserMsg converts submitted InputItems into a user
// message ResponseItem, appends it to history, and — if a recorder is
// attached — persists both the response item and a UserMessage event.
func (s *Session) RecordInputAndRolloutUserMsg(ctx context.Context, items []InputItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	text := joinInputText(items)
	item := TextContent(RoleUser, text)
	s.history = append(s.history, item)

	if s.recorder == nil {
		return nil
	}

	envelopeItem := RolloutItem{Tag: RolloutResponseItem, ResponseItem: &item}
	eventMsg := EventMsg{Tag: EvUserMessage, Text: text}
	envelopeEvent := RolloutItem{Tag: RolloutEventMsg, EventMsg: &eventMsg}
	return s.recorder.Append(ctx, []RolloutItem{envelopeItem, envelopeEvent})
}

func joinInputText(items []InputItem) string {
	var out string
	for i, item := range items {
		if i > 0 {
			out += "\n"
		}
		switch item.Type {
		case InputText:
			out += item.Text
		case InputContext:
			out += fmt.Sprintf("[context: %s]", item.Path)
		}
	}
	return out
}

// BuildTurnInputWithHistory returns history ++ pending.
func (s *Session) BuildTurnInputWithHistory(pending []ResponseItem) []ResponseItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ResponseItem, 0, len(s.history)+len(pending))
	out = append(out, s.history...)
	out = append(out, pending...)
	return out
}

// GetPendingInput removes and returns the queued items.
func (s *Session) GetPendingInput() []ResponseItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := s.pendingInput
	s.pendingInput = nil
	return pending
}

// QueueInput appends items to the pending input queue, for submissions that
// arrive while a task is already running.
func (s *Session) QueueInput(items []ResponseItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingInput = append(s.pendingInput, items...)
}

// RecordConversationItems appends to in-memory history only, with no
// persistence — turn-scratch bookkeeping per §4.3.
func (s *Session) RecordConversationItems(items []ResponseItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(items)
}

// RecordConversationItemsDual appends to history and persists the
// policy-filtered subset.
func (s *Session) RecordConversationItemsDual(ctx context.Context, items []ResponseItem) error {
	s.mu.Lock()
	s.appendLocked(items)
	recorder := s.recorder
	s.mu.Unlock()

	if recorder == nil {
		return nil
	}

	envelopes := make([]RolloutItem, 0, len(items))
	for _, item := range items {
		it := item
		envelopes = append(envelopes, RolloutItem{Tag: RolloutResponseItem, ResponseItem: &it})
	}
	return recorder.Append(ctx, envelopes)
}

// appendLocked enforces I4 while appending to history: a tool call is
// always recorded, but an output is only appended if its call_id matches a
// call already seen (in history or earlier in this same batch); an
// unmatched output is dropped rather than recorded as an orphan.
func (s *Session) appendLocked(items []ResponseItem) {
	for _, item := range items {
		switch {
		case item.IsToolCall():
			s.pendingCalls[item.CallID] = true
			s.history = append(s.history, item)
		case item.IsToolOutput():
			if !s.pendingCalls[item.CallID] {
				continue
			}
			delete(s.pendingCalls, item.CallID)
			s.history = append(s.history, item)
		default:
			s.history = append(s.history, item)
		}
	}
}

// EmitEvent pushes an event into the sink for submissionID. Never blocks:
// the sink itself absorbs backpressure per §5.
func (s *Session) EmitEvent(submissionID string, msg EventMsg) {
	if s.sink == nil {
		return
	}
	s.sink.Emit(Event{ID: submissionID, Msg: msg})
}

// History returns a copy of the current in-memory history.
func (s *Session) History() []ResponseItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ResponseItem, len(s.history))
	copy(out, s.history)
	return out
}

// Compact replaces a prefix of history with a model-generated summary,
// keeping the leading session_meta-equivalent item (index 0, if history is
// non-empty) and the trailing preserveLastN items untouched. It preserves
// every call/output pair still referenced in the tail by never summarizing
// an item whose paired call or output falls inside the preserved tail.
func (s *Session) Compact(ctx context.Context) error {
	s.mu.Lock()
	if s.summarizer == nil {
		s.mu.Unlock()
		return ErrCompactionFailed
	}
	if len(s.history) == 0 {
		s.mu.Unlock()
		return ErrNoMessagesToCompact
	}

	tailStart := len(s.history) - preserveLastN
	if tailStart < 1 {
		tailStart = 1
	}
	headPrefix := s.history[:1]
	compactable := s.history[1:tailStart]
	tail := s.history[tailStart:]

	if len(compactable) == 0 {
		s.mu.Unlock()
		return ErrNoMessagesToCompact
	}

	summarizable, preserved := extendForPairing(compactable, tail)
	if len(summarizable) == 0 {
		s.mu.Unlock()
		return ErrNoMessagesToCompact
	}
	recorder := s.recorder
	s.mu.Unlock()

	summary, err := s.summarizer.Summarize(ctx, summarizable)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCompactionFailed, err)
	}

	s.mu.Lock()
	newHistory := make([]ResponseItem, 0, 2+len(preserved)+len(tail))
	newHistory = append(newHistory, headPrefix...)
	newHistory = append(newHistory, TextContent(RoleAssistant, summary))
	newHistory = append(newHistory, preserved...)
	newHistory = append(newHistory, tail...)
	s.history = newHistory
	s.mu.Unlock()

	compactedItem := Compacted{Message: summary}

	if recorder == nil {
		return nil
	}
	envelope := RolloutItem{Tag: RolloutCompacted, Compacted: &compactedItem}
	return recorder.Append(ctx, []RolloutItem{envelope})
}

// extendForPairing splits compactable into the items still safe to hand the
// summarizer and the items that must instead be preserved verbatim, because
// their call_id is referenced by something already in tail: a call is never
// summarized away while its output (or vice versa) survives in the tail.
// preserved keeps compactable's relative order so it can be spliced back
// into history directly ahead of tail.
func extendForPairing(compactable, tail []ResponseItem) (summarizable, preserved []ResponseItem) {
	referenced := make(map[string]bool)
	for _, item := range tail {
		if item.CallID != "" {
			referenced[item.CallID] = true
		}
	}
	if len(referenced) == 0 {
		return compactable, nil
	}
	summarizable = compactable[:0:0]
	for _, item := range compactable {
		if item.CallID != "" && referenced[item.CallID] {
			preserved = append(preserved, item)
			continue
		}
		summarizable = append(summarizable, item)
	}
	return summarizable, preserved
}

// Reset clears history and pending input, leaving the rollout intact, and
// emits a SessionReset event (internal bookkeeping, never persisted).
func (s *Session) Reset(submissionID string) {
	s.mu.Lock()
	s.history = nil
	s.pendingInput = nil
	s.pendingCalls = make(map[string]bool)
	s.mu.Unlock()

	s.EmitEvent(submissionID, EventMsg{Tag: EvSessionReset})
}

// Close flushes and closes the recorder, idempotent like Recorder.Close
// itself. A recorder-less Session closes trivially.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	recorder := s.recorder
	s.mu.Unlock()
	if recorder == nil {
		return nil
	}
	return recorder.Close(ctx)
}
