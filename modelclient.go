package agentcore

import "context"

// ModelRequest is everything a ModelClient needs to start one model turn.
// Named with a Model prefix (rather than bare Request, which Submission
// already uses for its own op payload) to keep the two ingress/egress
// concepts visually distinct at call sites.
type ModelRequest struct {
	Model            string
	SystemPrompt     string
	Input            []ResponseItem
	Tools            []ToolDescriptor
	ReasoningEffort  string
	ReasoningSummary string
	ExtendedContext  bool
}

// ToolDescriptor is the provider-agnostic shape of a tool advertised to the
// model, the way ToolRegistry.Discover hands it to TurnManager.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// ModelResponseEventKind tags a ModelResponseEvent's payload.
type ModelResponseEventKind string

const (
	ModelEventCreated               ModelResponseEventKind = "created"
	ModelEventOutputTextDelta       ModelResponseEventKind = "output_text_delta"
	ModelEventReasoningSummaryDelta ModelResponseEventKind = "reasoning_summary_delta"
	ModelEventReasoningContentDelta ModelResponseEventKind = "reasoning_content_delta"
	ModelEventItemCompleted         ModelResponseEventKind = "item_completed"
	ModelEventRateLimits            ModelResponseEventKind = "rate_limits"
	ModelEventCompleted             ModelResponseEventKind = "completed"
	ModelEventError                 ModelResponseEventKind = "error"
)

// ModelResponseEvent is one unit of a streamed model turn (§4.4).
type ModelResponseEvent struct {
	Kind ModelResponseEventKind

	Delta string
	Item  *ResponseItem

	ResponseID string
	Usage      *TokenUsage

	Err error
}

// ModelStream is an open, cancellable model turn; callers range over
// Events() until it closes, then check the final ModelEventError/Err for a
// terminal failure.
type ModelStream interface {
	Events() <-chan ModelResponseEvent
	Close() error
}

// ModelClient is the abstract transport TurnManager drives (§6). The core
// depends only on this interface; modelclient/anthropic supplies the only
// concrete implementation, keeping anthropic-sdk-go out of the core's
// import graph. Declared in the root package (rather than a separate
// modelclient package) because ResponseItem/TokenUsage are root types and
// Go's acyclic import rule forbids a child package's types from appearing
// in a root-package interface the child would also need to satisfy.
type ModelClient interface {
	Stream(ctx context.Context, req ModelRequest) (ModelStream, error)
}
