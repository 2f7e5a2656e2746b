package agentcore

import "fmt"

// New builds an Agent bound to a fresh conversation, wiring recorder,
// sink, model, executor, discoverer, and summarizer the way the
// teacher's NewClient wires an already-constructed driver plus
// ClientConfig (client.go): collaborators are built by the caller (they
// own the database pool, transport, and tool registry), New only
// validates cfg, applies opts, and assembles the pieces this package
// owns. executor, discoverer, and summarizer may be nil for an agent
// with no tools and no auto-compaction.
func New(recorder Recorder, sink EventBus, model ModelClient, executor ToolExecutor, discoverer ToolDiscoverer, summarizer Summarizer, cfg Config, opts ...Option) (*Agent, ConversationId, error) {
	if model == nil {
		return nil, ConversationId{}, fmt.Errorf("%w: model is required", ErrValidation)
	}
	if sink == nil {
		return nil, ConversationId{}, fmt.Errorf("%w: sink is required", ErrValidation)
	}
	if err := cfg.Validate(); err != nil {
		return nil, ConversationId{}, err
	}

	ic := newInternalConfig(cfg)
	for _, opt := range opts {
		if err := opt(ic); err != nil {
			return nil, ConversationId{}, err
		}
	}

	conversationID := NewConversationId()
	turnContext := TurnContext{
		Model:              ic.model,
		SystemPrompt:       ic.systemPrompt,
		ModelContextWindow: ic.maxContextTokens,
	}

	session := NewSession(conversationID, turnContext, sink, recorder, summarizer)
	agent := NewAgent(session, sink, model, executor, discoverer, turnContext)
	return agent, conversationID, nil
}
