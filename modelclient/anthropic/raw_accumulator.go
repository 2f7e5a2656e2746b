package anthropic

import (
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/browseragent/agentcore"
)

// rawAccumulator turns the Anthropic SSE event union into the
// provider-agnostic agentcore.ModelResponseEvent stream, the adapter-side
// counterpart to the teacher's streaming.Accumulator (which built one
// streaming.Message instead of emitting incremental ResponseEvents).
type rawAccumulator struct {
	blocks map[int]*rawBlock
	usage  agentcore.TokenUsage
}

type rawBlock struct {
	kind     string // "text" | "tool_use"
	text     strings.Builder
	toolID   string
	toolName string
	toolJSON strings.Builder
}

func newRawAccumulator() *rawAccumulator {
	return &rawAccumulator{blocks: make(map[int]*rawBlock)}
}

func (a *rawAccumulator) absorb(event sdk.MessageStreamEventUnion) []agentcore.ModelResponseEvent {
	switch e := event.AsAny().(type) {
	case sdk.MessageStartEvent:
		a.usage.InputTokens = int(e.Message.Usage.InputTokens)
		a.usage.CachedInputTokens = int(e.Message.Usage.CacheReadInputTokens)
		return []agentcore.ModelResponseEvent{{Kind: agentcore.ModelEventCreated}}

	case sdk.ContentBlockStartEvent:
		block := &rawBlock{}
		switch content := e.ContentBlock.AsAny().(type) {
		case sdk.TextBlock:
			block.kind = "text"
			block.text.WriteString(content.Text)
		case sdk.ToolUseBlock:
			block.kind = "tool_use"
			block.toolID = content.ID
			block.toolName = content.Name
		}
		a.blocks[int(e.Index)] = block
		return nil

	case sdk.ContentBlockDeltaEvent:
		block, ok := a.blocks[int(e.Index)]
		if !ok {
			return nil
		}
		switch delta := e.Delta.AsAny().(type) {
		case sdk.TextDelta:
			block.text.WriteString(delta.Text)
			return []agentcore.ModelResponseEvent{{Kind: agentcore.ModelEventOutputTextDelta, Delta: delta.Text}}
		case sdk.InputJSONDelta:
			block.toolJSON.WriteString(delta.PartialJSON)
		}
		return nil

	case sdk.ContentBlockStopEvent:
		block, ok := a.blocks[int(e.Index)]
		if !ok {
			return nil
		}
		delete(a.blocks, int(e.Index))

		switch block.kind {
		case "tool_use":
			args := block.toolJSON.String()
			if args == "" {
				args = "{}"
			}
			item := agentcore.ResponseItem{Tag: agentcore.ItemFunctionCall, CallID: block.toolID, Name: block.toolName, Arguments: args}
			return []agentcore.ModelResponseEvent{{Kind: agentcore.ModelEventItemCompleted, Item: &item}}
		case "text":
			item := agentcore.TextContent(agentcore.RoleAssistant, block.text.String())
			return []agentcore.ModelResponseEvent{{Kind: agentcore.ModelEventItemCompleted, Item: &item}}
		}
		return nil

	case sdk.MessageDeltaEvent:
		a.usage.OutputTokens += int(e.Usage.OutputTokens)
		return nil

	default:
		return nil
	}
}

// finish is called once the SSE stream ends cleanly, emitting the terminal
// ModelEventCompleted carrying the aggregated usage.
func (a *rawAccumulator) finish() []agentcore.ModelResponseEvent {
	a.usage.TotalTokens = a.usage.InputTokens + a.usage.OutputTokens
	usage := a.usage
	return []agentcore.ModelResponseEvent{{Kind: agentcore.ModelEventCompleted, Usage: &usage}}
}
