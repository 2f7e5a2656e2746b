package rollout

import "github.com/browseragent/agentcore"

// persistedResponseItemTags and persistedEventTags are the fixed allow-lists
// the persistence policy (§4.1, I3) checks response_item and event_msg
// payloads against. session_meta, compacted, and turn_context are always
// persisted.
var persistedResponseItemTags = map[agentcore.ItemTag]bool{
	agentcore.ItemMessage:              true,
	agentcore.ItemReasoning:            true,
	agentcore.ItemLocalShellCall:       true,
	agentcore.ItemFunctionCall:         true,
	agentcore.ItemFunctionCallOutput:   true,
	agentcore.ItemCustomToolCall:       true,
	agentcore.ItemCustomToolCallOutput: true,
	agentcore.ItemWebSearchCall:        true,
}

var persistedEventTags = map[agentcore.EventMsgTag]bool{
	agentcore.EvUserMessage:    true,
	agentcore.EvAgentMessage:   true,
	agentcore.EvAgentReasoning: true,
	agentcore.EvTokenCount:     true,
	agentcore.EvEnteredReviewMode: true,
	agentcore.EvExitedReviewMode:  true,
	agentcore.EvTurnAborted:    true,
}

// IsPersisted reports whether item satisfies the persistence policy (§4.1).
// It is a pure function, so repeated application is idempotent (P2).
func IsPersisted(item agentcore.RolloutItem) bool {
	switch item.Tag {
	case agentcore.RolloutSessionMeta, agentcore.RolloutCompacted, agentcore.RolloutTurnContext:
		return true
	case agentcore.RolloutResponseItem:
		if item.ResponseItem == nil {
			return false
		}
		return persistedResponseItemTags[item.ResponseItem.Tag]
	case agentcore.RolloutEventMsg:
		if item.EventMsg == nil {
			return false
		}
		return persistedEventTags[item.EventMsg.Tag]
	default:
		return false
	}
}

// FilterPersisted returns the subset of items that satisfy the persistence
// policy, preserving order. filterPersisted(filterPersisted(L)) == 
// filterPersisted(L) holds because IsPersisted is a pure predicate (P2).
func FilterPersisted(items []agentcore.RolloutItem) []agentcore.RolloutItem {
	out := make([]agentcore.RolloutItem, 0, len(items))
	for _, item := range items {
		if IsPersisted(item) {
			out = append(out, item)
		}
	}
	return out
}
