package agentcore

import (
	"time"

	"github.com/google/uuid"
)

// ConversationId identifies one conversation/rollout. It is an opaque UUIDv4.
type ConversationId = uuid.UUID

// NewConversationId allocates a fresh conversation identifier.
func NewConversationId() ConversationId {
	return uuid.New()
}

// Role is the speaker of a message-shaped ResponseItem.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ContentPart is one piece of a message's content array (text, image, etc).
// Only the fields relevant to Type are populated.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ItemTag identifies which variant of the ResponseItem tagged union a value
// holds. Exactly one of the corresponding fields on ResponseItem is set.
type ItemTag string

const (
	ItemMessage                ItemTag = "message"
	ItemReasoning              ItemTag = "reasoning"
	ItemFunctionCall           ItemTag = "function_call"
	ItemFunctionCallOutput     ItemTag = "function_call_output"
	ItemLocalShellCall         ItemTag = "local_shell_call"
	ItemCustomToolCall         ItemTag = "custom_tool_call"
	ItemCustomToolCallOutput   ItemTag = "custom_tool_call_output"
	ItemWebSearchCall          ItemTag = "web_search_call"
)

// ResponseItem is a tagged variant representing one discrete element of a
// conversation. It mirrors the union described in the data model: a message,
// a reasoning block, a tool call of one of three shapes paired with its
// output, or a web search call.
type ResponseItem struct {
	Tag ItemTag `json:"tag"`

	// message
	Role    Role          `json:"role,omitempty"`
	Content []ContentPart `json:"content,omitempty"`

	// function_call / local_shell_call / custom_tool_call
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`

	// function_call_output / custom_tool_call_output
	Output string `json:"output,omitempty"`
	Status string `json:"status,omitempty"` // "success" | "error"

	// web_search_call
	WebSearchCallID string `json:"web_search_call_id,omitempty"`
	WebSearchQuery  string `json:"web_search_query,omitempty"`
}

// TextContent builds a single-part text message ResponseItem.
func TextContent(role Role, text string) ResponseItem {
	return ResponseItem{Tag: ItemMessage, Role: role, Content: []ContentPart{{Type: "text", Text: text}}}
}

// OutputText concatenates every "text"-typed content part of a message item.
func (r ResponseItem) OutputText() string {
	if r.Tag != ItemMessage {
		return ""
	}
	var out string
	for _, c := range r.Content {
		if c.Type == "text" || c.Type == "output_text" {
			out += c.Text
		}
	}
	return out
}

// IsToolCall reports whether this item represents a call that expects a
// paired output (function_call, local_shell_call, custom_tool_call).
func (r ResponseItem) IsToolCall() bool {
	switch r.Tag {
	case ItemFunctionCall, ItemLocalShellCall, ItemCustomToolCall:
		return true
	default:
		return false
	}
}

// IsToolOutput reports whether this item is the paired output of a tool call.
func (r ResponseItem) IsToolOutput() bool {
	switch r.Tag {
	case ItemFunctionCallOutput, ItemCustomToolCallOutput:
		return true
	default:
		return false
	}
}

// RolloutItemTag identifies the persisted envelope variant.
type RolloutItemTag string

const (
	RolloutSessionMeta  RolloutItemTag = "session_meta"
	RolloutResponseItem RolloutItemTag = "response_item"
	RolloutCompacted    RolloutItemTag = "compacted"
	RolloutTurnContext  RolloutItemTag = "turn_context"
	RolloutEventMsg     RolloutItemTag = "event_msg"
)

// RolloutItem is the persisted envelope around one of the payload variants
// tracked by the rollout store: session metadata, a conversation response
// item, a compaction summary, a turn-context snapshot, or a recorded event.
type RolloutItem struct {
	Tag RolloutItemTag `json:"tag"`

	SessionMeta  *SessionMeta  `json:"session_meta,omitempty"`
	ResponseItem *ResponseItem `json:"response_item,omitempty"`
	Compacted    *Compacted    `json:"compacted,omitempty"`
	TurnContext  *TurnContext  `json:"turn_context,omitempty"`
	EventMsg     *EventMsg     `json:"event_msg,omitempty"`
}

// Compacted is the summary payload produced by Session.compact.
type Compacted struct {
	Message string `json:"message"`
}

// GitInfo is optional provenance captured in SessionMeta.
type GitInfo struct {
	Commit string `json:"commit,omitempty"`
	Branch string `json:"branch,omitempty"`
	Repo   string `json:"repo,omitempty"`
}

// SessionMeta is always the first item of a rollout, at sequence 0 (I2).
type SessionMeta struct {
	ID           ConversationId `json:"id"`
	StartedAt    time.Time      `json:"startedAt"`
	Originator   string         `json:"originator"`
	AgentVersion string         `json:"agentVersion"`
	Instructions *string        `json:"instructions,omitempty"`
	GitInfo      *GitInfo       `json:"gitInfo,omitempty"`
}

// ApprovalPolicy and SandboxPolicy are opaque configuration tags the core
// threads through unmodified; their concrete meaning belongs to the host
// extension shell, which is out of this core's scope.
type ApprovalPolicy string
type SandboxPolicy string

// ToolsConfig is the subset of tool configuration a TurnContext snapshots:
// which tools are currently offered to the model. The registry itself is
// owned by ToolRegistry; this is just the name list captured at submission
// time so a running task is unaffected by concurrent registry changes.
type ToolsConfig struct {
	ToolNames []string `json:"toolNames"`
}

// BrowserEnvPolicy is an opaque policy tag describing what host-page access
// the current turn context permits; meaning is owned by the host shell.
type BrowserEnvPolicy string

// TurnContext is an immutable snapshot of the configuration a task runs
// under. Captured at task submission; never mutated mid-task (I5).
type TurnContext struct {
	Model               string           `json:"model"`
	SystemPrompt        string           `json:"systemPrompt,omitempty"`
	Cwd                 string           `json:"cwd"`
	ApprovalPolicy      ApprovalPolicy   `json:"approvalPolicy"`
	SandboxPolicy       SandboxPolicy    `json:"sandboxPolicy"`
	ReasoningEffort     string           `json:"reasoningEffort,omitempty"`
	ReasoningSummary    string           `json:"reasoningSummary,omitempty"`
	ToolsConfig         ToolsConfig      `json:"toolsConfig"`
	BrowserEnvPolicy    BrowserEnvPolicy `json:"browserEnvPolicy"`
	ModelContextWindow  int              `json:"modelContextWindow"`
}

// InputItemType distinguishes the two shapes a submitted InputItem may take.
type InputItemType string

const (
	InputText    InputItemType = "text"
	InputContext InputItemType = "context"
)

// InputItem is one element of a UserInput submission.
type InputItem struct {
	Type InputItemType `json:"type"`
	Text string        `json:"text,omitempty"`
	Path string        `json:"path,omitempty"`
}

// OpTag identifies which Submission.Op variant is populated.
type OpTag string

const (
	OpUserInput  OpTag = "user_input"
	OpInterrupt  OpTag = "interrupt"
	OpConfigure  OpTag = "configure"
	OpListTools  OpTag = "list_tools"
	OpCompactNow OpTag = "compact_now"
)

// TurnContextPatch is a partial TurnContext; nil/zero fields are left
// unchanged by Configure.
type TurnContextPatch struct {
	Model              *string
	SystemPrompt       *string
	Cwd                *string
	ApprovalPolicy     *ApprovalPolicy
	SandboxPolicy      *SandboxPolicy
	ReasoningEffort    *string
	ReasoningSummary   *string
	ToolsConfig        *ToolsConfig
	BrowserEnvPolicy   *BrowserEnvPolicy
	ModelContextWindow *int
}

// Op is the ingress operation a Submission carries.
type Op struct {
	Tag   OpTag
	Items []InputItem       // UserInput
	Patch TurnContextPatch  // Configure
}

// Submission is one entry in Agent's ingress queue.
type Submission struct {
	ID string `json:"id"`
	Op Op     `json:"op"`
}

// TokenUsage is the 5-tuple aggregated across turns.
type TokenUsage struct {
	InputTokens           int `json:"input_tokens"`
	CachedInputTokens     int `json:"cached_input_tokens"`
	OutputTokens          int `json:"output_tokens"`
	ReasoningOutputTokens int `json:"reasoning_output_tokens"`
	TotalTokens           int `json:"total_tokens"`
}

// Add returns the field-wise sum of u and other.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:           u.InputTokens + other.InputTokens,
		CachedInputTokens:     u.CachedInputTokens + other.CachedInputTokens,
		OutputTokens:          u.OutputTokens + other.OutputTokens,
		ReasoningOutputTokens: u.ReasoningOutputTokens + other.ReasoningOutputTokens,
		TotalTokens:           u.TotalTokens + other.TotalTokens,
	}
}

// Cursor is an opaque pagination token, serialized as "<unix-ms>|<uuid>".
type Cursor struct {
	Timestamp time.Time
	ID        uuid.UUID
}
