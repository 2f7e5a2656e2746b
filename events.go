package agentcore

// EventMsgTag identifies which Event payload variant is populated.
type EventMsgTag string

const (
	EvTaskStarted            EventMsgTag = "task_started"
	EvTaskComplete           EventMsgTag = "task_complete"
	EvTurnAborted            EventMsgTag = "turn_aborted"
	EvAgentMessage           EventMsgTag = "agent_message"
	EvAgentReasoning         EventMsgTag = "agent_reasoning"
	EvToolRegistered         EventMsgTag = "tool_registered"
	EvToolUnregistered       EventMsgTag = "tool_unregistered"
	EvToolExecutionStart     EventMsgTag = "tool_execution_start"
	EvToolExecutionEnd       EventMsgTag = "tool_execution_end"
	EvToolExecutionError     EventMsgTag = "tool_execution_error"
	EvToolExecutionTimeout   EventMsgTag = "tool_execution_timeout"
	EvTokenCount             EventMsgTag = "token_count"
	EvBackgroundEvent        EventMsgTag = "background_event"
	EvError                  EventMsgTag = "error"
	EvExecApprovalRequest    EventMsgTag = "exec_approval_request"
	EvOutputTextDelta        EventMsgTag = "output_text_delta"
	EvReasoningSummaryDelta  EventMsgTag = "reasoning_summary_delta"
	EvReasoningContentDelta  EventMsgTag = "reasoning_content_delta"
	EvRateLimits             EventMsgTag = "rate_limits"
	EvWebSearchCallBegin     EventMsgTag = "web_search_call_begin"
	EvCreated                EventMsgTag = "created"
	EvCompleted              EventMsgTag = "completed"
	EvToolList               EventMsgTag = "tool_list"

	// Persistence-policy-only tags: these never flow through Agent's
	// egress stream as distinct Event variants (they are recorded directly
	// as rollout event_msg entries by Session), but §4.1's persistence
	// allow-list names them, so they get the same typed tag treatment.
	EvUserMessage       EventMsgTag = "user_message"
	EvEnteredReviewMode EventMsgTag = "entered_review_mode"
	EvExitedReviewMode  EventMsgTag = "exited_review_mode"

	// EvSessionReset is internal bookkeeping for Session.Reset; never
	// persisted (not named in the §4.1 allow-list above).
	EvSessionReset EventMsgTag = "session_reset"
)

// AbortReason distinguishes why a task's turn loop ended early.
type AbortReason string

const (
	AbortUserInterrupt   AbortReason = "user_interrupt"
	AbortAutomaticAbort  AbortReason = "automatic_abort"
)

// BackgroundLevel is the severity of a BackgroundEvent.
type BackgroundLevel string

const (
	LevelInfo    BackgroundLevel = "info"
	LevelWarning BackgroundLevel = "warning"
)

// EventMsg is the tagged payload carried by an Event; only the fields for
// Tag are meaningful.
type EventMsg struct {
	Tag EventMsgTag `json:"tag"`

	// task_started
	ModelContextWindow   int              `json:"model_context_window,omitempty"`
	Model                string           `json:"model,omitempty"`
	Cwd                  string           `json:"cwd,omitempty"`
	ApprovalPolicy       ApprovalPolicy   `json:"approval_policy,omitempty"`
	SandboxPolicy        SandboxPolicy    `json:"sandbox_policy,omitempty"`
	AutoCompact          bool             `json:"auto_compact,omitempty"`
	CompactionThreshold  float64          `json:"compaction_threshold,omitempty"`
	Tools                []string         `json:"tools,omitempty"`
	ToolsConfig          ToolsConfig      `json:"tools_config,omitempty"`
	TimeoutMs            *int             `json:"timeout_ms,omitempty"`
	BrowserEnvPolicy     BrowserEnvPolicy `json:"browser_environment_policy,omitempty"`
	ReasoningEffort      string           `json:"reasoning_effort,omitempty"`
	ReasoningSummary     string           `json:"reasoning_summary,omitempty"`

	// task_complete
	LastAgentMessage    *string     `json:"last_agent_message,omitempty"`
	TurnCount           int         `json:"turn_count,omitempty"`
	CompactionPerformed bool        `json:"compaction_performed,omitempty"`
	Aborted             bool        `json:"aborted,omitempty"`
	TokenUsageTotal     *TokenUsage `json:"token_usage_total,omitempty"`
	TokenUsageLastTurn  *TokenUsage `json:"token_usage_last_turn,omitempty"`

	// turn_aborted
	Reason AbortReason `json:"reason,omitempty"`

	// agent_message / agent_reasoning / deltas
	Text  string `json:"text,omitempty"`
	Delta string `json:"delta,omitempty"`

	// tool_registered / tool_unregistered
	ToolName string `json:"tool_name,omitempty"`

	// tool_execution_*
	CallID     string `json:"call_id,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	Success    bool   `json:"success,omitempty"`
	TimeoutMsV int    `json:"timeout_ms_value,omitempty"`

	// token_count
	Usage *TokenUsage `json:"usage,omitempty"`

	// background_event
	Level   BackgroundLevel `json:"level,omitempty"`
	Message string          `json:"message,omitempty"`

	// error
	ErrorMessage string `json:"error_message,omitempty"`

	// web_search_call_begin
	WebSearchCallID string `json:"web_search_call_id,omitempty"`

	// completed
	ResponseID string      `json:"response_id,omitempty"`
	TokenUsage *TokenUsage `json:"token_usage,omitempty"`
}

// Event is one entry in Agent's egress stream; ID is the originating
// Submission's ID (I7).
type Event struct {
	ID  string   `json:"id"`
	Msg EventMsg `json:"msg"`
}
