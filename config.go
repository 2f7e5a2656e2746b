package agentcore

import (
	"fmt"
	"time"
)

// ModelInfo carries the per-model parameters TurnContext and compaction
// defaults are derived from.
type ModelInfo struct {
	MaxContextTokens int
	DefaultMaxTokens int
}

// KnownModels maps model IDs to their capabilities. Unknown models fall back
// to conservative defaults via GetModelInfo.
var KnownModels = map[string]ModelInfo{
	"claude-sonnet-4-5-20250929": {MaxContextTokens: 200000, DefaultMaxTokens: 16384},
	"claude-opus-4-5-20251101":   {MaxContextTokens: 200000, DefaultMaxTokens: 16384},
	"claude-3-5-sonnet-20241022": {MaxContextTokens: 200000, DefaultMaxTokens: 8192},
	"claude-3-5-haiku-20241022":  {MaxContextTokens: 200000, DefaultMaxTokens: 8192},
}

// GetModelInfo returns model info, using sensible defaults for unknown models.
func GetModelInfo(model string) ModelInfo {
	if info, ok := KnownModels[model]; ok {
		return info
	}
	return ModelInfo{MaxContextTokens: 200000, DefaultMaxTokens: 8192}
}

// Config holds the required, user-facing configuration for an Agent. The
// rollout store and model client are passed separately to New, the way the
// teacher separates the database driver from Config.
//
// New applies Model, SystemPrompt and the model's context window to the
// Agent it builds. TTLDays, EventSinkCapacity, ToolTimeout, TurnTimeout,
// AutoCompact and Logger are validated and resolved to defaults, but New
// does not pass them to any component.
type Config struct {
	// Model is the model ID TurnContext snapshots default to.
	Model string

	// SystemPrompt seeds every task's TurnContext-level instructions.
	SystemPrompt string

	// TTLDays is a rollout lifetime in days. Zero resolves to
	// DefaultTTLDays; negative means permanent. New does not apply it: the
	// recorder passed to New decides each rollout's TTL.
	TTLDays int

	// EventSinkCapacity is an event sink size. Zero resolves to
	// DefaultEventSinkCapacity. New does not apply it: the sink passed to
	// New keeps the capacity it was built with.
	EventSinkCapacity int

	// ToolTimeout is a default per-call tool timeout. Zero resolves to
	// DefaultToolTimeout. New does not apply it: tool calls run with the
	// executor's own default timeout.
	ToolTimeout time.Duration

	// TurnTimeout is a per-turn timeout. New does not apply it: the Agent
	// runs every task with no per-turn timeout.
	TurnTimeout time.Duration

	// AutoCompact is a switch for TaskRunner's token-threshold compaction
	// trigger. New does not apply it: the Agent runs every task with
	// auto-compaction enabled.
	AutoCompact bool

	// Logger is a structured logger; a nil Logger resolves to a slog-backed
	// default. New does not pass it to any component.
	Logger Logger
}

// Validate checks the required fields are present.
func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("%w: Model is required", ErrValidation)
	}
	if c.SystemPrompt == "" {
		return fmt.Errorf("%w: SystemPrompt is required", ErrValidation)
	}
	return nil
}

// internalConfig is Config plus resolved defaults and injected collaborators.
type internalConfig struct {
	model        string
	systemPrompt string

	ttlDays           int
	eventSinkCapacity int
	toolTimeout       time.Duration
	turnTimeout       time.Duration
	autoCompact       bool
	logger            Logger

	maxContextTokens int
	compactionTarget int
}

func newInternalConfig(cfg Config) *internalConfig {
	info := GetModelInfo(cfg.Model)

	ttlDays := cfg.TTLDays
	if ttlDays == 0 {
		ttlDays = DefaultTTLDays
	}

	capacity := cfg.EventSinkCapacity
	if capacity == 0 {
		capacity = DefaultEventSinkCapacity
	}

	toolTimeout := cfg.ToolTimeout
	if toolTimeout == 0 {
		toolTimeout = DefaultToolTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = NewSlogLogger(nil)
	}

	return &internalConfig{
		model:             cfg.Model,
		systemPrompt:      cfg.SystemPrompt,
		ttlDays:           ttlDays,
		eventSinkCapacity: capacity,
		toolTimeout:       toolTimeout,
		turnTimeout:       cfg.TurnTimeout,
		autoCompact:       cfg.AutoCompact,
		logger:            logger,
		maxContextTokens:  info.MaxContextTokens,
		compactionTarget:  int(float64(info.MaxContextTokens) * 0.4),
	}
}
