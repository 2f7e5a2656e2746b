package agentcore

import "time"

// Option is a functional option for New, mirroring the teacher's
// Option func(*internalConfig) error pattern.
type Option func(*internalConfig) error

// WithToolTimeout sets Config.ToolTimeout's resolved value, rejecting a
// non-positive timeout. New does not apply it to tool calls.
func WithToolTimeout(timeout time.Duration) Option {
	return func(c *internalConfig) error {
		if timeout <= 0 {
			return NewCoreError("WithToolTimeout", KindValidation, ErrValidation).
				WithContext("reason", "timeout must be positive")
		}
		c.toolTimeout = timeout
		return nil
	}
}

// WithTurnTimeout sets Config.TurnTimeout's resolved value. New does not
// apply it: the Agent runs every task with no per-turn timeout.
func WithTurnTimeout(timeout time.Duration) Option {
	return func(c *internalConfig) error {
		c.turnTimeout = timeout
		return nil
	}
}

// WithTTLDays sets Config.TTLDays's resolved value (negative means
// permanent). New does not apply it: the recorder decides rollout TTLs.
func WithTTLDays(days int) Option {
	return func(c *internalConfig) error {
		c.ttlDays = days
		return nil
	}
}

// WithEventSinkCapacity sets Config.EventSinkCapacity's resolved value,
// rejecting a non-positive size. New does not apply it: the sink passed to
// New keeps its own capacity.
func WithEventSinkCapacity(n int) Option {
	return func(c *internalConfig) error {
		if n <= 0 {
			return NewCoreError("WithEventSinkCapacity", KindValidation, ErrValidation).
				WithContext("reason", "capacity must be positive")
		}
		c.eventSinkCapacity = n
		return nil
	}
}

// WithAutoCompact sets Config.AutoCompact's resolved value. New does not
// apply it: the Agent runs every task with auto-compaction enabled.
func WithAutoCompact(enabled bool) Option {
	return func(c *internalConfig) error {
		c.autoCompact = enabled
		return nil
	}
}

// WithLogger sets Config.Logger's resolved value (a nil logger keeps the
// slog-backed default). New does not pass it to any component.
func WithLogger(logger Logger) Option {
	return func(c *internalConfig) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// WithMaxContextTokens overrides the model's default context window size,
// used by the compaction threshold (§4.5) and TurnContext.ModelContextWindow.
func WithMaxContextTokens(tokens int) Option {
	return func(c *internalConfig) error {
		if tokens <= 0 {
			return NewCoreError("WithMaxContextTokens", KindValidation, ErrValidation).
				WithContext("reason", "tokens must be positive")
		}
		c.maxContextTokens = tokens
		c.compactionTarget = int(float64(tokens) * 0.4)
		return nil
	}
}
