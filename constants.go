package agentcore

import "time"

// Core tunables named directly by spec §4.5/§6.
const (
	// MaxTurns bounds a single task's turn loop (P9).
	MaxTurns = 50

	// CompactionThreshold is the fraction of modelContextWindow at which
	// auto-compaction triggers (P8).
	CompactionThreshold = 0.75

	// DefaultToolTimeout is used when ToolRegistry.Execute receives no
	// explicit timeout.
	DefaultToolTimeout = 120 * time.Second

	// DefaultTTLDays is applied to RolloutStore.Create when the caller does
	// not request a permanent rollout.
	DefaultTTLDays = 60

	// DefaultEventSinkCapacity bounds Session's FIFO event sink (§5).
	DefaultEventSinkCapacity = 1024

	// MaxListConversationsPageSize is the upper bound on listConversations'
	// pageSize parameter.
	MaxListConversationsPageSize = 100

	// ListConversationsScanCap bounds how many rows listConversations scans
	// before giving up and returning reachedCap=true.
	ListConversationsScanCap = 100

	// QuotaWatcherInterval is the cadence of the background quota watcher.
	QuotaWatcherInterval = 10 * time.Minute

	// DefaultQuotaWarningThreshold and DefaultQuotaCriticalThreshold are the
	// storage-quota fractions at which the watcher warns or escalates to
	// cleanup (§5).
	DefaultQuotaWarningThreshold  = 0.80
	DefaultQuotaCriticalThreshold = 0.95

	// MaxExtendedContextRetries is a retry bound for max-tokens-class
	// transport errors. Nothing in this module consults it: TurnManager
	// does not retry, and surfaces every model error as a ModelError.
	MaxExtendedContextRetries = 1
)
