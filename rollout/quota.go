package rollout

import (
	"context"
	"fmt"
	"time"

	"github.com/browseragent/agentcore"
)

// QuotaWatcher polls Store.GetStorageStats on a fixed interval and escalates
// once usage crosses warningFraction/criticalFraction of quotaBytes,
// grounded on the teacher's maintenance package's horizon-based polling
// shape (GetStuckRuns(horizon)) adapted to Chrome storage quota (§5)
// instead of stuck-run detection.
type QuotaWatcher struct {
	store Store
	sink  agentcore.EventSink

	quotaBytes       int64
	warningFraction  float64
	criticalFraction float64
	interval         time.Duration

	criticalNotified bool
}

// NewQuotaWatcher builds a QuotaWatcher. warningFraction/criticalFraction
// default to agentcore.DefaultQuotaWarningThreshold/CriticalThreshold when
// zero; interval defaults to agentcore.QuotaWatcherInterval when zero.
func NewQuotaWatcher(store Store, sink agentcore.EventSink, quotaBytes int64, warningFraction, criticalFraction float64, interval time.Duration) *QuotaWatcher {
	if warningFraction == 0 {
		warningFraction = agentcore.DefaultQuotaWarningThreshold
	}
	if criticalFraction == 0 {
		criticalFraction = agentcore.DefaultQuotaCriticalThreshold
	}
	if interval == 0 {
		interval = agentcore.QuotaWatcherInterval
	}
	return &QuotaWatcher{
		store:            store,
		sink:             sink,
		quotaBytes:       quotaBytes,
		warningFraction:  warningFraction,
		criticalFraction: criticalFraction,
		interval:         interval,
	}
}

// Run polls until ctx is cancelled. Intended to be run in its own goroutine.
func (w *QuotaWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.checkOnce(ctx)
		}
	}
}

// checkOnce runs a single stats poll and escalates if thresholds are
// crossed; kept as a separate (unexported) method rather than inlined into
// Run so tests in this package can drive the poll on their own schedule.
func (w *QuotaWatcher) checkOnce(ctx context.Context) {
	stats, err := w.store.GetStorageStats(ctx)
	if err != nil {
		w.emit(agentcore.LevelWarning, fmt.Sprintf("quota watcher: stats query failed: %v", err))
		return
	}
	if w.quotaBytes <= 0 {
		return
	}

	used := stats.RolloutBytes + stats.ItemBytes
	fraction := float64(used) / float64(w.quotaBytes)

	switch {
	case fraction >= w.criticalFraction:
		if !w.criticalNotified {
			w.criticalNotified = true
			w.emit(agentcore.LevelWarning, fmt.Sprintf("storage quota critical: %.1f%% used, cleaning up expired rollouts", fraction*100))
		}
		deleted, err := w.store.CleanupExpired(ctx, time.Now())
		if err != nil {
			w.emit(agentcore.LevelWarning, fmt.Sprintf("quota watcher: cleanup failed: %v", err))
			return
		}
		w.emit(agentcore.LevelInfo, fmt.Sprintf("quota watcher: cleaned up %d expired rollouts", deleted))

	case fraction >= w.warningFraction:
		w.criticalNotified = false
		w.emit(agentcore.LevelWarning, fmt.Sprintf("storage quota warning: %.1f%% used", fraction*100))

	default:
		w.criticalNotified = false
	}
}

func (w *QuotaWatcher) emit(level agentcore.BackgroundLevel, message string) {
	if w.sink == nil {
		return
	}
	w.sink.Emit(agentcore.Event{Msg: agentcore.EventMsg{Tag: agentcore.EvBackgroundEvent, Level: level, Message: message}})
}
