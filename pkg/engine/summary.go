package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gridkeeper/autopilot/pkg/metrics"
	"github.com/gridkeeper/autopilot/pkg/types"
)

// notifySummary implements §4.6.6. results must be non-empty with string
// keys and bool values; callers build it directly so that invariant
// always holds, but an empty map is still rejected per spec.
func (e *Engine) notifySummary(ctx context.Context, results map[string]bool, totalDuration float64) error {
	if len(results) == 0 {
		return &ValueError{Message: "summary notification requires a non-empty results mapping"}
	}

	notifyCfg := e.model.Global().Notification
	if !notifyCfg.Enabled {
		e.logger.Info().Msg("notification subsystem disabled; skipping summary")
		return nil
	}

	subject, body := buildSummaryMessage(results, totalDuration, e.store)

	if e.dryRun {
		e.logger.Info().Str("subject", subject).Str("body", body).Msg("dry run: would send summary notification")
		return nil
	}

	notifier := e.notifier
	if notifier == nil {
		e.logger.Warn().Msg("no notifier configured; skipping summary")
		return nil
	}

	level := types.LevelSuccess
	for _, ok := range results {
		if !ok {
			level = types.LevelWarning
			break
		}
	}

	kind := notifyCfg.Kind
	if kind == "" {
		kind = "log"
	}
	if notifier.Send(ctx, subject, body, level, map[string]interface{}{"results": results}) {
		metrics.NotificationsTotal.WithLabelValues(kind, "success").Inc()
	} else {
		metrics.NotificationsTotal.WithLabelValues(kind, "failed").Inc()
		e.logger.Warn().Msg("summary notification send failed")
	}
	return nil
}

func buildSummaryMessage(results map[string]bool, totalDuration float64, store stateReader) (string, string) {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	successes := make([]string, 0, len(names))
	failures := make([]string, 0, len(names))
	for _, name := range names {
		if results[name] {
			successes = append(successes, name)
		} else {
			failures = append(failures, name)
		}
	}

	subject := fmt.Sprintf("Backup Summary — %d/%d Successful", len(successes), len(results))

	var b strings.Builder
	if totalDuration > 0 {
		fmt.Fprintf(&b, "Total duration: %.2fs\n\n", totalDuration)
	}

	b.WriteString("Successful:\n")
	if len(successes) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, name := range successes {
		fmt.Fprintf(&b, "  - %s\n", name)
	}

	b.WriteString("\nFailed:\n")
	if len(failures) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, name := range failures {
		message := "(no error details)"
		if store != nil {
			if v, err := store.Get("backup_error."+name, ""); err == nil {
				if s, ok := v.(string); ok && s != "" {
					message = s
				}
			}
		}
		fmt.Fprintf(&b, "  - %s: %s\n", name, message)
	}

	return subject, b.String()
}

// stateReader is the read subset of storage.Store notifySummary needs;
// declared locally so tests can stub it without a real store.
type stateReader interface {
	Get(key string, def interface{}) (interface{}, error)
}
