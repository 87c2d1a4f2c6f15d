package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/gridkeeper/autopilot/pkg/types"
)

// LogNotifier writes the notification through pkg/log instead of
// delivering it anywhere. It is the default when no transport is
// configured, and it never fails.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLog constructs a log notifier.
func NewLog(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "log_notifier").Logger()}
}

func (l *LogNotifier) Matches(cfg types.NotificationConfig) bool {
	return !cfg.Enabled || cfg.Kind == "log" || cfg.Kind == ""
}

func (l *LogNotifier) Send(ctx context.Context, title, body string, level types.NotifyLevel, metadata map[string]interface{}) bool {
	event := l.logger.Info()
	switch level {
	case types.LevelWarning:
		event = l.logger.Warn()
	case types.LevelError:
		event = l.logger.Error()
	}
	event.Str("title", title).Interface("metadata", metadata).Msg(body)
	return true
}

func (l *LogNotifier) TestConnection(ctx context.Context) bool {
	return true
}
