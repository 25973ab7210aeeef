package session

import "github.com/rs/zerolog/log"

// Notifier receives user-facing failure notifications. Called exactly once
// per unsuppressed terminal failure, never for discarded stale errors.
type Notifier interface {
	ConnectionFailed(title, description string)
}

// LogNotifier presents failures through the global logger.
type LogNotifier struct{}

func (LogNotifier) ConnectionFailed(title, description string) {
	log.Error().Str("module", "session").Str("title", title).Msg(description)
}
