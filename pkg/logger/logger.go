package logger

import (
	"log"
	"log/slog"
)

// New returns a stdlib *log.Logger that forwards to base, tagged with component.
// Libraries that only accept Printf-style loggers (goose) write through it.
func New(base *slog.Logger, component string) *log.Logger {
	if base == nil {
		base = slog.Default()
	}
	return slog.NewLogLogger(base.With("component", component).Handler(), slog.LevelInfo)
}
