package logger

import (
	"log/slog"
)

// For returns base tagged with the component name. A nil base yields nil so
// callers can keep logging optional.
func For(base *slog.Logger, component string) *slog.Logger {
	if base == nil {
		return nil
	}
	return base.With("component", component)
}
