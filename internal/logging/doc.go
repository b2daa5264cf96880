// Package logging constructs slog loggers with console and JSON handlers
// and provides attribute helpers shared across earshot components.
package logging
