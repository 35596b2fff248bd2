// Package logging assembles structured slog loggers and formatting helpers used
// across iconsort.
//
// It owns the console and JSON handlers, routes file output through a rotating
// lumberjack writer, and exposes context-aware helpers so pipeline code can
// tag log lines with run IDs, item IDs, and stages. The package also provides
// a no-op logger for tests and wiring code that cannot fail.
package logging
