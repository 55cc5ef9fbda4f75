// Package logging assembles structured slog loggers for discrip.
//
// It owns the console and JSON handlers, level and output plumbing, and
// context helpers that tag lines with the run ID, pipeline state, and device.
// Logs go to stderr; stdout is reserved for the progress lines external
// tooling matches on. A no-op logger is provided for tests.
package logging
