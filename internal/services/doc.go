// Package services defines shared utilities consumed by the rip pipeline and
// its external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs and pipeline states for logging.
//   - Structured error markers plus the Wrap helper, and ExitCode which turns
//     a run's terminal error into the process exit status.
//
// The makemkv subpackage wraps the ripping engine itself.
package services
