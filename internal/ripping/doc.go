// Package ripping drives one disc through the rip lifecycle.
//
// A Pipeline moves through Init, Scanning, Preparing, Ripping and Finalizing
// before settling in Done or Failed. Each state fires its lifecycle hooks in
// a fixed order through a HookFirer. During Ripping the pipeline multiplexes
// three sources in one loop: classified makemkvcon output, finished title
// files reported by an inotify TitleWatcher, and a free-space ticker that
// stops the rip when the output filesystem runs low.
//
// Failures route through the on-err hooks, the optional "failed" sentinel and
// the failure eject branch; DecideEject holds the eject decision table. The
// Reporter owns the plain-text stdout/stderr lines external tooling matches
// on, separate from structured logs.
package ripping
