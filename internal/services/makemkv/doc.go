// Package makemkv mediates access to the makemkvcon CLI.
//
// It builds info and mkv invocations, streams robot-mode output line by line,
// and classifies those lines into operation, action, progress and outcome
// events. The Classifier accumulates the per-run summary (titles saved and
// failed, disc open errors, fatal license errors) that the rip pipeline uses
// to decide the run outcome.
//
// Processes are started in their own process group so a terminated rip takes
// any helper children with it.
package makemkv
