// Package preflight provides readiness checks for the drive, the external
// tools, and the filesystem paths a rip run depends on.
//
// "discrip device --check" renders RunAll as a table. Checks never mutate
// anything: a missing output root is reported against its nearest existing
// parent, because the pipeline creates it on demand.
package preflight
