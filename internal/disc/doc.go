// Package disc owns the optical drive: locating the device node, claiming it
// for the duration of a run, reading its volume label, probing tray status,
// and ejecting the medium.
package disc
