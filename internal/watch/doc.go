// Package watch turns udev media-change events into pipeline runs.
//
// Monitor listens on the kernel netlink socket for block-device change events
// that carry ID_CDROM_MEDIA=1, filters them down to the configured drive,
// waits for the drive to report a readable disc, and then invokes the handler.
// Handlers run one at a time; events that arrive while a rip is in progress
// are ignored for a short cooldown once it finishes.
package watch
