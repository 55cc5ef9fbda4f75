// Package hooks runs user-supplied lifecycle scripts at fixed pipeline points.
//
// A hook is any file named hook-<point>.sh in the hook directory. Absence is
// a silent no-op. Presence is re-checked on every Fire so the runner never
// caches discovery. Executable files are run directly; anything else goes
// through the configured shell.
//
// Fire does not return when the script exits. It returns when every process
// in the script's process group has exited, which covers jobs the script put
// in the background and jobs those jobs backgrounded in turn. The runner
// marks itself a child subreaper so orphaned descendants are reparented to
// it and can be reaped.
package hooks
