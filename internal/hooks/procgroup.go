package hooks

import (
	"errors"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

var (
	subreaperOnce sync.Once
	subreaperErr  error
)

// enableSubreaper marks this process as a child subreaper so orphaned hook
// descendants are reparented here instead of to init.
func enableSubreaper() error {
	subreaperOnce.Do(func() {
		subreaperErr = unix.Prctl(unix.PR_SET_CHILD_SUBREAPER, 1, 0, 0, 0)
	})
	return subreaperErr
}

func groupAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// reapGroup blocks until no process remains in group pgid. It first reaps
// every member that is our child, then polls for members owned by someone
// else (possible when the subreaper bit could not be set).
func reapGroup(pgid int, poll time.Duration) int {
	reaped := 0
	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-pgid, &ws, 0, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			break
		}
		if pid > 0 {
			reaped++
		}
	}
	for groupAlive(pgid) {
		time.Sleep(poll)
		// A member may have become our child since the last pass.
		for {
			var ws unix.WaitStatus
			pid, err := unix.Wait4(-pgid, &ws, unix.WNOHANG, nil)
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if err != nil || pid <= 0 {
				break
			}
			reaped++
		}
	}
	return reaped
}

func groupAlive(pgid int) bool {
	err := unix.Kill(-pgid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

func killGroup(pgid int) {
	_ = unix.Kill(-pgid, unix.SIGKILL)
}
