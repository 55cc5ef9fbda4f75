package disc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"discrip/internal/services"
)

// Lock is an exclusive claim on a device for the duration of a run.
type Lock struct {
	lock *flock.Flock
}

// LockPath returns the lock file used for device under dir.
func LockPath(dir, device string) string {
	name := strings.Trim(strings.ReplaceAll(device, "/", "_"), "_")
	if name == "" {
		name = "default"
	}
	return filepath.Join(dir, "discrip-"+name+".lock")
}

// AcquireLock takes a non-blocking exclusive lock for device. A second run
// against the same device fails with services.ErrDeviceBusy.
func AcquireLock(dir, device string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	path := LockPath(dir, device)
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire device lock %s: %w", path, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrDeviceBusy, "device", "lock", fmt.Sprintf("%s is in use by another run", device), nil)
	}
	return &Lock{lock: fl}, nil
}

// Release drops the lock. Safe on a nil receiver.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
