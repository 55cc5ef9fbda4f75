package disc

import (
	"errors"
	"path/filepath"
	"testing"

	"discrip/internal/services"
)

func TestLockPath(t *testing.T) {
	if got := LockPath("/tmp", "/dev/sr0"); got != filepath.Join("/tmp", "discrip-dev_sr0.lock") {
		t.Fatalf("unexpected lock path %q", got)
	}
	if got := LockPath("/tmp", ""); got != filepath.Join("/tmp", "discrip-default.lock") {
		t.Fatalf("unexpected lock path %q", got)
	}
}

func TestAcquireLockIsExclusive(t *testing.T) {
	dir := t.TempDir()
	first, err := AcquireLock(dir, "/dev/sr0")
	if err != nil {
		t.Fatalf("AcquireLock returned error: %v", err)
	}

	if _, err := AcquireLock(dir, "/dev/sr0"); !errors.Is(err, services.ErrDeviceBusy) {
		t.Fatalf("expected busy error, got %v", err)
	}

	other, err := AcquireLock(dir, "/dev/sr1")
	if err != nil {
		t.Fatalf("lock on another device should succeed: %v", err)
	}
	defer other.Release() //nolint:errcheck

	if err := first.Release(); err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	again, err := AcquireLock(dir, "/dev/sr0")
	if err != nil {
		t.Fatalf("expected lock after release: %v", err)
	}
	_ = again.Release()

	var nilLock *Lock
	if err := nilLock.Release(); err != nil {
		t.Fatalf("nil release returned error: %v", err)
	}
}
