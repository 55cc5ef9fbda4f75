package disc

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sys/unix"

	"discrip/internal/services"
)

// DeviceInvalidError reports an explicitly named device that is missing or
// is not a block-special file.
type DeviceInvalidError struct {
	Path string
	Err  error
}

func (e *DeviceInvalidError) Error() string {
	return fmt.Sprintf("Device %s not a block-special file.", e.Path)
}

func (e *DeviceInvalidError) Unwrap() error { return e.Err }

// Is lets callers match with services.ErrDeviceInvalid.
func (e *DeviceInvalidError) Is(target error) bool {
	return target == services.ErrDeviceInvalid
}

// DeviceNotFoundError reports that no candidate device node exists.
type DeviceNotFoundError struct {
	Candidates []string
}

func (e *DeviceNotFoundError) Error() string {
	return "Unable to find optical device."
}

// Is lets callers match with services.ErrDeviceNotFound.
func (e *DeviceNotFoundError) Is(target error) bool {
	return target == services.ErrDeviceNotFound
}

// Locator resolves the optical device node. It does not check for a disc.
type Locator struct {
	statMode func(path string) (uint32, error)
}

// NewLocator returns a Locator backed by stat(2).
func NewLocator() *Locator {
	return &Locator{statMode: statMode}
}

// Locate validates explicit when it is non-empty, otherwise returns the first
// candidate that is a block device.
func (l *Locator) Locate(explicit string, candidates []string) (string, error) {
	if explicit != "" {
		ok, err := l.isBlock(explicit)
		if !ok {
			return "", &DeviceInvalidError{Path: explicit, Err: err}
		}
		return explicit, nil
	}
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if ok, _ := l.isBlock(candidate); ok {
			return candidate, nil
		}
	}
	return "", &DeviceNotFoundError{Candidates: append([]string(nil), candidates...)}
}

func (l *Locator) isBlock(path string) (bool, error) {
	stat := l.statMode
	if stat == nil {
		stat = statMode
	}
	mode, err := stat(path)
	if err != nil {
		return false, err
	}
	if mode&unix.S_IFMT != unix.S_IFBLK {
		return false, errors.New("not a block device")
	}
	return true, nil
}

// IsBlockDevice reports whether path (after following symlinks) is a block device.
func IsBlockDevice(path string) bool {
	ok, _ := NewLocator().isBlock(path)
	return ok
}

func statMode(path string) (uint32, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, err
	}
	return st.Mode, nil
}
