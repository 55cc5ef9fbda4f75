package disc

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"

	"discrip/internal/services"
)

func fakeStat(modes map[string]uint32) func(string) (uint32, error) {
	return func(path string) (uint32, error) {
		mode, ok := modes[path]
		if !ok {
			return 0, fs.ErrNotExist
		}
		return mode, nil
	}
}

func TestLocateExplicitBlockDevice(t *testing.T) {
	l := &Locator{statMode: fakeStat(map[string]uint32{"/dev/sr1": unix.S_IFBLK | 0o660})}
	got, err := l.Locate("/dev/sr1", []string{"/dev/cdrom"})
	if err != nil {
		t.Fatalf("Locate returned error: %v", err)
	}
	if got != "/dev/sr1" {
		t.Fatalf("unexpected device %q", got)
	}
}

func TestLocateExplicitInvalid(t *testing.T) {
	l := &Locator{statMode: fakeStat(map[string]uint32{
		"/dev/cdrom":   unix.S_IFBLK | 0o660,
		"/dev/ttyS0":   unix.S_IFCHR | 0o660,
		"/tmp/regular": unix.S_IFREG | 0o644,
	})}
	for _, name := range []string{"/dev/dne", "/dev/does not exist", "/dev/ttyS0", "/tmp/regular"} {
		t.Run(name, func(t *testing.T) {
			_, err := l.Locate(name, []string{"/dev/cdrom"})
			var invalid *DeviceInvalidError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected DeviceInvalidError, got %v", err)
			}
			if !errors.Is(err, services.ErrDeviceInvalid) {
				t.Fatal("expected device invalid marker")
			}
			if want := "Device " + name + " not a block-special file."; err.Error() != want {
				t.Fatalf("unexpected message %q", err.Error())
			}
		})
	}
}

func TestLocateSearchesCandidatesInOrder(t *testing.T) {
	l := &Locator{statMode: fakeStat(map[string]uint32{
		"/dev/cdrom": unix.S_IFLNK | 0o777,
		"/dev/sr0":   unix.S_IFBLK | 0o660,
		"/dev/sr1":   unix.S_IFBLK | 0o660,
	})}
	got, err := l.Locate("", []string{"/dev/cdrom", "/dev/sr0", "/dev/sr1"})
	if err != nil {
		t.Fatalf("Locate returned error: %v", err)
	}
	if got != "/dev/sr0" {
		t.Fatalf("expected first block candidate, got %q", got)
	}
}

func TestLocateNotFound(t *testing.T) {
	l := &Locator{statMode: fakeStat(nil)}
	_, err := l.Locate("", []string{"/dev/cdrom", "/dev/sr0"})
	var notFound *DeviceNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected DeviceNotFoundError, got %v", err)
	}
	if !errors.Is(err, services.ErrDeviceNotFound) {
		t.Fatal("expected not found marker")
	}
	if services.ExitCode(err) != services.ExitDevice {
		t.Fatalf("unexpected exit code %d", services.ExitCode(err))
	}
}

func TestIsBlockDeviceRealFilesystem(t *testing.T) {
	dir := t.TempDir()
	regular := filepath.Join(dir, "file")
	if err := os.WriteFile(regular, nil, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if IsBlockDevice(regular) {
		t.Fatal("regular file reported as block device")
	}
	if IsBlockDevice(dir) {
		t.Fatal("directory reported as block device")
	}
	if IsBlockDevice(filepath.Join(dir, "missing")) {
		t.Fatal("missing path reported as block device")
	}
}
