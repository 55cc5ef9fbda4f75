package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"discrip/internal/config"
	"discrip/internal/deps"
	"discrip/internal/disc"
	"discrip/internal/fileutil"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckOutputRoot verifies the output root, or the parent it will be created
// under, is writable.
func CheckOutputRoot(path string) Result {
	const name = "Output root"
	if _, err := os.Stat(path); err == nil {
		return CheckDirectoryAccess(name, path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	parent := nearestExisting(path)
	res := CheckDirectoryAccess(name, parent)
	if res.Passed {
		res.Detail = fmt.Sprintf("%s (will be created under %s)", path, parent)
	}
	return res
}

// CheckHookDir verifies the hook directory is searchable. Hooks are optional,
// so the count of discovered scripts is informational.
func CheckHookDir(path string) Result {
	const name = "Hook directory"
	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	matches, _ := filepath.Glob(filepath.Join(path, "hook-*.sh"))
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d hook scripts)", path, len(matches))}
}

// CheckFreeSpace compares free space on the filesystem holding path with min.
func CheckFreeSpace(path string, min uint64) Result {
	const name = "Free space"
	target := nearestExisting(path)
	free, err := fileutil.FreeBytes(target)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", target, err)}
	}
	detail := fmt.Sprintf("%d MiB free, %d MiB required", free>>20, min>>20)
	return Result{Name: name, Passed: free >= min, Detail: detail}
}

// CheckDevice verifies the drive node and reports tray status.
func CheckDevice(device string) Result {
	const name = "Optical device"
	device = strings.TrimSpace(device)
	if device == "" {
		return Result{Name: name, Detail: "Unable to find optical device"}
	}
	if !disc.IsBlockDevice(device) {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not a block-special file)", device)}
	}
	status, err := disc.CheckDriveStatus(device)
	if err != nil {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (status unavailable: %v)", device, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", device, status)}
}

// CheckSystemDeps evaluates the binaries a rip needs.
func CheckSystemDeps(ctx context.Context, settings config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "MakeMKV",
			Command:     settings.Tools.MakeMKV,
			Description: "Required for disc ripping",
			VersionArgs: []string{"--version"},
		},
		{
			Name:        "eject",
			Command:     settings.Tools.Eject,
			Description: "Required to eject the disc after a run",
			VersionArgs: []string{"--version"},
		},
		{
			Name:        "lsblk",
			Command:     settings.Tools.Lsblk,
			Description: "Reads the volume label when MakeMKV reports none",
			Optional:    true,
		},
		{
			Name:        "Hook shell",
			Command:     settings.Tools.Shell,
			Description: "Runs hook scripts",
		},
	}
	return deps.CheckBinaries(ctx, requirements)
}

func nearestExisting(path string) string {
	path = filepath.Clean(path)
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}
