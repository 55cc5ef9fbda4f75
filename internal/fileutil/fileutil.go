package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// maxRunSuffix bounds the search for a free run directory.
const maxRunSuffix = 999

// FreeBytes reports the bytes available to unprivileged users on the
// filesystem holding path.
func FreeBytes(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return st.Bavail * uint64(st.Bsize), nil //nolint:gosec
}

// NextRunDir creates and returns the first free directory named
// <base>_NN under root, starting at 01. Creation is exclusive so two
// concurrent runs never share a directory.
func NextRunDir(root, base string, mode fs.FileMode) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", errors.New("run directory base name required")
	}
	if err := os.MkdirAll(root, mode); err != nil {
		return "", fmt.Errorf("create output root: %w", err)
	}
	for n := 1; n <= maxRunSuffix; n++ {
		dir := filepath.Join(root, fmt.Sprintf("%s_%02d", base, n))
		err := os.Mkdir(dir, mode)
		if err == nil {
			// Mkdir is subject to the process umask; force the requested mode.
			if err := os.Chmod(dir, mode); err != nil {
				return "", fmt.Errorf("chmod run directory: %w", err)
			}
			return dir, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return "", fmt.Errorf("create run directory: %w", err)
	}
	return "", fmt.Errorf("no free run directory for %q under %s", base, root)
}

// ApplyOwnership walks root and sets owner, group and mode on every entry.
// Directories get dirMode, regular files get fileMode, symlinks are chowned
// without following. Every entry is attempted; failures are joined.
func ApplyOwnership(root string, uid, gid int, dirMode, fileMode fs.FileMode) error {
	var errs []error
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			errs = append(errs, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if err := os.Lchown(path, uid, gid); err != nil {
			errs = append(errs, err)
		}
		switch {
		case d.Type()&fs.ModeSymlink != 0:
		case d.IsDir():
			if err := os.Chmod(path, dirMode); err != nil {
				errs = append(errs, err)
			}
		default:
			if err := os.Chmod(path, fileMode); err != nil {
				errs = append(errs, err)
			}
		}
		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}
	return errors.Join(errs...)
}

// Touch creates path if missing with the given mode, leaving existing
// content untouched.
func Touch(path string, mode fs.FileMode) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Chmod(path, mode)
}

// ReplaceFile renames src over dest, removing any existing dest first.
func ReplaceFile(src, dest string) error {
	if src == dest {
		return nil
	}
	if err := os.Remove(dest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove existing %s: %w", dest, err)
	}
	if err := os.Rename(src, dest); err != nil {
		return fmt.Errorf("rename %s: %w", src, err)
	}
	return nil
}

// ListFiles returns the regular files in dir whose names end in suffix,
// sorted by name.
func ListFiles(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), strings.ToLower(suffix)) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}
