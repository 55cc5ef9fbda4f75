package ripping

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"discrip/internal/config"
	"discrip/internal/fileutil"
	"discrip/internal/logging"
	"discrip/internal/services"
)

// FailedSentinel is the marker file written into a failed run's directory.
const FailedSentinel = "failed"

// Finalizer applies ownership and modes to a run's output and writes the
// failure sentinel.
type Finalizer struct {
	uid      int
	gid      int
	dirMode  fs.FileMode
	fileMode fs.FileMode
	logger   *slog.Logger
}

// NewFinalizer derives ownership and modes from cfg.
func NewFinalizer(cfg config.RunConfig, logger *slog.Logger) *Finalizer {
	return &Finalizer{
		uid:      cfg.UID,
		gid:      cfg.GID,
		dirMode:  cfg.DirMode(),
		fileMode: cfg.FileMode(),
		logger:   logging.NewComponentLogger(logger, "finalizer"),
	}
}

// Apply sets owner, group and mode on dir and everything beneath it. A
// missing or empty dir is a no-op.
func (f *Finalizer) Apply(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return nil
	}
	if _, err := os.Lstat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := fileutil.ApplyOwnership(dir, f.uid, f.gid, f.dirMode, f.fileMode); err != nil {
		return services.Wrap(services.ErrExternalTool, "finalize", "ownership", "failed to apply ownership to "+dir, err)
	}
	f.logger.Info("ownership applied",
		logging.String(logging.FieldEventType, "ownership_applied"),
		logging.String("path", dir),
		logging.Int("uid", f.uid),
		logging.Int("gid", f.gid),
		logging.String("dir_mode", modeString(f.dirMode)),
		logging.String("file_mode", modeString(f.fileMode)),
	)
	return nil
}

// MarkFailed writes the zero-byte failure sentinel into dir.
func (f *Finalizer) MarkFailed(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("run directory required")
	}
	path := filepath.Join(dir, FailedSentinel)
	if err := fileutil.Touch(path, f.fileMode); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "finalize", "sentinel", "failed to write failure sentinel", err)
	}
	f.logger.Info("failure sentinel written",
		logging.String(logging.FieldEventType, "failed_sentinel_written"),
		logging.String("path", path),
	)
	return path, nil
}

func modeString(m fs.FileMode) string {
	return fmt.Sprintf("%#o", uint32(m.Perm()))
}
