package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains filesystem locations used by a run.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	HookDir   string `toml:"hook_dir"`
	LockDir   string `toml:"lock_dir"`
	LogDir    string `toml:"log_dir"`
	HistoryDB string `toml:"history_db"`
}

// Tools names the external binaries the pipeline shells out to.
type Tools struct {
	MakeMKV string `toml:"makemkvcon"`
	Eject   string `toml:"eject"`
	Lsblk   string `toml:"lsblk"`
	Shell   string `toml:"shell"`
}

// Devices lists the device nodes probed when DEVNAME is unset.
type Devices struct {
	Candidates []string `toml:"candidates"`
}

// Ripping contains rip tuning knobs.
type Ripping struct {
	MinFreeMiB         int      `toml:"min_free_mib"`
	SpaceCheckInterval int      `toml:"space_check_interval"`
	RipTimeout         int      `toml:"rip_timeout"`
	HookTimeout        int      `toml:"hook_timeout"`
	DirectIO           bool     `toml:"direct_io"`
	Profile            string   `toml:"profile"`
	ExtraArgs          []string `toml:"extra_args"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config holds the file-backed settings. Per-run toggles (DEBUG, NO_EJECT,
// ownership, umask) come from the environment and live on RunConfig.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Tools   Tools   `toml:"tools"`
	Devices Devices `toml:"devices"`
	Ripping Ripping `toml:"ripping"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the path probed when no config path is supplied.
func DefaultConfigPath() string {
	return defaultConfigPath
}

// SampleConfig returns an annotated configuration file with every default spelled out.
func SampleConfig() string {
	return sampleConfig
}

// Load locates, parses, and validates a configuration file. A missing file is
// not an error; defaults are returned and exists reports false.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config %s: %s", resolvedPath, strings.TrimSpace(strict.String()))
			}
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultConfigPath
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", expanded)
	}
	return expanded, true, nil
}

// clone returns a deep copy so RunConfig never shares slices with the caller.
func (c Config) clone() Config {
	out := c
	out.Devices.Candidates = append([]string(nil), c.Devices.Candidates...)
	out.Ripping.ExtraArgs = append([]string(nil), c.Ripping.ExtraArgs...)
	return out
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && pathValue[1] == '/' {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// MinFreeBytes is the free-space floor for the output filesystem.
func (r Ripping) MinFreeBytes() uint64 {
	if r.MinFreeMiB <= 0 {
		return 0
	}
	return uint64(r.MinFreeMiB) * 1024 * 1024
}

// SpaceCheckEvery is the low-space watchdog interval.
func (r Ripping) SpaceCheckEvery() time.Duration {
	return time.Duration(r.SpaceCheckInterval) * time.Second
}

// RipDeadline is the makemkvcon time limit; zero disables it.
func (r Ripping) RipDeadline() time.Duration {
	return time.Duration(r.RipTimeout) * time.Second
}

// HookDeadline is the per-hook time limit; zero disables it.
func (r Ripping) HookDeadline() time.Duration {
	return time.Duration(r.HookTimeout) * time.Second
}
