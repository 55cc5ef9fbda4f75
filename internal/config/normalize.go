package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeDevices()
	c.normalizeRipping()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.HookDir) == "" {
		c.Paths.HookDir = defaultHookDir
	}
	if c.Paths.HookDir, err = expandPath(strings.TrimSpace(c.Paths.HookDir)); err != nil {
		return fmt.Errorf("paths.hook_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LockDir) == "" {
		c.Paths.LockDir = defaultLockDir
	}
	if c.Paths.LockDir, err = expandPath(strings.TrimSpace(c.Paths.LockDir)); err != nil {
		return fmt.Errorf("paths.lock_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.HistoryDB, err = expandPath(strings.TrimSpace(c.Paths.HistoryDB)); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.MakeMKV = defaultString(c.Tools.MakeMKV, defaultMakeMKV)
	c.Tools.Eject = defaultString(c.Tools.Eject, defaultEject)
	c.Tools.Lsblk = defaultString(c.Tools.Lsblk, defaultLsblk)
	c.Tools.Shell = defaultString(c.Tools.Shell, defaultShell)
}

func (c *Config) normalizeDevices() {
	out := make([]string, 0, len(c.Devices.Candidates))
	seen := make(map[string]struct{}, len(c.Devices.Candidates))
	for _, dev := range c.Devices.Candidates {
		dev = strings.TrimSpace(dev)
		if dev == "" {
			continue
		}
		if _, ok := seen[dev]; ok {
			continue
		}
		seen[dev] = struct{}{}
		out = append(out, dev)
	}
	if len(out) == 0 {
		out = DefaultCandidates()
	}
	c.Devices.Candidates = out
}

func (c *Config) normalizeRipping() {
	if c.Ripping.SpaceCheckInterval == 0 {
		c.Ripping.SpaceCheckInterval = defaultSpaceCheckInterval
	}
	c.Ripping.Profile = strings.TrimSpace(c.Ripping.Profile)
	args := make([]string, 0, len(c.Ripping.ExtraArgs))
	for _, arg := range c.Ripping.ExtraArgs {
		if arg = strings.TrimSpace(arg); arg != "" {
			args = append(args, arg)
		}
	}
	if len(args) == 0 {
		args = nil
	}
	c.Ripping.ExtraArgs = args
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(defaultString(c.Logging.Format, defaultLogFormat))
	c.Logging.Level = strings.ToLower(defaultString(c.Logging.Level, defaultLogLevel))
}

func defaultString(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
