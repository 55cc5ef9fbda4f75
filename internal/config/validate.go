package config

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRipping(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if !filepath.IsAbs(c.Paths.OutputDir) {
		return fmt.Errorf("paths.output_dir must be absolute, got %q", c.Paths.OutputDir)
	}
	if !filepath.IsAbs(c.Paths.HookDir) {
		return fmt.Errorf("paths.hook_dir must be absolute, got %q", c.Paths.HookDir)
	}
	for _, dev := range c.Devices.Candidates {
		if !filepath.IsAbs(dev) {
			return fmt.Errorf("devices.candidates entry %q must be an absolute path", dev)
		}
	}
	return nil
}

func (c *Config) validateRipping() error {
	if c.Ripping.MinFreeMiB < 0 {
		return errors.New("ripping.min_free_mib must be zero or positive")
	}
	if c.Ripping.SpaceCheckInterval < 0 {
		return errors.New("ripping.space_check_interval must be positive")
	}
	if c.Ripping.RipTimeout < 0 {
		return errors.New("ripping.rip_timeout must be zero (disabled) or positive")
	}
	if c.Ripping.HookTimeout < 0 {
		return errors.New("ripping.hook_timeout must be zero (disabled) or positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
