package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"discrip/internal/config"
	"discrip/internal/disc"
	"discrip/internal/logging"
	"discrip/internal/services"
)

type commandContext struct {
	configFlag  *string
	envFileFlag *string
	environ     func() []string
	locator     *disc.Locator
}

func newCommandContext(configFlag, envFileFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		envFileFlag: envFileFlag,
		environ:     os.Environ,
		locator:     disc.NewLocator(),
	}
}

// configPath returns the flag value, then $DISCRIP_CONFIG. Empty lets
// config.Load probe the default location.
func (c *commandContext) configPath() string {
	if c.configFlag != nil {
		if p := strings.TrimSpace(*c.configFlag); p != "" {
			return p
		}
	}
	return strings.TrimSpace(os.Getenv(config.EnvConfigPath))
}

func (c *commandContext) envFilePath() string {
	if c.envFileFlag != nil {
		if p := strings.TrimSpace(*c.envFileFlag); p != "" {
			return p
		}
	}
	if p := strings.TrimSpace(os.Getenv(config.EnvEnvFile)); p != "" {
		return p
	}
	return config.DefaultEnvFilePath()
}

// resolve reads the config file, the dotenv file, and the environment into a
// RunConfig. It is re-run for every disc in watch mode so edits apply to the
// next insertion.
func (c *commandContext) resolve() (config.RunConfig, error) {
	path := c.configPath()
	settings, _, _, err := config.Load(path)
	if err != nil {
		return config.RunConfig{}, services.Wrap(services.ErrConfiguration, "config", "load", path, err)
	}
	envFile, err := config.ReadEnvFile(c.envFilePath())
	if err != nil {
		return config.RunConfig{}, err
	}
	return config.Resolve(config.Inputs{
		Environ:  c.environ(),
		EnvFile:  envFile,
		Settings: settings,
	})
}

func (c *commandContext) logger(cfg config.RunConfig) (*slog.Logger, error) {
	logger, err := logging.NewFromConfig(&cfg.Settings)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "config", "logging", "", err)
	}
	return logger, nil
}

// locate resolves the drive: override, then DEVNAME, then the candidates.
func (c *commandContext) locate(cfg config.RunConfig, override string) (string, error) {
	explicit := strings.TrimSpace(override)
	if explicit == "" {
		explicit = cfg.DeviceName
	}
	return c.locator.Locate(explicit, cfg.Settings.Devices.Candidates)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func octal(mode os.FileMode) string {
	return fmt.Sprintf("%04o", uint32(mode.Perm()))
}
