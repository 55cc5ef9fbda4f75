package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"discrip/internal/services"
)

// Environment variable names understood by Resolve.
const (
	EnvDebug       = "DEBUG"
	EnvNoEject     = "NO_EJECT"
	EnvFailedEject = "FAILED_EJECT"
	EnvUID         = "MKV_UID"
	EnvGID         = "MKV_GID"
	EnvUmask       = "UMASK"
	EnvDevName     = "DEVNAME"

	EnvConfigPath = "DISCRIP_CONFIG"
	EnvEnvFile    = "DISCRIP_ENV_FILE"
	EnvOutputDir  = "DISCRIP_OUTPUT_DIR"
	EnvHookDir    = "DISCRIP_HOOK_DIR"
	EnvHistoryDB  = "DISCRIP_HISTORY_DB"
	EnvLogLevel   = "DISCRIP_LOG_LEVEL"
	EnvLogFormat  = "DISCRIP_LOG_FORMAT"
)

// ConfigError reports an environment input that cannot be coerced.
type ConfigError struct {
	Key    string
	Value  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s=%q: %s", e.Key, e.Value, e.Reason)
}

// Is lets callers match ConfigError with services.ErrConfiguration.
func (e *ConfigError) Is(target error) bool {
	return target == services.ErrConfiguration
}

// Inputs is everything Resolve reads. Environ uses os.Environ formatting.
type Inputs struct {
	Environ  []string
	EnvFile  map[string]string
	Settings *Config
}

// RunConfig is the resolved configuration for one run. It is passed by value
// and never mutated after Resolve returns; WithDevice returns a copy.
type RunConfig struct {
	DeviceName  string
	Device      string
	UID         int
	GID         int
	Umask       fs.FileMode
	Debug       bool
	NoEject     bool
	FailedEject bool
	OutputRoot  string
	HookDir     string
	Settings    Config

	environ []string
}

// Resolve merges the environment snapshot over the file settings. The process
// environment wins over dotenv values, which win over the TOML file.
func Resolve(in Inputs) (RunConfig, error) {
	env := mergeEnv(in.EnvFile, in.Environ)

	settings := Default()
	if in.Settings != nil {
		settings = in.Settings.clone()
	}
	applyEnvOverrides(&settings, env)
	if err := settings.normalize(); err != nil {
		return RunConfig{}, services.Wrap(services.ErrConfiguration, "config", "normalize", "", err)
	}
	if err := settings.Validate(); err != nil {
		return RunConfig{}, services.Wrap(services.ErrConfiguration, "config", "validate", "", err)
	}

	cfg := RunConfig{
		DeviceName: strings.TrimSpace(env[EnvDevName]),
		OutputRoot: settings.Paths.OutputDir,
		HookDir:    settings.Paths.HookDir,
		Settings:   settings,
		environ:    flattenEnv(env),
	}

	var err error
	if cfg.Debug, err = parseBool(env, EnvDebug); err != nil {
		return RunConfig{}, err
	}
	if cfg.NoEject, err = parseBool(env, EnvNoEject); err != nil {
		return RunConfig{}, err
	}
	if cfg.FailedEject, err = parseBool(env, EnvFailedEject); err != nil {
		return RunConfig{}, err
	}
	if cfg.UID, err = parseOwnerID(env, EnvUID); err != nil {
		return RunConfig{}, err
	}
	if cfg.GID, err = parseOwnerID(env, EnvGID); err != nil {
		return RunConfig{}, err
	}
	if cfg.Umask, err = parseUmask(env); err != nil {
		return RunConfig{}, err
	}
	if cfg.Debug {
		cfg.Settings.Logging.Level = "debug"
	}
	return cfg, nil
}

// WithDevice returns a copy bound to the located device node.
func (c RunConfig) WithDevice(path string) RunConfig {
	c.Device = path
	c.environ = append([]string(nil), c.environ...)
	return c
}

// Environ returns a copy of the merged environment in KEY=VALUE form, sorted by key.
func (c RunConfig) Environ() []string {
	return append([]string(nil), c.environ...)
}

// Lookup returns a value from the merged environment snapshot.
func (c RunConfig) Lookup(key string) (string, bool) {
	prefix := key + "="
	for _, kv := range c.environ {
		if strings.HasPrefix(kv, prefix) {
			return kv[len(prefix):], true
		}
	}
	return "", false
}

// DirMode is the permission applied to every directory under the output root.
func (c RunConfig) DirMode() fs.FileMode {
	return 0o777 &^ c.Umask
}

// FileMode is the permission applied to every regular file under the output root.
func (c RunConfig) FileMode() fs.FileMode {
	return 0o666 &^ c.Umask
}

// ReadEnvFile parses a dotenv file without touching the process environment.
// A missing file yields an empty map.
func ReadEnvFile(path string) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat env file: %w", err)
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "config", "env file", path, err)
	}
	return values, nil
}

func mergeEnv(file map[string]string, environ []string) map[string]string {
	env := make(map[string]string, len(file)+len(environ))
	for k, v := range file {
		env[k] = v
	}
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

func flattenEnv(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

func applyEnvOverrides(c *Config, env map[string]string) {
	if v := strings.TrimSpace(env[EnvOutputDir]); v != "" {
		c.Paths.OutputDir = v
	}
	if v := strings.TrimSpace(env[EnvHookDir]); v != "" {
		c.Paths.HookDir = v
	}
	if v := strings.TrimSpace(env[EnvHistoryDB]); v != "" {
		c.Paths.HistoryDB = v
	}
	if v := strings.TrimSpace(env[EnvLogLevel]); v != "" {
		c.Logging.Level = v
	}
	if v := strings.TrimSpace(env[EnvLogFormat]); v != "" {
		c.Logging.Format = v
	}
}

func parseBool(env map[string]string, key string) (bool, error) {
	raw := env[key]
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "false":
		return false, nil
	case "true":
		return true, nil
	default:
		return false, &ConfigError{Key: key, Value: raw, Reason: "must be true or false"}
	}
}

func parseOwnerID(env map[string]string, key string) (int, error) {
	raw := env[key]
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return DefaultOwnerID, nil
	}
	id, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, &ConfigError{Key: key, Value: raw, Reason: "must be an integer"}
	}
	if id < 0 {
		return DefaultOwnerID, nil
	}
	return id, nil
}

func parseUmask(env map[string]string) (fs.FileMode, error) {
	raw := env[EnvUmask]
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return DefaultUmask, nil
	}
	digits := strings.TrimPrefix(strings.TrimPrefix(trimmed, "0o"), "0O")
	value, err := strconv.ParseUint(digits, 8, 32)
	if err != nil {
		return 0, &ConfigError{Key: EnvUmask, Value: raw, Reason: "must be an octal number"}
	}
	if value > 0o777 {
		return 0, &ConfigError{Key: EnvUmask, Value: raw, Reason: "must not exceed 0777"}
	}
	return fs.FileMode(value), nil
}
