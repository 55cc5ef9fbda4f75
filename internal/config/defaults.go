package config

const (
	defaultConfigPath         = "/config/discrip.toml"
	defaultEnvFilePath        = "/config/discrip.env"
	defaultOutputDir          = "/output"
	defaultHookDir            = "/"
	defaultLockDir            = "/tmp"
	defaultMakeMKV            = "makemkvcon"
	defaultEject              = "eject"
	defaultLsblk              = "lsblk"
	defaultShell              = "bash"
	defaultMinFreeMiB         = 32
	defaultSpaceCheckInterval = 5
	defaultLogFormat          = "console"
	defaultLogLevel           = "warn"

	// DefaultOwnerID is applied to MKV_UID and MKV_GID when unset or negative.
	DefaultOwnerID = 1000
	// DefaultUmask is applied when UMASK is unset.
	DefaultUmask = 0o022
)

// DefaultCandidates are probed in order when DEVNAME is unset.
func DefaultCandidates() []string {
	return []string{"/dev/cdrom", "/dev/sr0"}
}

// DefaultEnvFilePath returns the dotenv path probed when none is supplied.
func DefaultEnvFilePath() string {
	return defaultEnvFilePath
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			HookDir:   defaultHookDir,
			LockDir:   defaultLockDir,
		},
		Tools: Tools{
			MakeMKV: defaultMakeMKV,
			Eject:   defaultEject,
			Lsblk:   defaultLsblk,
			Shell:   defaultShell,
		},
		Devices: Devices{
			Candidates: DefaultCandidates(),
		},
		Ripping: Ripping{
			MinFreeMiB:         defaultMinFreeMiB,
			SpaceCheckInterval: defaultSpaceCheckInterval,
			DirectIO:           true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
