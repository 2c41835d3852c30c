package config

const (
	defaultStateDir       = "~/.local/share/chansync/state"
	defaultLibraryDir     = "~/media"
	defaultLogDir         = "~/.local/share/chansync/logs"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultLogMaxSizeMB   = 20
	defaultLogMaxAgeDays  = 60
	defaultYtdlpBinary    = "yt-dlp"
	defaultYtdlpTimeout   = 1800
	defaultChannelFormat  = "mp4"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:   defaultStateDir,
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
		Ytdlp: Ytdlp{
			Binary:         defaultYtdlpBinary,
			TimeoutSeconds: defaultYtdlpTimeout,
		},
	}
}
