package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir   string `toml:"state_dir"`
	LibraryDir string `toml:"library_dir"`
	LogDir     string `toml:"log_dir"`
}

// Policy holds the global dry-run and retry switches consulted by the
// reconciler and its downstream steps. It is threaded through calls as an
// immutable value so the algorithm stays testable with arbitrary
// combinations.
type Policy struct {
	PreventDownload     bool `toml:"prevent_download"`
	PreventRename       bool `toml:"prevent_rename"`
	PreventDeletion     bool `toml:"prevent_deletion"`
	PreventPlaylistEdit bool `toml:"prevent_playlist_edit"`
	RetryFailed         bool `toml:"retry_failed"`
	CleanupDataAllowed  bool `toml:"cleanup_data_allowed"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Ytdlp contains configuration for the yt-dlp binary used for catalog
// listing and downloads.
type Ytdlp struct {
	Binary         string `toml:"binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Channel describes one synchronized channel.
type Channel struct {
	ID              string   `toml:"id"`
	URL             string   `toml:"url"`
	Name            string   `toml:"name"`
	Format          string   `toml:"format"`
	KeepClean       bool     `toml:"keep_clean"`
	ReversePlaylist bool     `toml:"reverse_playlist"`
	PreRules        []string `toml:"pre_rules"`
	PostRules       []string `toml:"post_rules"`
}

// Config encapsulates all configuration values for chansync.
type Config struct {
	Paths    Paths     `toml:"paths"`
	Policy   Policy    `toml:"policy"`
	Logging  Logging   `toml:"logging"`
	Ytdlp    Ytdlp     `toml:"ytdlp"`
	Channels []Channel `toml:"channels"`
}

// DefaultConfigPath returns the standard location of the config file.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "chansync", "config.toml"), nil
}

// Load reads the TOML file at path over the defaults. An empty path falls
// back to DefaultConfigPath; a missing file yields the defaults unchanged so
// first runs work without any setup.
func Load(path string) (*Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg.normalize()
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the state, library, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LibraryDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ChannelByID returns the channel with the given id, if configured.
func (c *Config) ChannelByID(id string) (Channel, bool) {
	for _, ch := range c.Channels {
		if ch.ID == id {
			return ch, true
		}
	}
	return Channel{}, false
}

// OutputDir returns the directory holding the channel's media files.
func (ch Channel) OutputDir(libraryDir string) string {
	name := strings.TrimSpace(ch.Name)
	if name == "" {
		name = ch.ID
	}
	return filepath.Join(libraryDir, name)
}

// PlaylistPath returns the location of the channel's playlist manifest.
func (ch Channel) PlaylistPath(libraryDir string) string {
	return filepath.Join(ch.OutputDir(libraryDir), ch.ID+".m3u")
}

var subChannelSuffix = regexp.MustCompile(`_P\d+$`)

// BaseID returns the identifier shared by a channel and its sub-channels.
// Channels split from one catalog carry ids of the form <base>_P<digits>;
// everything else is its own base.
func (ch Channel) BaseID() string {
	return subChannelSuffix.ReplaceAllString(ch.ID, "")
}

// Siblings returns all configured channels sharing ch's base id, ch included.
func (c *Config) Siblings(ch Channel) []Channel {
	base := ch.BaseID()
	var out []Channel
	for _, other := range c.Channels {
		if other.BaseID() == base {
			out = append(out, other)
		}
	}
	return out
}
