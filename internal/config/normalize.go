package config

import (
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() {
	c.Paths.StateDir = expandPath(c.Paths.StateDir)
	c.Paths.LibraryDir = expandPath(c.Paths.LibraryDir)
	c.Paths.LogDir = expandPath(c.Paths.LogDir)

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxAgeDays <= 0 {
		c.Logging.MaxAgeDays = defaultLogMaxAgeDays
	}

	if strings.TrimSpace(c.Ytdlp.Binary) == "" {
		c.Ytdlp.Binary = defaultYtdlpBinary
	}
	if c.Ytdlp.TimeoutSeconds <= 0 {
		c.Ytdlp.TimeoutSeconds = defaultYtdlpTimeout
	}

	for i := range c.Channels {
		ch := &c.Channels[i]
		ch.ID = strings.TrimSpace(ch.ID)
		ch.URL = strings.TrimSpace(ch.URL)
		ch.Name = strings.TrimSpace(ch.Name)
		ch.Format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ch.Format), "."))
		if ch.Format == "" {
			ch.Format = defaultChannelFormat
		}
	}
}

func expandPath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return trimmed
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
		}
	}
	return filepath.Clean(trimmed)
}
