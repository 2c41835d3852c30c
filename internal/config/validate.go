package config

import (
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateChannels()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return fmt.Errorf("paths.state_dir is required")
	}
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return fmt.Errorf("paths.library_dir is required")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateChannels() error {
	seen := make(map[string]struct{}, len(c.Channels))
	for i, ch := range c.Channels {
		if ch.ID == "" {
			return fmt.Errorf("channels[%d]: id is required", i)
		}
		if strings.ContainsAny(ch.ID, "/\\") {
			return fmt.Errorf("channel %q: id must not contain path separators", ch.ID)
		}
		if ch.URL == "" {
			return fmt.Errorf("channel %q: url is required", ch.ID)
		}
		if _, dup := seen[ch.ID]; dup {
			return fmt.Errorf("channel %q: duplicate id", ch.ID)
		}
		seen[ch.ID] = struct{}{}
	}
	return nil
}
