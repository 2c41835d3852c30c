// Package config loads and validates the TOML configuration for chansync.
//
// Configuration sections by subsystem:
//   - Paths: state, library, and log directories
//   - Policy: global dry-run and retry switches
//   - Logging: log format, level, and rotation limits
//   - Ytdlp: external binary settings for listing and downloading
//   - Channels: one block per synchronized channel
//
// Load applies defaults, expands tildes, and validates before returning, so
// downstream code can treat a *Config as canonical.
package config
