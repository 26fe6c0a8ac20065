// Package config handles XDG configuration directory, file paths and settings.
package config

import (
	"os"
	"path/filepath"
)

const (
	// AppName is the application directory name.
	AppName = "tasksync"

	// SettingsFile is the settings filename.
	SettingsFile = "config.yaml"

	// SessionFile is the stored display name filename.
	SessionFile = "session.yaml"

	// CacheFile is the default snapshot database filename.
	CacheFile = "cache.db"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// Collection overrides Settings.Collection when non-empty.
	Collection string

	// Settings holds values loaded from the settings file and environment.
	Settings Settings
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/tasksync or $HOME/.config/tasksync.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	settings, err := LoadSettings(dir)
	if err != nil {
		return nil, err
	}
	return &Config{Dir: dir, Settings: settings}, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// SettingsPath returns the path to the settings file.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// SessionPath returns the path to the stored display name file.
func (c *Config) SessionPath() string {
	return filepath.Join(c.Dir, SessionFile)
}

// CachePath returns the snapshot database path, or "" when persistence is disabled.
func (c *Config) CachePath() string {
	if c.Settings.CacheDB == "" {
		return ""
	}
	if filepath.IsAbs(c.Settings.CacheDB) {
		return c.Settings.CacheDB
	}
	return filepath.Join(c.Dir, c.Settings.CacheDB)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}
