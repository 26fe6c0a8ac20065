package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. TASKSYNC_BASE_URL.
const EnvPrefix = "TASKSYNC"

// Settings are the user-tunable values. Precedence: defaults, then the
// settings file, then environment variables.
type Settings struct {
	// BaseURL is the remote item store root, e.g. http://localhost:3000.
	BaseURL string

	// Collection is the default collection ("tasks" or "stories").
	Collection string

	// Timeout is the transport timeout for a single request.
	Timeout time.Duration

	// Token is an optional bearer credential forwarded on every request.
	Token string

	// CacheDB is the snapshot database path, relative to the config dir.
	// Empty disables snapshot persistence.
	CacheDB string
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		BaseURL:    "http://localhost:3000",
		Collection: "tasks",
		Timeout:    10 * time.Second,
		CacheDB:    CacheFile,
	}
}

// LoadSettings reads <dir>/config.yaml if present and applies environment overrides.
func LoadSettings(dir string) (Settings, error) {
	def := DefaultSettings()

	v := viper.New()
	v.SetDefault("base_url", def.BaseURL)
	v.SetDefault("collection", def.Collection)
	v.SetDefault("timeout", def.Timeout)
	v.SetDefault("token", def.Token)
	v.SetDefault("cache_db", def.CacheDB)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	path := filepath.Join(dir, SettingsFile)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("failed to read %s: %w", SettingsFile, err)
		}
	}

	return Settings{
		BaseURL:    v.GetString("base_url"),
		Collection: v.GetString("collection"),
		Timeout:    v.GetDuration("timeout"),
		Token:      v.GetString("token"),
		CacheDB:    v.GetString("cache_db"),
	}, nil
}
