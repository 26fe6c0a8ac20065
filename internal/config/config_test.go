package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"tasksync/internal/config"
)

func TestLoadSettings_Defaults(t *testing.T) {
	got, err := config.LoadSettings(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != config.DefaultSettings() {
		t.Errorf("expected defaults %+v, got %+v", config.DefaultSettings(), got)
	}
}

func TestLoadSettings_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	data := "base_url: http://items.internal:8080\ncollection: stories\ntimeout: 3s\n"
	if err := os.WriteFile(filepath.Join(dir, config.SettingsFile), []byte(data), 0600); err != nil {
		t.Fatalf("failed to write settings: %v", err)
	}
	t.Setenv("TASKSYNC_COLLECTION", "tasks")
	t.Setenv("TASKSYNC_TOKEN", "s3cret")

	got, err := config.LoadSettings(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.BaseURL != "http://items.internal:8080" {
		t.Errorf("expected base url from file, got %q", got.BaseURL)
	}
	if got.Collection != "tasks" {
		t.Errorf("expected env to override collection, got %q", got.Collection)
	}
	if got.Timeout != 3*time.Second {
		t.Errorf("expected 3s timeout, got %v", got.Timeout)
	}
	if got.Token != "s3cret" {
		t.Errorf("expected token from env, got %q", got.Token)
	}
	if got.CacheDB != config.CacheFile {
		t.Errorf("expected default cache db, got %q", got.CacheDB)
	}
}

func TestLoadSettings_BadFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.SettingsFile), []byte("base_url: [\n"), 0600); err != nil {
		t.Fatalf("failed to write settings: %v", err)
	}

	if _, err := config.LoadSettings(dir); err == nil {
		t.Error("expected an error for malformed settings")
	}
}

func TestCachePath(t *testing.T) {
	cfg := &config.Config{Dir: "/home/u/.config/tasksync", Settings: config.DefaultSettings()}
	if got := cfg.CachePath(); got != filepath.Join(cfg.Dir, config.CacheFile) {
		t.Errorf("expected cache under config dir, got %q", got)
	}

	cfg.Settings.CacheDB = "/var/tmp/items.db"
	if got := cfg.CachePath(); got != "/var/tmp/items.db" {
		t.Errorf("expected absolute path kept, got %q", got)
	}

	cfg.Settings.CacheDB = ""
	if got := cfg.CachePath(); got != "" {
		t.Errorf("expected persistence disabled, got %q", got)
	}
}

func TestNew_UsesXDGConfigHome(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	cfg, err := config.New("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Dir != filepath.Join(xdg, config.AppName) {
		t.Errorf("expected dir under XDG_CONFIG_HOME, got %q", cfg.Dir)
	}
	if cfg.SessionPath() != filepath.Join(xdg, config.AppName, config.SessionFile) {
		t.Errorf("unexpected session path %q", cfg.SessionPath())
	}
}
