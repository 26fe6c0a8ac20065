// Package session holds the display name of the current user.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"tasksync/internal/service"
)

// file is the on-disk form of a session.
type file struct {
	Name    string    `yaml:"name"`
	SavedAt time.Time `yaml:"saved_at"`
}

// Holder supplies the display name used to tag authored items.
// A Holder with an empty path lives only in memory.
type Holder struct {
	path string

	mu   sync.RWMutex
	name string
}

// Open loads the session stored at path. A missing file yields an empty holder.
func Open(path string) (*Holder, error) {
	h := &Holder{path: path}
	if path == "" {
		return h, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return h, nil
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	h.name = strings.TrimSpace(f.Name)
	return h, nil
}

// NewMemory returns a holder that is never persisted.
func NewMemory(name string) *Holder {
	return &Holder{name: strings.TrimSpace(name)}
}

// Name returns the current display name, or false if none is set.
func (h *Holder) Name() (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.name, h.name != ""
}

// SetName stores name after trimming it. Blank names are rejected.
func (h *Holder) SetName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &service.ValidationError{Field: "name", Msg: "required"}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.save(file{Name: name, SavedAt: time.Now().UTC()}); err != nil {
		return err
	}
	h.name = name
	return nil
}

// Clear forgets the display name.
func (h *Holder) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.name = ""
	if h.path == "" {
		return nil
	}
	if err := os.Remove(h.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}

// save writes f atomically via a temp file.
func (h *Holder) save(f file) error {
	if h.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(h.path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tmpPath := h.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := os.Rename(tmpPath, h.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename session: %w", err)
	}
	return nil
}
