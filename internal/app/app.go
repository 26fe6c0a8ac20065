// Package app wires the store, cache, coordinator and session for one
// collection. It is the only place that decides which implementations are used.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"tasksync/internal/backend/httpstore"
	"tasksync/internal/cache"
	"tasksync/internal/config"
	"tasksync/internal/mutation"
	"tasksync/internal/persist"
	"tasksync/internal/service"
	"tasksync/internal/session"
	"tasksync/internal/view"
)

// Options overrides parts of the wiring. The zero value builds everything
// from the config.
type Options struct {
	// Store replaces the HTTP client built from settings.
	Store service.Store

	// Session replaces the holder read from the config dir.
	Session *session.Holder

	// Logger defaults to NewLogger(io.Discard, false).
	Logger *slog.Logger
}

// App is the explicitly constructed state shared by commands and the TUI.
type App struct {
	Collection  service.Collection
	Store       service.Store
	Cache       *cache.Cache
	Coordinator *mutation.Coordinator
	Session     *session.Holder
	Logger      *slog.Logger

	db *persist.SQLite
}

// NewLogger returns the text logger used across the application.
// Debug enables debug records; otherwise only warnings and errors are shown.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// New builds an App for cfg. No network request is made.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = NewLogger(io.Discard, false)
	}

	name := cfg.Settings.Collection
	if cfg.Collection != "" {
		name = cfg.Collection
	}
	coll, err := service.ParseCollection(name)
	if err != nil {
		return nil, &service.ValidationError{Field: "collection", Msg: err.Error()}
	}

	store := opts.Store
	if store == nil {
		client, err := httpstore.New(ctx, cfg.Settings)
		if err != nil {
			return nil, &service.ValidationError{Field: "base_url", Msg: err.Error()}
		}
		store = client
	}

	holder := opts.Session
	if holder == nil {
		holder, err = session.Open(cfg.SessionPath())
		if err != nil {
			return nil, err
		}
	}

	a := &App{
		Collection: coll,
		Store:      store,
		Session:    holder,
		Logger:     logger,
	}

	var persister cache.Persister
	if path := cfg.CachePath(); path != "" {
		db, err := persist.Open(path)
		if err != nil {
			// The cache works without persistence.
			logger.Warn("snapshot persistence disabled", "path", path, "err", err)
		} else {
			a.db = db
			persister = db
		}
	}

	a.Cache = cache.New(store, coll, cache.Options{Persister: persister, Logger: logger})
	a.Coordinator = mutation.New(a.Cache, store, mutation.Options{Logger: logger})
	return a, nil
}

// User returns the current display name, or "" when none is set.
func (a *App) User() string {
	name, _ := a.Session.Name()
	return name
}

// View returns the current snapshot filtered and sorted for display.
func (a *App) View(f view.Filter) []service.Item {
	return view.Apply(a.Cache.Get(), f, a.User())
}

// Refresh loads the collection from the remote store. When the load fails
// and the cache has never been loaded, the persisted snapshot is used and
// stale is true. The returned error is the load failure in both cases.
func (a *App) Refresh(ctx context.Context) (stale bool, err error) {
	_, err = a.Cache.Load(ctx)
	if err == nil {
		return false, nil
	}
	if a.Cache.Loaded() {
		return true, err
	}
	warmed, werr := a.Cache.Warm(ctx)
	if werr != nil {
		a.Logger.Warn("failed to read saved snapshot", "err", werr)
	}
	return warmed, err
}

// SavedAt reports when the persisted snapshot was last written.
// ok is false when persistence is disabled or nothing was saved.
func (a *App) SavedAt(ctx context.Context) (time.Time, bool) {
	if a.db == nil {
		return time.Time{}, false
	}
	at, ok, err := a.db.SavedAt(ctx, a.Collection)
	if err != nil {
		a.Logger.Warn("failed to read snapshot time", "err", err)
		return time.Time{}, false
	}
	return at, ok
}

// Resync drops both the in-memory and persisted snapshot and reloads.
func (a *App) Resync(ctx context.Context) error {
	if err := a.Cache.Purge(ctx); err != nil {
		return err
	}
	_, err := a.Cache.Load(ctx)
	return err
}

// Logout clears the display name and forgets the cached snapshot.
func (a *App) Logout(ctx context.Context) error {
	if err := a.Session.Clear(); err != nil {
		return err
	}
	if err := a.Cache.Purge(ctx); err != nil {
		return fmt.Errorf("logged out but %w", err)
	}
	return nil
}

// Close waits for in-flight mutations and releases the snapshot database.
func (a *App) Close(ctx context.Context) error {
	err := a.Coordinator.Drain(ctx)
	if a.db != nil {
		if cerr := a.db.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
