// Package cache holds the last known snapshot of one remote item collection.
//
// The cache is the only owner of the snapshot. Readers get copies; writers go
// through Set, Update or Load, each of which publishes a whole new snapshot
// under the write lock so no reader ever observes a half-applied change.
package cache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"tasksync/internal/service"
)

// Persister keeps snapshots across process restarts.
type Persister interface {
	// Load returns the saved snapshot, or ok=false if none was saved.
	Load(ctx context.Context, coll service.Collection) (snap service.Snapshot, ok bool, err error)

	// Save replaces the saved snapshot.
	Save(ctx context.Context, coll service.Collection, snap service.Snapshot) error

	// Purge forgets the saved snapshot.
	Purge(ctx context.Context, coll service.Collection) error
}

// Options configures a Cache. The zero value is valid.
type Options struct {
	// Persister, if set, receives every published snapshot.
	Persister Persister

	// Logger receives persistence warnings and load diagnostics.
	Logger *slog.Logger
}

// Change describes one publish performed by Update.
type Change struct {
	Before  service.Snapshot
	After   service.Snapshot
	Version uint64
}

// Cache is an in-memory snapshot of one collection with
// de-duplicated loads from the remote store.
type Cache struct {
	coll    service.Collection
	store   service.Store
	persist Persister
	logger  *slog.Logger

	mu      sync.RWMutex
	snap    service.Snapshot
	loaded  bool
	version uint64

	group singleflight.Group

	// pubMu orders side effects of publishes (listeners, persistence)
	// so a slow publish never overwrites a newer one.
	pubMu        sync.Mutex
	publishedVer uint64

	subMu   sync.Mutex
	subs    map[int]func(service.Snapshot)
	nextSub int
}

// New creates an empty cache for coll backed by store.
func New(store service.Store, coll service.Collection, opts Options) *Cache {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Cache{
		coll:    coll,
		store:   store,
		persist: opts.Persister,
		logger:  logger.With("collection", string(coll)),
		snap:    service.Snapshot{},
		subs:    make(map[int]func(service.Snapshot)),
	}
}

// Collection returns the collection this cache holds.
func (c *Cache) Collection() service.Collection {
	return c.coll
}

// Get returns a copy of the current snapshot. Empty if never loaded.
func (c *Cache) Get() service.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.Clone()
}

// Loaded reports whether the snapshot came from the remote store
// (or was explicitly set) rather than being the initial empty value.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Version returns a counter that increases with every publish.
func (c *Cache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Set atomically replaces the snapshot.
func (c *Cache) Set(snap service.Snapshot) {
	snap = snap.Clone()
	c.mu.Lock()
	c.snap = snap
	c.loaded = true
	c.version++
	ver := c.version
	c.mu.Unlock()

	c.publish(snap, ver)
}

// Update runs fn on a private copy of the current snapshot and publishes
// the result as one indivisible step. fn also receives the current version.
// If fn returns an error nothing is published and the error is returned.
func (c *Cache) Update(fn func(cur service.Snapshot, version uint64) (service.Snapshot, error)) (Change, error) {
	c.mu.Lock()
	before := c.snap.Clone()
	next, err := fn(c.snap.Clone(), c.version)
	if err != nil {
		c.mu.Unlock()
		return Change{}, err
	}
	next = next.Clone()
	c.snap = next
	c.version++
	ver := c.version
	c.mu.Unlock()

	c.publish(next, ver)
	return Change{Before: before, After: next.Clone(), Version: ver}, nil
}

// Load fetches the collection from the remote store. Concurrent callers
// share a single in-flight request. On failure the previous snapshot is kept
// and the error wraps service.ErrRemoteUnavailable.
func (c *Cache) Load(ctx context.Context) (service.Snapshot, error) {
	ch := c.group.DoChan(string(c.coll), func() (any, error) {
		// The request is shared, so one caller giving up must not fail the others.
		items, err := c.store.List(context.WithoutCancel(ctx), c.coll)
		if err != nil {
			return nil, err
		}
		snap := dedupe(items, c.logger)
		c.Set(snap)
		return snap, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			c.logger.Warn("load failed", "err", res.Err)
			return nil, fmt.Errorf("%w: %v", service.ErrRemoteUnavailable, res.Err)
		}
		if res.Shared {
			c.logger.Debug("load shared with concurrent caller")
		}
		return res.Val.(service.Snapshot).Clone(), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", service.ErrRemoteUnavailable, ctx.Err())
	}
}

// Warm seeds an unloaded cache from the persister.
// Returns false when there is no persister or nothing was saved.
func (c *Cache) Warm(ctx context.Context) (bool, error) {
	if c.persist == nil {
		return false, nil
	}
	snap, ok, err := c.persist.Load(ctx, c.coll)
	if err != nil {
		return false, fmt.Errorf("failed to read saved snapshot: %w", err)
	}
	if !ok {
		return false, nil
	}

	c.mu.Lock()
	if c.loaded {
		c.mu.Unlock()
		return false, nil
	}
	c.snap = dedupe(dropPlaceholders(snap), c.logger)
	c.version++
	ver := c.version
	out := c.snap.Clone()
	c.mu.Unlock()

	c.publishedTo(ver)
	c.notify(out)
	return true, nil
}

// Purge empties the cache and forgets any saved snapshot.
func (c *Cache) Purge(ctx context.Context) error {
	c.mu.Lock()
	c.snap = service.Snapshot{}
	c.loaded = false
	c.version++
	ver := c.version
	c.mu.Unlock()

	c.publishedTo(ver)
	c.notify(service.Snapshot{})

	if c.persist == nil {
		return nil
	}
	if err := c.persist.Purge(ctx, c.coll); err != nil {
		return fmt.Errorf("failed to purge saved snapshot: %w", err)
	}
	return nil
}

// Subscribe registers fn to be called with every newly published snapshot.
// fn runs on the publishing goroutine; it must not block or write to the cache.
// The returned function removes the subscription.
func (c *Cache) Subscribe(fn func(service.Snapshot)) (cancel func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
		})
	}
}

func (c *Cache) publish(snap service.Snapshot, ver uint64) {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	if ver <= c.publishedVer {
		return
	}
	c.publishedVer = ver

	c.notify(snap)

	if c.persist == nil {
		return
	}
	if err := c.persist.Save(context.Background(), c.coll, snap); err != nil {
		c.logger.Warn("failed to save snapshot", "err", err)
	}
}

// publishedTo marks ver as published without persisting it.
func (c *Cache) publishedTo(ver uint64) {
	c.pubMu.Lock()
	if ver > c.publishedVer {
		c.publishedVer = ver
	}
	c.pubMu.Unlock()
}

func (c *Cache) notify(snap service.Snapshot) {
	c.subMu.Lock()
	fns := make([]func(service.Snapshot), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(snap.Clone())
	}
}

// dropPlaceholders removes unconfirmed creates left over from a previous run.
func dropPlaceholders(snap service.Snapshot) service.Snapshot {
	out := make(service.Snapshot, 0, len(snap))
	for _, it := range snap {
		if !service.IsPlaceholder(it.ID) {
			out = append(out, it)
		}
	}
	return out
}

// dedupe drops repeated ids, keeping the first occurrence.
func dedupe(items []service.Item, logger *slog.Logger) service.Snapshot {
	seen := make(map[string]struct{}, len(items))
	out := make(service.Snapshot, 0, len(items))
	for _, it := range items {
		if _, dup := seen[it.ID]; dup {
			logger.Warn("dropping duplicate id from store", "id", it.ID)
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out
}
