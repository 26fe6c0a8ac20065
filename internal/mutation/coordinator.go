// Package mutation applies writes to a cached collection optimistically and
// reconciles them with the remote store.
//
// Remote steps outlive the caller's context: once dispatched, a request runs
// until the transport timeout and its outcome is always reconciled. Callers
// that stop waiting use Pending.Wait with their own context.
//
// Every mutation runs the same protocol:
//
//  1. validate and publish the expected result to the cache (synchronous)
//  2. send the remote request (asynchronous)
//  3. on success reconcile the entry with the server response;
//     on failure roll the cache back and report a *service.SyncError
//
// The rollback unit is the whole snapshot captured before step 1. If another
// mutation has published in the meantime, only this mutation's own entry is
// reverted so the other mutation's optimistic state survives.
package mutation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tasksync/internal/cache"
	"tasksync/internal/service"
)

// Snapshots is the cache capability the coordinator needs.
type Snapshots interface {
	Collection() service.Collection
	Get() service.Snapshot
	Update(fn func(cur service.Snapshot, version uint64) (service.Snapshot, error)) (cache.Change, error)
}

// Options configures a Coordinator. The zero value is valid.
type Options struct {
	Logger *slog.Logger

	// Now stamps CreatedAt on new items. Defaults to time.Now.
	Now func() time.Time

	// NewID generates placeholder ids. Defaults to NewPlaceholderID.
	// Generated ids must satisfy service.IsPlaceholder.
	NewID func() string
}

// Coordinator is the only writer of a collection's cache.
type Coordinator struct {
	snaps  Snapshots
	store  service.Store
	coll   service.Collection
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	mu       sync.Mutex
	inflight map[*Pending]struct{}
	wg       sync.WaitGroup
}

// New creates a coordinator writing to snaps and store.
func New(snaps Snapshots, store service.Store, opts Options) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = NewPlaceholderID
	}
	coll := snaps.Collection()
	return &Coordinator{
		snaps:    snaps,
		store:    store,
		coll:     coll,
		logger:   logger.With("collection", string(coll)),
		now:      now,
		newID:    newID,
		inflight: make(map[*Pending]struct{}),
	}
}

// NewPlaceholderID returns a fresh id from the reserved placeholder space.
func NewPlaceholderID() string {
	return service.PlaceholderPrefix + uuid.NewString()
}

// InFlight returns the number of mutations awaiting their remote step.
func (c *Coordinator) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

// Drain waits until every dispatched mutation has resolved or ctx is done.
func (c *Coordinator) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Create validates d, inserts a placeholder item at the head of the cache
// and posts d to the remote store. On success the placeholder is replaced by
// the server item; on failure it is removed and the SyncError carries d.
func (c *Coordinator) Create(ctx context.Context, d service.Draft) (*Pending, error) {
	if d.Empty() {
		return nil, &service.ValidationError{Msg: "title, description or priority required"}
	}
	if d.Priority == "" {
		d.Priority = service.PriorityDefault
	}
	if !d.Priority.Valid() {
		return nil, &service.ValidationError{Field: "priority", Msg: fmt.Sprintf("unknown value %q", d.Priority)}
	}

	placeholder := service.Item{
		ID:          c.newID(),
		Title:       d.Title,
		Description: d.Description,
		Priority:    d.Priority,
		Author:      d.Author,
		Completed:   false,
		CreatedAt:   service.FormatTime(c.now()),
		Capability:  d.Capability,
		Role:        d.Role,
		Benefit:     d.Benefit,
	}

	change, err := c.snaps.Update(func(cur service.Snapshot, _ uint64) (service.Snapshot, error) {
		return append(service.Snapshot{placeholder}, cur...), nil
	})
	if err != nil {
		return nil, err
	}

	rec := Record{Kind: service.OpCreate, TargetID: placeholder.ID, Before: change.Before, Version: change.Version}
	p := c.start(rec, placeholder)

	ctx = context.WithoutCancel(ctx)
	go func() {
		body := placeholder
		body.ID = ""
		created, err := c.store.Create(ctx, c.coll, body)
		if err != nil {
			c.rollback(rec, func(cur service.Snapshot) service.Snapshot {
				return remove(cur, placeholder.ID)
			})
			draft := d
			c.finish(p, service.Item{}, &service.SyncError{Op: service.OpCreate, Draft: &draft, Err: err})
			return
		}

		c.reconcile(rec, func(cur service.Snapshot) service.Snapshot {
			if cur.IndexOf(created.ID) >= 0 {
				// A reload already brought the server item in.
				return remove(cur, placeholder.ID)
			}
			if i := cur.IndexOf(placeholder.ID); i >= 0 {
				cur[i] = created
				return cur
			}
			return append(service.Snapshot{created}, cur...)
		})
		c.finish(p, created, nil)
	}()

	return p, nil
}

// Update replaces the cached entry for item.ID in place and sends the full
// item to the remote store. Author and CreatedAt are kept from the cached
// entry. On failure the previous entry is restored.
func (c *Coordinator) Update(ctx context.Context, item service.Item) (*Pending, error) {
	if item.Priority == "" {
		item.Priority = service.PriorityDefault
	}
	if !item.Priority.Valid() {
		return nil, &service.ValidationError{Field: "priority", Msg: fmt.Sprintf("unknown value %q", item.Priority)}
	}

	var prev service.Item
	change, err := c.snaps.Update(func(cur service.Snapshot, _ uint64) (service.Snapshot, error) {
		i, err := c.lookup(cur, item.ID)
		if err != nil {
			return nil, err
		}
		prev = cur[i]
		item.Author = prev.Author
		item.CreatedAt = prev.CreatedAt
		cur[i] = item
		return cur, nil
	})
	if err != nil {
		return nil, err
	}

	rec := Record{Kind: service.OpUpdate, TargetID: item.ID, Before: change.Before, Version: change.Version}
	return c.replace(ctx, rec, item, prev, func(entry, stored service.Item) service.Item {
		return stored
	}), nil
}

// Toggle inverts the completed flag of the cached entry for item.ID.
// The cached entry, not the passed item, is the base of the toggle, so a
// stale caller copy cannot resurrect old field values. On success the
// server's completed value is kept; on failure the previous entry is restored.
func (c *Coordinator) Toggle(ctx context.Context, item service.Item) (*Pending, error) {
	var prev, next service.Item
	change, err := c.snaps.Update(func(cur service.Snapshot, _ uint64) (service.Snapshot, error) {
		i, err := c.lookup(cur, item.ID)
		if err != nil {
			return nil, err
		}
		prev = cur[i]
		next = prev
		next.Completed = !prev.Completed
		cur[i] = next
		return cur, nil
	})
	if err != nil {
		return nil, err
	}

	rec := Record{Kind: service.OpToggle, TargetID: item.ID, Before: change.Before, Version: change.Version}
	return c.replace(ctx, rec, next, prev, func(entry, stored service.Item) service.Item {
		entry.Completed = stored.Completed
		return entry
	}), nil
}

// Delete removes the cached entry for id and deletes it remotely.
// On failure the entry is put back after the entry that preceded it,
// or at its original index if that entry is gone too.
func (c *Coordinator) Delete(ctx context.Context, id string) (*Pending, error) {
	var removed service.Item
	var at int
	var prevID string // entry just before the removed one, if any
	change, err := c.snaps.Update(func(cur service.Snapshot, _ uint64) (service.Snapshot, error) {
		i, err := c.lookup(cur, id)
		if err != nil {
			return nil, err
		}
		removed, at = cur[i], i
		if i > 0 {
			prevID = cur[i-1].ID
		}
		return append(cur[:i], cur[i+1:]...), nil
	})
	if err != nil {
		return nil, err
	}

	rec := Record{Kind: service.OpDelete, TargetID: id, Before: change.Before, Version: change.Version}
	p := c.start(rec, removed)

	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := c.store.Delete(ctx, c.coll, id); err != nil {
			c.rollback(rec, func(cur service.Snapshot) service.Snapshot {
				if cur.IndexOf(id) >= 0 {
					return cur
				}
				pos := min(at, len(cur))
				if at == 0 {
					pos = 0
				} else if j := cur.IndexOf(prevID); j >= 0 {
					pos = j + 1
				}
				return insertAt(cur, pos, removed)
			})
			c.finish(p, service.Item{}, &service.SyncError{Op: service.OpDelete, ID: id, Err: err})
			return
		}

		c.reconcile(rec, func(cur service.Snapshot) service.Snapshot {
			// A reload racing the delete may have brought the entry back.
			return remove(cur, id)
		})
		c.finish(p, removed, nil)
	}()

	return p, nil
}

// replace runs the remote half shared by Update and Toggle.
// merge combines the current cached entry with the stored server item.
func (c *Coordinator) replace(ctx context.Context, rec Record, next, prev service.Item, merge func(entry, stored service.Item) service.Item) *Pending {
	p := c.start(rec, next)

	ctx = context.WithoutCancel(ctx)
	go func() {
		stored, err := c.store.Replace(ctx, c.coll, next)
		if err != nil {
			c.rollback(rec, func(cur service.Snapshot) service.Snapshot {
				if i := cur.IndexOf(prev.ID); i >= 0 {
					cur[i] = prev
				}
				return cur
			})
			c.finish(p, service.Item{}, &service.SyncError{Op: rec.Kind, ID: rec.TargetID, Err: err})
			return
		}

		var confirmed service.Item
		c.reconcile(rec, func(cur service.Snapshot) service.Snapshot {
			i := cur.IndexOf(prev.ID)
			if i < 0 {
				// Deleted locally while the request was in flight.
				confirmed = merge(next, stored)
				return cur
			}
			cur[i] = merge(cur[i], stored)
			confirmed = cur[i]
			return cur
		})
		c.finish(p, confirmed, nil)
	}()

	return p
}

// lookup finds id in cur. Placeholder ids are unknown to the server and
// therefore not addressable until their create is confirmed.
func (c *Coordinator) lookup(cur service.Snapshot, id string) (int, error) {
	if strings.TrimSpace(id) == "" {
		return -1, &service.ValidationError{Field: "id", Msg: "required"}
	}
	if service.IsPlaceholder(id) {
		return -1, fmt.Errorf("%w: %s is not confirmed yet", service.ErrNotFound, id)
	}
	i := cur.IndexOf(id)
	if i < 0 {
		return -1, fmt.Errorf("%w: %s %s", service.ErrNotFound, c.coll.Singular(), id)
	}
	return i, nil
}

func (c *Coordinator) start(rec Record, optimistic service.Item) *Pending {
	p := newPending(rec, optimistic)
	c.mu.Lock()
	c.inflight[p] = struct{}{}
	c.mu.Unlock()
	c.wg.Add(1)
	c.logger.Debug("optimistic applied", "op", rec.Kind, "id", rec.TargetID, "version", rec.Version)
	return p
}

func (c *Coordinator) finish(p *Pending, item service.Item, err error) {
	c.mu.Lock()
	delete(c.inflight, p)
	c.mu.Unlock()
	p.resolve(item, err)
	c.wg.Done()
}

// reconcile publishes the confirmed state for rec's entry.
func (c *Coordinator) reconcile(rec Record, fn func(cur service.Snapshot) service.Snapshot) {
	_, _ = c.snaps.Update(func(cur service.Snapshot, _ uint64) (service.Snapshot, error) {
		return fn(cur), nil
	})
	c.logger.Debug("confirmed", "op", rec.Kind, "id", rec.TargetID)
}

// rollback restores rec.Before when nothing else has been published since
// the optimistic step, and otherwise applies inverse to the current snapshot.
func (c *Coordinator) rollback(rec Record, inverse func(cur service.Snapshot) service.Snapshot) {
	exact := false
	_, _ = c.snaps.Update(func(cur service.Snapshot, version uint64) (service.Snapshot, error) {
		if version == rec.Version {
			exact = true
			return rec.Before.Clone(), nil
		}
		return inverse(cur), nil
	})
	c.logger.Warn("rolled back", "op", rec.Kind, "id", rec.TargetID, "exact", exact)
}

func remove(s service.Snapshot, id string) service.Snapshot {
	if i := s.IndexOf(id); i >= 0 {
		return append(s[:i], s[i+1:]...)
	}
	return s
}

func insertAt(s service.Snapshot, i int, item service.Item) service.Snapshot {
	out := make(service.Snapshot, 0, len(s)+1)
	out = append(out, s[:i]...)
	out = append(out, item)
	return append(out, s[i:]...)
}
