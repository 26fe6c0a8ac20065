package mutation

import (
	"context"

	"tasksync/internal/service"
)

// Record is the bookkeeping for one dispatched mutation. It lives from the
// optimistic publish until the remote step resolves.
type Record struct {
	Kind     service.Op
	TargetID string           // item id, or the placeholder id for creates
	Before   service.Snapshot // snapshot captured just before the optimistic publish
	Version  uint64           // cache version of the optimistic publish
}

// Pending is the asynchronous outcome of a mutation whose optimistic step
// has already been applied.
type Pending struct {
	rec        Record
	optimistic service.Item

	done chan struct{}
	item service.Item
	err  error
}

func newPending(rec Record, optimistic service.Item) *Pending {
	return &Pending{rec: rec, optimistic: optimistic, done: make(chan struct{})}
}

func (p *Pending) resolve(item service.Item, err error) {
	p.item, p.err = item, err
	close(p.done)
}

// Kind returns the mutation kind.
func (p *Pending) Kind() service.Op { return p.rec.Kind }

// TargetID returns the id the mutation touches (a placeholder id for creates).
func (p *Pending) TargetID() string { return p.rec.TargetID }

// Optimistic returns the item as it was published before remote confirmation.
// For deletes it is the removed item.
func (p *Pending) Optimistic() service.Item { return p.optimistic }

// Done is closed once the remote step has resolved.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Result returns the outcome. Only meaningful after Done is closed.
// On success the item is the confirmed server state (the removed item for deletes).
// On failure the error is a *service.SyncError.
func (p *Pending) Result() (service.Item, error) {
	return p.item, p.err
}

// Wait blocks until the remote step resolves or ctx is done.
// Giving up on the wait does not cancel the mutation.
func (p *Pending) Wait(ctx context.Context) (service.Item, error) {
	select {
	case <-p.done:
		return p.item, p.err
	case <-ctx.Done():
		return service.Item{}, ctx.Err()
	}
}
