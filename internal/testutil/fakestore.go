// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"tasksync/internal/service"
)

// FakeStore is an in-memory implementation of service.Store for testing.
type FakeStore struct {
	mu     sync.Mutex
	items  map[service.Collection][]service.Item
	nextID int
	calls  map[string]int

	// Error injection for testing
	ListErr    error
	CreateErr  error
	ReplaceErr error
	DeleteErr  error

	// Gate, if set, is received from before each call returns,
	// letting a test hold requests in flight.
	Gate chan struct{}
}

// NewFakeStore creates an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		items: make(map[service.Collection][]service.Item),
		calls: make(map[string]int),
	}
}

// AddItem seeds an item without counting a call.
func (f *FakeStore) AddItem(coll service.Collection, item service.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[coll] = append(f.items[coll], item)
}

// Items returns a copy of the stored items.
func (f *FakeStore) Items(coll service.Collection) []service.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]service.Item(nil), f.items[coll]...)
}

// Calls returns how many times method ("List", "Create", "Replace", "Delete") was called.
func (f *FakeStore) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// TotalCalls returns the number of calls across all methods.
func (f *FakeStore) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *FakeStore) enter(ctx context.Context, method string) error {
	f.mu.Lock()
	f.calls[method]++
	gate := f.Gate
	f.mu.Unlock()

	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// List implements service.Store.
func (f *FakeStore) List(ctx context.Context, coll service.Collection) ([]service.Item, error) {
	if err := f.enter(ctx, "List"); err != nil {
		return nil, err
	}
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.Items(coll), nil
}

// Create implements service.Store. IDs are assigned as "srv-1", "srv-2", ...
func (f *FakeStore) Create(ctx context.Context, coll service.Collection, item service.Item) (service.Item, error) {
	if err := f.enter(ctx, "Create"); err != nil {
		return service.Item{}, err
	}
	if f.CreateErr != nil {
		return service.Item{}, f.CreateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	item.ID = fmt.Sprintf("srv-%d", f.nextID)
	f.items[coll] = append(f.items[coll], item)
	return item, nil
}

// Replace implements service.Store.
func (f *FakeStore) Replace(ctx context.Context, coll service.Collection, item service.Item) (service.Item, error) {
	if err := f.enter(ctx, "Replace"); err != nil {
		return service.Item{}, err
	}
	if f.ReplaceErr != nil {
		return service.Item{}, f.ReplaceErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, it := range f.items[coll] {
		if it.ID == item.ID {
			f.items[coll][i] = item
			return item, nil
		}
	}
	return service.Item{}, fmt.Errorf("%w: %s", service.ErrNotFound, item.ID)
}

// Delete implements service.Store.
func (f *FakeStore) Delete(ctx context.Context, coll service.Collection, id string) error {
	if err := f.enter(ctx, "Delete"); err != nil {
		return err
	}
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.items[coll]
	for i, it := range items {
		if it.ID == id {
			f.items[coll] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", service.ErrNotFound, id)
}
