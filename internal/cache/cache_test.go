package cache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasksync/internal/cache"
	"tasksync/internal/service"
	"tasksync/internal/testutil"
)

func item(id, title string) service.Item {
	return service.Item{ID: id, Title: title, Priority: service.PriorityDefault}
}

// memPersister is an in-memory cache.Persister.
type memPersister struct {
	mu    sync.Mutex
	snaps map[service.Collection]service.Snapshot
	saves int
	err   error
}

func newMemPersister() *memPersister {
	return &memPersister{snaps: make(map[service.Collection]service.Snapshot)}
}

func (p *memPersister) Load(ctx context.Context, coll service.Collection) (service.Snapshot, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.snaps[coll]
	return s.Clone(), ok, nil
}

func (p *memPersister) Save(ctx context.Context, coll service.Collection, snap service.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.saves++
	p.snaps[coll] = snap.Clone()
	return nil
}

func (p *memPersister) Purge(ctx context.Context, coll service.Collection) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.snaps, coll)
	return nil
}

func TestGet_EmptyBeforeLoad(t *testing.T) {
	c := cache.New(testutil.NewFakeStore(), service.Tasks, cache.Options{})

	snap := c.Get()
	assert.NotNil(t, snap)
	assert.Empty(t, snap)
	assert.False(t, c.Loaded())
}

func TestGet_ReturnsCopy(t *testing.T) {
	c := cache.New(testutil.NewFakeStore(), service.Tasks, cache.Options{})
	c.Set(service.Snapshot{item("1", "a")})

	snap := c.Get()
	snap[0].Title = "changed"

	assert.Equal(t, "a", c.Get()[0].Title)
}

func TestLoad_ReplacesSnapshot(t *testing.T) {
	store := testutil.NewFakeStore()
	store.AddItem(service.Tasks, item("1", "a"))
	store.AddItem(service.Tasks, item("2", "b"))
	c := cache.New(store, service.Tasks, cache.Options{})

	snap, err := c.Load(context.Background())
	require.NoError(t, err)

	assert.Len(t, snap, 2)
	assert.True(t, c.Loaded())
	assert.True(t, snap.Equal(c.Get()))
}

func TestLoad_FailureKeepsSnapshot(t *testing.T) {
	store := testutil.NewFakeStore()
	c := cache.New(store, service.Tasks, cache.Options{})
	c.Set(service.Snapshot{item("1", "a")})
	before := c.Version()

	store.ListErr = errors.New("connection refused")
	_, err := c.Load(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrRemoteUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, service.Snapshot{item("1", "a")}, c.Get())
	assert.Equal(t, before, c.Version())
}

func TestLoad_DropsDuplicateIDs(t *testing.T) {
	store := testutil.NewFakeStore()
	store.AddItem(service.Tasks, item("1", "first"))
	store.AddItem(service.Tasks, item("1", "second"))
	c := cache.New(store, service.Tasks, cache.Options{})

	snap, err := c.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, snap, 1)
	assert.Equal(t, "first", snap[0].Title)
}

func TestLoad_ConcurrentCallersShareOneRequest(t *testing.T) {
	store := testutil.NewFakeStore()
	store.AddItem(service.Tasks, item("1", "a"))
	store.Gate = make(chan struct{})
	c := cache.New(store, service.Tasks, cache.Options{})

	const callers = 5
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Load(context.Background())
			errs <- err
		}()
	}

	require.Eventually(t, func() bool { return store.Calls("List") == 1 }, time.Second, 5*time.Millisecond)
	// Give the other callers time to join the in-flight request.
	time.Sleep(20 * time.Millisecond)
	close(store.Gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, store.Calls("List"))
}

func TestLoad_CallerCancelReturnsEarly(t *testing.T) {
	store := testutil.NewFakeStore()
	store.Gate = make(chan struct{})
	defer close(store.Gate)
	c := cache.New(store, service.Tasks, cache.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Load(ctx)
	assert.ErrorIs(t, err, service.ErrRemoteUnavailable)
}

func TestUpdate_ErrorPublishesNothing(t *testing.T) {
	c := cache.New(testutil.NewFakeStore(), service.Tasks, cache.Options{})
	c.Set(service.Snapshot{item("1", "a")})
	before := c.Version()

	var notified int
	cancel := c.Subscribe(func(service.Snapshot) { notified++ })
	defer cancel()

	_, err := c.Update(func(cur service.Snapshot, _ uint64) (service.Snapshot, error) {
		return nil, service.ErrNotFound
	})

	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.Equal(t, before, c.Version())
	assert.Zero(t, notified)
}

func TestUpdate_ReportsBeforeAfterAndVersion(t *testing.T) {
	c := cache.New(testutil.NewFakeStore(), service.Tasks, cache.Options{})
	c.Set(service.Snapshot{item("1", "a")})

	var seen uint64
	change, err := c.Update(func(cur service.Snapshot, ver uint64) (service.Snapshot, error) {
		seen = ver
		return append(cur, item("2", "b")), nil
	})
	require.NoError(t, err)

	assert.Equal(t, seen+1, change.Version)
	assert.Equal(t, service.Snapshot{item("1", "a")}, change.Before)
	assert.Equal(t, service.Snapshot{item("1", "a"), item("2", "b")}, change.After)
	assert.Equal(t, c.Version(), change.Version)
}

func TestSubscribe_NotifiedOnPublishUntilCancelled(t *testing.T) {
	c := cache.New(testutil.NewFakeStore(), service.Tasks, cache.Options{})

	var got []int
	cancel := c.Subscribe(func(s service.Snapshot) { got = append(got, len(s)) })

	c.Set(service.Snapshot{item("1", "a")})
	c.Set(service.Snapshot{item("1", "a"), item("2", "b")})
	cancel()
	c.Set(service.Snapshot{})

	assert.Equal(t, []int{1, 2}, got)
}

func TestPersister_SavedOnPublish(t *testing.T) {
	p := newMemPersister()
	c := cache.New(testutil.NewFakeStore(), service.Tasks, cache.Options{Persister: p})

	c.Set(service.Snapshot{item("1", "a")})

	saved, ok, err := p.Load(context.Background(), service.Tasks)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, service.Snapshot{item("1", "a")}, saved)
}

func TestPersister_SaveFailureDoesNotFailPublish(t *testing.T) {
	p := newMemPersister()
	p.err = errors.New("disk full")
	c := cache.New(testutil.NewFakeStore(), service.Tasks, cache.Options{Persister: p})

	c.Set(service.Snapshot{item("1", "a")})

	assert.Len(t, c.Get(), 1)
}

func TestWarm_SeedsFromPersisterWithoutPlaceholders(t *testing.T) {
	p := newMemPersister()
	p.snaps[service.Tasks] = service.Snapshot{
		item(service.PlaceholderPrefix+"x", "unconfirmed"),
		item("1", "a"),
	}
	c := cache.New(testutil.NewFakeStore(), service.Tasks, cache.Options{Persister: p})

	warmed, err := c.Warm(context.Background())
	require.NoError(t, err)

	assert.True(t, warmed)
	assert.False(t, c.Loaded())
	assert.Equal(t, service.Snapshot{item("1", "a")}, c.Get())
}

func TestWarm_NoopAfterLoad(t *testing.T) {
	p := newMemPersister()
	p.snaps[service.Tasks] = service.Snapshot{item("old", "stale")}
	store := testutil.NewFakeStore()
	store.AddItem(service.Tasks, item("1", "fresh"))
	c := cache.New(store, service.Tasks, cache.Options{Persister: p})

	_, err := c.Load(context.Background())
	require.NoError(t, err)
	warmed, err := c.Warm(context.Background())
	require.NoError(t, err)

	assert.False(t, warmed)
	assert.Equal(t, "fresh", c.Get()[0].Title)
}

func TestPurge_ClearsMemoryAndPersister(t *testing.T) {
	p := newMemPersister()
	c := cache.New(testutil.NewFakeStore(), service.Tasks, cache.Options{Persister: p})
	c.Set(service.Snapshot{item("1", "a")})

	require.NoError(t, c.Purge(context.Background()))

	assert.Empty(t, c.Get())
	assert.False(t, c.Loaded())
	_, ok, _ := p.Load(context.Background(), service.Tasks)
	assert.False(t, ok)
}
