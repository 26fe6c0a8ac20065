package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasksync/internal/app"
	"tasksync/internal/config"
	"tasksync/internal/service"
	"tasksync/internal/session"
	"tasksync/internal/testutil"
	"tasksync/internal/view"
)

func newTestApp(t *testing.T, store *testutil.FakeStore, user string) *app.App {
	t.Helper()
	cfg := &config.Config{Dir: t.TempDir(), Settings: config.DefaultSettings()}
	cfg.Settings.CacheDB = ""
	a, err := app.New(context.Background(), cfg, app.Options{Store: store, Session: session.NewMemory(user)})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })
	return a
}

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var enter = tea.KeyMsg{Type: tea.KeyEnter}

// send feeds msg to m and returns the updated model.
func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

// settle runs a mutation command and feeds its result back.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	_, ok := msg.(resultMsg)
	require.True(t, ok, "expected a mutation result, got %T", msg)
	m, _ = send(t, m, msg)
	return m
}

func loaded(t *testing.T, store *testutil.FakeStore, user string) (Model, *app.App) {
	t.Helper()
	a := newTestApp(t, store, user)
	_, err := a.Refresh(context.Background())
	require.NoError(t, err)
	return New(context.Background(), a, nil), a
}

func TestNew_AsksForNameWhenMissing(t *testing.T) {
	a := newTestApp(t, testutil.NewFakeStore(), "")
	m := New(context.Background(), a, nil)
	assert.Equal(t, naming, m.mode)

	m, _ = send(t, m, keys("bob"))
	m, _ = send(t, m, enter)

	assert.Equal(t, browsing, m.mode)
	assert.Equal(t, "bob", a.User())
}

func TestNaming_RejectsBlankName(t *testing.T) {
	a := newTestApp(t, testutil.NewFakeStore(), "")
	m := New(context.Background(), a, nil)

	m, _ = send(t, m, keys("  "))
	m, _ = send(t, m, enter)

	assert.Equal(t, naming, m.mode)
	assert.True(t, m.statusErr)
	assert.Equal(t, "Name cannot be empty", m.status)
}

func TestAdd_ShowsPlaceholderThenServerItem(t *testing.T) {
	store := testutil.NewFakeStore()
	m, a := loaded(t, store, "alice")

	m, _ = send(t, m, keys("a"))
	require.Equal(t, adding, m.mode)
	m, _ = send(t, m, keys("Buy milk"))
	m, cmd := send(t, m, enter)

	// The row is visible before the remote step finishes.
	it, ok := m.selected()
	require.True(t, ok)
	assert.Equal(t, "Buy milk", it.Title)
	assert.Equal(t, "alice", it.Author)

	m = settle(t, m, cmd)

	it, ok = m.selected()
	require.True(t, ok)
	assert.Equal(t, "srv-1", it.ID)
	assert.Empty(t, m.status)
	assert.Len(t, a.Cache.Get(), 1)
}

func TestAdd_FailureOffersRetryWithDraft(t *testing.T) {
	store := testutil.NewFakeStore()
	store.CreateErr = errors.New("boom")
	m, a := loaded(t, store, "alice")

	m, _ = send(t, m, keys("a"))
	m, _ = send(t, m, keys("Buy milk"))
	m, cmd := send(t, m, enter)
	m = settle(t, m, cmd)

	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "press a to retry")
	assert.Empty(t, a.Cache.Get())

	m, _ = send(t, m, keys("a"))
	assert.Equal(t, "Buy milk", m.ti.Value())

	store.CreateErr = nil
	m, cmd = send(t, m, enter)
	m = settle(t, m, cmd)

	assert.Nil(t, m.lastDraft)
	assert.Len(t, store.Items(service.Tasks), 1)
}

func TestToggle_SelectedItem(t *testing.T) {
	store := testutil.NewFakeStore()
	store.AddItem(service.Tasks, service.Item{ID: "1", Title: "a", Priority: service.PriorityDefault})
	m, a := loaded(t, store, "alice")

	m, cmd := send(t, m, keys("x"))
	got, _ := a.Cache.Get().Find("1")
	assert.True(t, got.Completed, "toggle should show before the remote step")

	m = settle(t, m, cmd)
	assert.False(t, m.statusErr)
	assert.True(t, store.Items(service.Tasks)[0].Completed)
}

func TestToggle_FailureRollsBack(t *testing.T) {
	store := testutil.NewFakeStore()
	store.AddItem(service.Tasks, service.Item{ID: "1", Title: "a", Priority: service.PriorityDefault})
	store.ReplaceErr = errors.New("boom")
	m, a := loaded(t, store, "alice")

	m, cmd := send(t, m, keys("x"))
	m = settle(t, m, cmd)

	got, _ := a.Cache.Get().Find("1")
	assert.False(t, got.Completed)
	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "boom")
}

func TestPriority_CyclesSelectedItem(t *testing.T) {
	store := testutil.NewFakeStore()
	store.AddItem(service.Tasks, service.Item{ID: "1", Title: "a", Priority: service.PriorityDefault})
	m, a := loaded(t, store, "alice")

	m, cmd := send(t, m, keys("p"))
	got, _ := a.Cache.Get().Find("1")
	assert.Equal(t, service.PriorityLow, got.Priority, "priority should show before the remote step")

	m = settle(t, m, cmd)
	m, cmd = send(t, m, keys("p"))
	m = settle(t, m, cmd)

	assert.False(t, m.statusErr)
	assert.Equal(t, service.PriorityMedium, store.Items(service.Tasks)[0].Priority)
	got, _ = a.Cache.Get().Find("1")
	assert.Equal(t, service.PriorityMedium, got.Priority)
}

func TestPriority_FailureRollsBack(t *testing.T) {
	store := testutil.NewFakeStore()
	store.AddItem(service.Tasks, service.Item{ID: "1", Title: "a", Priority: service.PriorityHigh})
	store.ReplaceErr = errors.New("boom")
	m, a := loaded(t, store, "alice")

	m, cmd := send(t, m, keys("p"))
	m = settle(t, m, cmd)

	got, _ := a.Cache.Get().Find("1")
	assert.Equal(t, service.PriorityHigh, got.Priority)
	assert.True(t, m.statusErr)
}

func TestEdit_RejectsEmptyTitle(t *testing.T) {
	store := testutil.NewFakeStore()
	store.AddItem(service.Tasks, service.Item{ID: "1", Title: "a", Priority: service.PriorityDefault})
	m, _ := loaded(t, store, "alice")

	m, _ = send(t, m, keys("e"))
	require.Equal(t, editing, m.mode)
	m.ti.SetValue("")
	m, cmd := send(t, m, enter)

	assert.Nil(t, cmd)
	assert.Equal(t, editing, m.mode)
	assert.Equal(t, "Title cannot be empty", m.status)
	assert.Zero(t, store.Calls("Replace"))
}

func TestDelete_SelectedItem(t *testing.T) {
	store := testutil.NewFakeStore()
	store.AddItem(service.Tasks, service.Item{ID: "1", Title: "a", Priority: service.PriorityDefault})
	m, a := loaded(t, store, "alice")

	m, cmd := send(t, m, keys("d"))
	assert.Empty(t, a.Cache.Get())

	settle(t, m, cmd)
	assert.Empty(t, store.Items(service.Tasks))
}

func TestFilter_Cycles(t *testing.T) {
	store := testutil.NewFakeStore()
	store.AddItem(service.Tasks, service.Item{ID: "1", Title: "mine", Author: "alice"})
	store.AddItem(service.Tasks, service.Item{ID: "2", Title: "theirs", Author: "bob"})
	m, _ := loaded(t, store, "alice")
	assert.Len(t, m.list.Items(), 2)

	m, _ = send(t, m, keys("f"))

	assert.Equal(t, view.Mine, m.filter)
	assert.Len(t, m.list.Items(), 1)
}

func TestChangedMsg_Refreshes(t *testing.T) {
	store := testutil.NewFakeStore()
	m, a := loaded(t, store, "alice")
	assert.Empty(t, m.list.Items())

	a.Cache.Set(service.Snapshot{{ID: "1", Title: "from elsewhere"}})
	m, _ = send(t, m, changedMsg{})

	assert.Len(t, m.list.Items(), 1)
}

func TestLogout_ReturnsToNaming(t *testing.T) {
	store := testutil.NewFakeStore()
	store.AddItem(service.Tasks, service.Item{ID: "1", Title: "a"})
	m, a := loaded(t, store, "alice")

	m, _ = send(t, m, keys("L"))

	assert.Equal(t, naming, m.mode)
	assert.Empty(t, a.User())
	assert.Empty(t, m.list.Items())
}
