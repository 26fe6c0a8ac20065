// Package tui is the interactive terminal front end. It renders the filtered
// view of the cache and dispatches every change through the coordinator, so
// optimistic state shows up immediately and failed requests roll back on screen.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"tasksync/internal/app"
	"tasksync/internal/mutation"
	"tasksync/internal/service"
	"tasksync/internal/view"
)

type mode int

const (
	browsing mode = iota
	naming
	adding
	editing
)

// changedMsg reports that the cache published a new snapshot.
type changedMsg struct{}

// loadedMsg carries the outcome of a load or resync.
type loadedMsg struct {
	stale bool
	err   error
}

// resultMsg carries the outcome of a mutation's remote step.
type resultMsg struct {
	op   service.Op
	item service.Item
	err  error
}

// listItem adapts service.Item to bubbles/list.Item.
type listItem struct {
	item service.Item
}

func (i listItem) FilterValue() string { return i.item.Title }

type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, _ := item.(listItem)

	title := it.item.Title
	if strings.TrimSpace(title) == "" {
		title = "(untitled)"
	}

	box := mutedStyle.Render(boxUnchecked)
	text := title
	if it.item.Completed {
		box = successStyle.Render(boxChecked)
		text = doneStyle.Render(title)
	}

	line := fmt.Sprintf("%s %s", box, text)
	if it.item.Author != "" {
		line += " " + mutedStyle.Render("("+it.item.Author+")")
	}
	if p := it.item.Priority; p != "" && p != service.PriorityDefault {
		line += " " + accentStyle.Render("!"+string(p))
	}
	if service.IsPlaceholder(it.item.ID) {
		line += " " + pendingStyle.Render("…")
	}

	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprintln(w, prefix+line)
}

var (
	addKey      = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	editKey     = key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit"))
	toggleKey   = key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "toggle"))
	deleteKey   = key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete"))
	priorityKey = key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "priority"))
	filterKey   = key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter"))
	resyncKey   = key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "resync"))
	logoutKey   = key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "logout"))
	quitKey     = key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit"))
)

// Model is the Bubble Tea model for the item list.
type Model struct {
	ctx     context.Context
	app     *app.App
	changes <-chan struct{}

	list   list.Model
	ti     textinput.Model
	mode   mode
	filter view.Filter

	editID    string
	lastDraft *service.Draft // last create that failed, offered again on add

	status    string
	statusErr bool
	loading   bool

	width, height int
}

// New creates a model for a. changes delivers a value whenever the cache
// publishes; it may be nil when nothing else writes the cache.
func New(ctx context.Context, a *app.App, changes <-chan struct{}) Model {
	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowHelp(true)
	l.SetShowStatusBar(true)
	l.SetShowPagination(true)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	l.Styles.Title = titleStyle
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.SetStatusBarItemName(a.Collection.Singular(), string(a.Collection))
	extra := func() []key.Binding {
		return []key.Binding{addKey, editKey, toggleKey, priorityKey, deleteKey, filterKey, resyncKey, logoutKey, quitKey}
	}
	l.AdditionalShortHelpKeys = extra
	l.AdditionalFullHelpKeys = extra

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 200

	m := Model{
		ctx:     ctx,
		app:     a,
		changes: changes,
		list:    l,
		ti:      ti,
		filter:  view.All,
		width:   80,
		height:  24,
	}
	if a.User() == "" {
		m = m.startInput(naming, "", "Your name...")
	}
	m = m.refresh()
	return m
}

// Init starts the initial load and the cache watch.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(false), m.waitForChange(), textinput.Blink)
}

func (m Model) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	ch := m.changes
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}

func (m Model) loadCmd(resync bool) tea.Cmd {
	ctx, a := m.ctx, m.app
	return func() tea.Msg {
		if resync {
			return loadedMsg{err: a.Resync(ctx)}
		}
		stale, err := a.Refresh(ctx)
		return loadedMsg{stale: stale, err: err}
	}
}

func (m Model) awaitCmd(p *mutation.Pending) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		item, err := p.Wait(ctx)
		return resultMsg{op: p.Kind(), item: item, err: err}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case changedMsg:
		m = m.refresh()
		return m, m.waitForChange()

	case loadedMsg:
		m.loading = false
		switch {
		case msg.err != nil && msg.stale:
			m = m.setStatus("offline, showing saved items", true)
		case msg.err != nil:
			m = m.setStatus(msg.err.Error(), true)
		default:
			m = m.setStatus("", false)
		}
		return m.refresh(), nil

	case resultMsg:
		return m.handleResult(msg), nil

	case tea.KeyMsg:
		if m.mode != browsing {
			return m.updateInput(msg)
		}
		return m.updateBrowse(msg)
	}

	if m.mode != browsing {
		var cmd tea.Cmd
		m.ti, cmd = m.ti.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, quitKey):
		return m, tea.Quit

	case key.Matches(msg, addKey):
		value := ""
		if m.lastDraft != nil {
			value = m.lastDraft.Title
		}
		return m.startInput(adding, value, "New "+m.app.Collection.Singular()+" title..."), textinput.Blink

	case key.Matches(msg, editKey):
		it, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.editID = it.ID
		return m.startInput(editing, it.Title, "Edit title..."), textinput.Blink

	case key.Matches(msg, toggleKey):
		it, ok := m.selected()
		if !ok {
			return m, nil
		}
		p, err := m.app.Coordinator.Toggle(m.ctx, it)
		return m.dispatched(p, err)

	case key.Matches(msg, priorityKey):
		it, ok := m.selected()
		if !ok {
			return m, nil
		}
		it.Priority = it.Priority.Next()
		p, err := m.app.Coordinator.Update(m.ctx, it)
		return m.dispatched(p, err)

	case key.Matches(msg, deleteKey):
		it, ok := m.selected()
		if !ok {
			return m, nil
		}
		p, err := m.app.Coordinator.Delete(m.ctx, it.ID)
		return m.dispatched(p, err)

	case key.Matches(msg, filterKey):
		m.filter = m.filter.Next()
		return m.refresh(), nil

	case key.Matches(msg, resyncKey):
		m.loading = true
		m = m.setStatus("resyncing...", false)
		return m, m.loadCmd(true)

	case key.Matches(msg, logoutKey):
		if err := m.app.Logout(m.ctx); err != nil {
			return m.setStatus(err.Error(), true), nil
		}
		m.lastDraft = nil
		m = m.setStatus("logged out", false)
		return m.startInput(naming, "", "Your name...").refresh(), textinput.Blink
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		if m.mode == naming {
			return m, tea.Quit
		}
		return m.stopInput(), nil

	case "enter":
		value := m.ti.Value()
		switch m.mode {
		case naming:
			if err := m.app.Session.SetName(value); err != nil {
				if errors.Is(err, service.ErrValidation) {
					return m.setStatus("Name cannot be empty", true), nil
				}
				return m.setStatus(err.Error(), true), nil
			}
			m = m.stopInput().setStatus("", false)
			return m.refresh(), m.loadCmd(false)

		case adding:
			var draft service.Draft
			if m.lastDraft != nil {
				draft = *m.lastDraft
			}
			draft.Title = value
			draft.Author = m.app.User()
			p, err := m.app.Coordinator.Create(m.ctx, draft)
			if err != nil {
				return m.setStatus(err.Error(), true), nil
			}
			m.lastDraft = nil
			m = m.stopInput()
			return m.dispatched(p, nil)

		case editing:
			if strings.TrimSpace(value) == "" {
				return m.setStatus("Title cannot be empty", true), nil
			}
			it, ok := m.app.Cache.Get().Find(m.editID)
			if !ok {
				return m.stopInput().setStatus("item no longer exists", true), nil
			}
			it.Title = value
			m = m.stopInput()
			p, err := m.app.Coordinator.Update(m.ctx, it)
			return m.dispatched(p, err)
		}
	}

	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

// dispatched refreshes the list after an optimistic step and waits for the
// remote step in the background.
func (m Model) dispatched(p *mutation.Pending, err error) (tea.Model, tea.Cmd) {
	if err != nil {
		return m.setStatus(err.Error(), true), nil
	}
	m = m.refresh()
	return m, m.awaitCmd(p)
}

func (m Model) handleResult(msg resultMsg) Model {
	if msg.err == nil {
		if m.statusErr {
			return m.refresh()
		}
		return m.setStatus("", false).refresh()
	}

	var syncErr *service.SyncError
	if errors.As(msg.err, &syncErr) && syncErr.Draft != nil {
		m.lastDraft = syncErr.Draft
		return m.setStatus(fmt.Sprintf("%v (press a to retry)", msg.err), true).refresh()
	}
	return m.setStatus(msg.err.Error(), true).refresh()
}

func (m Model) startInput(md mode, value, placeholder string) Model {
	m.mode = md
	m.ti.SetValue(value)
	m.ti.CursorEnd()
	m.ti.Placeholder = placeholder
	m.ti.Focus()
	return m
}

func (m Model) stopInput() Model {
	m.mode = browsing
	m.editID = ""
	m.ti.SetValue("")
	m.ti.Blur()
	return m
}

func (m Model) setStatus(s string, isErr bool) Model {
	m.status, m.statusErr = s, isErr
	return m
}

func (m Model) selected() (service.Item, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return service.Item{}, false
	}
	return it.item, true
}

// refresh rebuilds the list rows from the cache, keeping the cursor in range.
func (m Model) refresh() Model {
	items := m.app.View(m.filter)
	rows := make([]list.Item, len(items))
	for i, it := range items {
		rows[i] = listItem{item: it}
	}

	idx := m.list.Index()
	m.list.SetItems(rows)
	if idx >= len(rows) {
		idx = len(rows) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}
	m.list.Title = m.header(items)
	return m
}

func (m Model) header(items []service.Item) string {
	done := 0
	for _, it := range items {
		if it.Completed {
			done++
		}
	}
	user := m.app.User()
	if user == "" {
		user = "-"
	}
	return fmt.Sprintf("%s  %s %d  %s %d  %s %s  %s",
		titleStyle.Render(strings.ToUpper(string(m.app.Collection))),
		successStyle.Render("✔"), done,
		pendingStyle.Render("•"), len(items)-done,
		accentStyle.Render("filter"), m.filter,
		mutedStyle.Render(user),
	)
}

// View implements tea.Model.
func (m Model) View() string {
	listHeight := m.height - 4
	if m.mode != browsing {
		listHeight -= 3
	}
	if m.status != "" || m.loading {
		listHeight--
	}
	m.list.SetSize(max(m.width-4, 20), max(listHeight, 3))

	content := m.list.View()
	if m.mode != browsing {
		title := map[mode]string{
			naming:  "Enter your name",
			adding:  "Add " + m.app.Collection.Singular(),
			editing: "Edit " + m.app.Collection.Singular(),
		}[m.mode]
		content += "\n" + panelStyle.Render(title+"\n"+m.ti.View())
	}
	if m.status != "" {
		style := mutedStyle
		if m.statusErr {
			style = errorStyle
		}
		content += "\n" + style.Render(m.status)
	}
	if n := m.app.Coordinator.InFlight(); n > 0 {
		content += "\n" + pendingStyle.Render(fmt.Sprintf("syncing %d change(s)...", n))
	}
	return panelStyle.Render(content)
}

// Run starts the interactive UI and blocks until the user quits.
func Run(ctx context.Context, a *app.App) error {
	changes := make(chan struct{}, 1)
	cancel := a.Cache.Subscribe(func(service.Snapshot) {
		// Coalesce: one pending notification is enough to trigger a re-render.
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	defer cancel()

	p := tea.NewProgram(New(ctx, a, changes), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
