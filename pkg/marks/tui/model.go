// Package tui is the terminal front end for a marks session. It renders the
// reconciler's view, drives submits and deletes through it, and pumps change
// feed events into it so concurrent sessions stay in sync on screen.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/marksapp/marks/pkg/marks/reconciler"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ListView ViewState = iota
	AddView
	ConfirmDeleteView
)

// Feed is the live change feed the model pumps from. The client's websocket
// subscription satisfies it.
type Feed interface {
	Events() <-chan reconciler.Event
	Err() <-chan error
	Close() error
}

// bookmarkItem wraps [reconciler.Record] to implement list.Item.
type bookmarkItem struct {
	record reconciler.Record
}

func (i bookmarkItem) FilterValue() string { return i.record.Title }
func (i bookmarkItem) Title() string       { return i.record.Title }
func (i bookmarkItem) Description() string {
	host := reconciler.Hostname(i.record.URL)
	if host == "" {
		return i.record.URL
	}
	return fmt.Sprintf("%s • %s", host, i.record.URL)
}

type feedEventMsg reconciler.Event

type feedDroppedMsg struct {
	err error
}

type submitDoneMsg struct {
	err error
}

type deleteDoneMsg struct {
	err error
}

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	recon  *reconciler.Reconciler
	feed   Feed
	view   ViewState
	width  int
	height int

	bookmarkList list.Model
	titleInput   textinput.Model
	urlInput     textinput.Model
	searchInput  textinput.Model
	searching    bool
	query        string

	focusIndex    int
	submitting    bool
	pendingDelete *reconciler.Record
	notice        string
	feedErr       error

	help help.Model
	keys keyMap
}

// NewModel creates a TUI model over an initialized reconciler and a live feed.
func NewModel(ctx context.Context, recon *reconciler.Reconciler, feed Feed) *Model {
	titleInput := textinput.New()
	titleInput.Placeholder = "Title"
	titleInput.CharLimit = 200

	urlInput := textinput.New()
	urlInput.Placeholder = "https://example.com"
	urlInput.CharLimit = 2000

	searchInput := textinput.New()
	searchInput.Placeholder = "search title or url"
	searchInput.Prompt = "/ "

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Bookmarks"
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	m := &Model{
		ctx:          ctx,
		recon:        recon,
		feed:         feed,
		view:         ListView,
		bookmarkList: l,
		titleInput:   titleInput,
		urlInput:     urlInput,
		searchInput:  searchInput,
		help:         help.New(),
		keys:         newKeyMap(),
	}
	m.rebuildList()
	return m
}

// Init starts the feed pump.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), m.waitForDrop(), textinput.Blink)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bookmarkList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ListView:
			return m.handleListKeys(msg)
		case AddView:
			return m.handleAddKeys(msg)
		case ConfirmDeleteView:
			return m.handleConfirmKeys(msg)
		}

	case feedEventMsg:
		m.recon.Apply(reconciler.Event(msg))
		m.rebuildList()
		return m, m.waitForEvent()

	case feedDroppedMsg:
		m.feedErr = msg.err
		m.notice = "Change feed disconnected; restart to resync"
		return m, nil

	case submitDoneMsg:
		m.submitting = false
		if msg.err != nil {
			m.notice = msg.err.Error()
			return m, nil
		}
		// The new record arrives through the feed, not here
		m.titleInput.Reset()
		m.urlInput.Reset()
		m.notice = ""
		m.view = ListView
		return m, nil

	case deleteDoneMsg:
		m.pendingDelete = nil
		m.view = ListView
		if msg.err != nil {
			m.notice = msg.err.Error()
		}
		return m, nil
	}

	return m.updateFocused(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case AddView:
		return m.renderAdd()
	case ConfirmDeleteView:
		return m.renderConfirm()
	default:
		return m.renderList()
	}
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		switch msg.String() {
		case "esc":
			m.searching = false
			m.searchInput.Blur()
			m.searchInput.Reset()
			m.query = ""
			m.rebuildList()
			return m, nil
		case "enter":
			m.searching = false
			m.searchInput.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		if m.searchInput.Value() != m.query {
			m.query = m.searchInput.Value()
			m.rebuildList()
		}
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "a":
		m.view = AddView
		m.focusIndex = 0
		m.notice = ""
		m.titleInput.Focus()
		m.urlInput.Blur()
		return m, textinput.Blink
	case "/":
		m.searching = true
		m.searchInput.Focus()
		return m, textinput.Blink
	case "d", "x":
		if item, ok := m.bookmarkList.SelectedItem().(bookmarkItem); ok {
			rec := item.record
			m.pendingDelete = &rec
			m.view = ConfirmDeleteView
		}
		return m, nil
	case "esc":
		if m.query != "" {
			m.searchInput.Reset()
			m.query = ""
			m.rebuildList()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.bookmarkList, cmd = m.bookmarkList.Update(msg)
	return m, cmd
}

func (m *Model) handleAddKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = ListView
		m.notice = ""
		return m, nil
	case "tab", "shift+tab", "up", "down":
		m.focusIndex = (m.focusIndex + 1) % 2
		if m.focusIndex == 0 {
			m.titleInput.Focus()
			m.urlInput.Blur()
		} else {
			m.titleInput.Blur()
			m.urlInput.Focus()
		}
		return m, textinput.Blink
	case "enter":
		if m.submitting {
			return m, nil
		}
		m.submitting = true
		m.notice = ""
		return m, m.submit(m.titleInput.Value(), m.urlInput.Value())
	}

	var cmd tea.Cmd
	if m.focusIndex == 0 {
		m.titleInput, cmd = m.titleInput.Update(msg)
	} else {
		m.urlInput, cmd = m.urlInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y":
		if m.pendingDelete == nil {
			m.view = ListView
			return m, nil
		}
		return m, m.deleteRecord(m.pendingDelete.ID)
	case "n", "esc", "q":
		m.pendingDelete = nil
		m.view = ListView
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ListView:
		if m.searching {
			m.searchInput, cmd = m.searchInput.Update(msg)
		} else {
			m.bookmarkList, cmd = m.bookmarkList.Update(msg)
		}
	case AddView:
		if m.focusIndex == 0 {
			m.titleInput, cmd = m.titleInput.Update(msg)
		} else {
			m.urlInput, cmd = m.urlInput.Update(msg)
		}
	}
	return m, cmd
}

func (m *Model) rebuildList() {
	records := m.recon.FilteredView(m.query)
	items := make([]list.Item, len(records))
	for i, rec := range records {
		items[i] = bookmarkItem{record: rec}
	}
	m.bookmarkList.SetItems(items)
}

func (m *Model) submit(title, rawURL string) tea.Cmd {
	return func() tea.Msg {
		return submitDoneMsg{err: m.recon.SubmitNew(m.ctx, title, rawURL)}
	}
}

func (m *Model) deleteRecord(id string) tea.Cmd {
	return func() tea.Msg {
		return deleteDoneMsg{err: m.recon.LocalDelete(m.ctx, id)}
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
			return nil
		case ev, ok := <-m.feed.Events():
			if !ok {
				return nil
			}
			return feedEventMsg(ev)
		}
	}
}

func (m *Model) waitForDrop() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
			return nil
		case err := <-m.feed.Err():
			return feedDroppedMsg{err: err}
		}
	}
}

func (m *Model) renderList() string {
	var header string
	if m.searching || m.query != "" {
		header = m.searchInput.View() + "\n"
	}

	body := m.bookmarkList.View()
	if m.recon.Len() == 0 && m.query == "" {
		body = styles.help.Render("No bookmarks yet. Press a to add one.")
	}

	var notice string
	if m.notice != "" {
		notice = "\n" + styles.warn.Render(m.notice)
	}

	helpView := m.help.ShortHelpView(m.keys.ShortHelp())
	return fmt.Sprintf("%s%s%s\n\n%s", header, body, notice, helpView)
}

func (m *Model) renderAdd() string {
	title := styles.title.Render("Add bookmark")

	var notice string
	if m.notice != "" {
		notice = "\n" + styles.err.Render(m.notice)
	}

	status := ""
	if m.submitting {
		status = "\n" + styles.help.Render("Saving...")
	}

	return fmt.Sprintf(
		"%s\n%s\n%s%s%s\n\n%s",
		title,
		m.titleInput.View(),
		m.urlInput.View(),
		notice,
		status,
		styles.help.Render("enter save • tab next field • esc cancel"),
	)
}

func (m *Model) renderConfirm() string {
	if m.pendingDelete == nil {
		return ""
	}
	title := styles.title.Render("Delete bookmark?")
	info := fmt.Sprintf("%s\n%s", m.pendingDelete.Title, styles.host.Render(m.pendingDelete.URL))
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, styles.help.Render("y delete • n cancel"))
}
