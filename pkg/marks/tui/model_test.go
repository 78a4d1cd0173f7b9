package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/marksapp/marks/pkg/marks/reconciler"
)

type fakeStore struct {
	inserts int
	deletes []string
	err     error
}

func (s *fakeStore) Insert(ctx context.Context, title, url string) error {
	s.inserts++
	return s.err
}

func (s *fakeStore) Delete(ctx context.Context, id string) error {
	s.deletes = append(s.deletes, id)
	return s.err
}

type fakeFeed struct {
	events chan reconciler.Event
	errs   chan error
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{events: make(chan reconciler.Event, 8), errs: make(chan error, 1)}
}

func (f *fakeFeed) Events() <-chan reconciler.Event { return f.events }
func (f *fakeFeed) Err() <-chan error               { return f.errs }
func (f *fakeFeed) Close() error                    { return nil }

func newTestModel(t *testing.T, store *fakeStore, snapshot []reconciler.Record) *Model {
	t.Helper()
	recon := reconciler.New(store)
	recon.Initialize(snapshot)
	m := NewModel(context.Background(), recon, newFakeFeed())
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return m
}

func TestFeedInsertRefreshesList(t *testing.T) {
	m := newTestModel(t, &fakeStore{}, nil)

	if len(m.bookmarkList.Items()) != 0 {
		t.Fatalf("Expected empty list, got %d items", len(m.bookmarkList.Items()))
	}

	m.Update(feedEventMsg(reconciler.Event{
		Type:   reconciler.EventInsert,
		Record: &reconciler.Record{ID: "a", Title: "Foo", URL: "https://foo.com"},
	}))

	items := m.bookmarkList.Items()
	if len(items) != 1 {
		t.Fatalf("Expected 1 item after insert event, got %d", len(items))
	}
	if items[0].(bookmarkItem).record.ID != "a" {
		t.Errorf("Unexpected item: %+v", items[0])
	}
}

func TestFeedDeleteRefreshesList(t *testing.T) {
	m := newTestModel(t, &fakeStore{}, []reconciler.Record{
		{ID: "a", Title: "Foo", URL: "https://foo.com"},
		{ID: "b", Title: "Bar", URL: "https://bar.com"},
	})

	m.Update(feedEventMsg(reconciler.Event{Type: reconciler.EventDelete, ID: "a"}))

	items := m.bookmarkList.Items()
	if len(items) != 1 || items[0].(bookmarkItem).record.ID != "b" {
		t.Errorf("Expected only record b, got %d items", len(items))
	}
}

func TestSubmitIsSingleFlight(t *testing.T) {
	store := &fakeStore{}
	m := newTestModel(t, store, nil)
	m.view = AddView
	m.titleInput.SetValue("Foo")
	m.urlInput.SetValue("https://foo.com")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("Expected a submit command")
	}
	if !m.submitting {
		t.Fatal("Expected submitting flag to be set")
	}

	// Second enter while in flight does nothing
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("Expected no command while a submit is in flight")
	}
}

func TestSubmitFailureRetainsFields(t *testing.T) {
	m := newTestModel(t, &fakeStore{}, nil)
	m.view = AddView
	m.titleInput.SetValue("Foo")
	m.urlInput.SetValue("not-a-url")
	m.submitting = true

	m.Update(submitDoneMsg{err: errors.New("url must be a valid absolute URL")})

	if m.view != AddView {
		t.Error("Expected to stay on the add form after a failure")
	}
	if m.titleInput.Value() != "Foo" || m.urlInput.Value() != "not-a-url" {
		t.Error("Expected form fields to be retained after a failure")
	}
	if m.notice == "" {
		t.Error("Expected the error notice to be shown")
	}
	if m.submitting {
		t.Error("Expected submitting flag to clear")
	}
}

func TestSubmitSuccessClearsForm(t *testing.T) {
	m := newTestModel(t, &fakeStore{}, nil)
	m.view = AddView
	m.titleInput.SetValue("Foo")
	m.urlInput.SetValue("https://foo.com")
	m.submitting = true

	m.Update(submitDoneMsg{})

	if m.view != ListView {
		t.Error("Expected to return to the list after a successful submit")
	}
	if m.titleInput.Value() != "" || m.urlInput.Value() != "" {
		t.Error("Expected form fields to be cleared")
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	store := &fakeStore{}
	m := newTestModel(t, store, []reconciler.Record{
		{ID: "a", Title: "Foo", URL: "https://foo.com"},
	})

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	if m.view != ConfirmDeleteView {
		t.Fatalf("Expected confirm view, got %d", m.view)
	}
	if m.pendingDelete == nil || m.pendingDelete.ID != "a" {
		t.Fatalf("Unexpected pending delete: %+v", m.pendingDelete)
	}

	// Declining leaves the record alone
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	if m.view != ListView || m.pendingDelete != nil {
		t.Error("Expected decline to return to the list")
	}
	if len(store.deletes) != 0 {
		t.Errorf("Expected no delete calls, got %v", store.deletes)
	}

	// Accepting issues the remote delete
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	if cmd == nil {
		t.Fatal("Expected a delete command")
	}
	if msg := cmd(); msg == nil {
		t.Fatal("Expected a delete result message")
	}
	if len(store.deletes) != 1 || store.deletes[0] != "a" {
		t.Errorf("Expected delete of a, got %v", store.deletes)
	}
}

func TestSearchFiltersList(t *testing.T) {
	m := newTestModel(t, &fakeStore{}, []reconciler.Record{
		{ID: "a", Title: "Go Blog", URL: "https://go.dev/blog"},
		{ID: "b", Title: "Rust Book", URL: "https://doc.rust-lang.org"},
	})

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	if !m.searching {
		t.Fatal("Expected search mode")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'o'}})

	items := m.bookmarkList.Items()
	if len(items) != 1 || items[0].(bookmarkItem).record.ID != "a" {
		t.Fatalf("Expected only the Go Blog record, got %d items", len(items))
	}

	// Escape clears the filter
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.searching || m.query != "" {
		t.Error("Expected search to be cleared")
	}
	if len(m.bookmarkList.Items()) != 2 {
		t.Errorf("Expected full list after clearing, got %d items", len(m.bookmarkList.Items()))
	}
}

func TestFeedDropShowsNotice(t *testing.T) {
	m := newTestModel(t, &fakeStore{}, nil)

	m.Update(feedDroppedMsg{err: errors.New("connection reset")})

	if m.feedErr == nil || m.notice == "" {
		t.Error("Expected the drop to be surfaced")
	}
}

func TestItemDescriptionDegradesGracefully(t *testing.T) {
	good := bookmarkItem{record: reconciler.Record{Title: "Foo", URL: "https://foo.com/a"}}
	if got := good.Description(); got != "foo.com • https://foo.com/a" {
		t.Errorf("Unexpected description: %q", got)
	}

	bad := bookmarkItem{record: reconciler.Record{Title: "Bad", URL: "http://%zz"}}
	if got := bad.Description(); got != "http://%zz" {
		t.Errorf("Expected raw url fallback, got %q", got)
	}
}
