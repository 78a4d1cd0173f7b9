package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/marksapp/marks/pkg/marks/reconciler"
)

func TestLoginInstallsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" || r.Method != http.MethodPost {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req loginRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Email != "test@example.com" {
			t.Errorf("Unexpected email: %s", req.Email)
		}
		json.NewEncoder(w).Encode(authResponse{
			Token: "session-token",
			User:  User{ID: 1, Email: req.Email, Name: "Test"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	user, err := c.Login(context.Background(), "test@example.com", "password123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.ID != 1 {
		t.Errorf("Expected user id 1, got %d", user.ID)
	}
	if c.Token() != "session-token" {
		t.Errorf("Expected token to be installed, got %q", c.Token())
	}
}

func TestSnapshotSendsCredentialAndDecodes(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tkn" {
			t.Errorf("Expected bearer credential, got %q", got)
		}
		json.NewEncoder(w).Encode([]reconciler.Record{
			{ID: "b", Title: "Bar", URL: "https://bar.com", CreatedAt: now, OwnerID: 1},
			{ID: "a", Title: "Foo", URL: "https://foo.com", CreatedAt: now.Add(-time.Hour), OwnerID: 1},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("tkn")

	records, err := c.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(records) != 2 || records[0].ID != "b" {
		t.Errorf("Unexpected snapshot: %+v", records)
	}
	if !records[0].CreatedAt.Equal(now) {
		t.Errorf("Expected created_at %v, got %v", now, records[0].CreatedAt)
	}
}

func TestInsertAndDelete(t *testing.T) {
	var gotInsert createRequest
	var gotDeletePath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			json.NewDecoder(r.Body).Decode(&gotInsert)
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{}`))
		case http.MethodDelete:
			gotDeletePath = r.URL.Path
			w.Write([]byte(`{"message":"Bookmark deleted"}`))
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("tkn")

	if err := c.Insert(context.Background(), "Title", "https://example.com"); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if gotInsert.Title != "Title" || gotInsert.URL != "https://example.com" {
		t.Errorf("Unexpected insert payload: %+v", gotInsert)
	}

	if err := c.Delete(context.Background(), "abc"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if gotDeletePath != "/api/bookmarks/abc" {
		t.Errorf("Unexpected delete path: %s", gotDeletePath)
	}
}

func TestServerErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"URL must be a valid absolute URL"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	err := c.Insert(context.Background(), "T", "nope")
	if err == nil {
		t.Fatal("Expected error")
	}
	if err.Error() != "server: URL must be a valid absolute URL" {
		t.Errorf("Expected server message to be surfaced, got %q", err)
	}
}

func TestSubscribeReceivesEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "tkn" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		ws.WriteJSON(reconciler.Event{
			Type:   reconciler.EventInsert,
			Record: &reconciler.Record{ID: "a", Title: "Foo", URL: "https://foo.com"},
		})
		ws.WriteJSON(reconciler.Event{Type: reconciler.EventDelete, ID: "a"})
		// Keep the socket open until the client hangs up
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("tkn")

	sub, err := c.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	select {
	case ev := <-sub.Events():
		if ev.Type != reconciler.EventInsert || ev.Record == nil || ev.Record.ID != "a" {
			t.Errorf("Unexpected first event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for insert event")
	}

	select {
	case ev := <-sub.Events():
		if ev.Type != reconciler.EventDelete || ev.ID != "a" {
			t.Errorf("Unexpected second event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for delete event")
	}
}

func TestSubscriptionDropReportsError(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// Hang up immediately
		ws.Close()
	}))
	defer srv.Close()

	c := New(srv.URL)
	sub, err := c.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	select {
	case _, open := <-sub.Events():
		if open {
			t.Error("Expected events channel to close on drop")
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for channel close")
	}

	select {
	case err := <-sub.Err():
		if err == nil {
			t.Error("Expected terminal error")
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for terminal error")
	}
}

func TestWebsocketURLTranslation(t *testing.T) {
	if got := toWebsocketURL("http://localhost:8080"); got != "ws://localhost:8080" {
		t.Errorf("Unexpected translation: %s", got)
	}
	if got := toWebsocketURL("https://marks.example.com"); got != "wss://marks.example.com" {
		t.Errorf("Unexpected translation: %s", got)
	}
}
