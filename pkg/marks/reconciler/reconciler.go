// Package reconciler owns the authoritative in-memory bookmark sequence for
// one authenticated session. Local actions (submit, delete) only issue remote
// writes; the sequence itself is mutated exclusively by change feed events, so
// every open session converges on what the record store committed.
package reconciler

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"
)

var (
	ErrTitleRequired = errors.New("title is required")
	ErrInvalidURL    = errors.New("url must be a valid absolute URL")
	ErrClosed        = errors.New("reconciler is closed")
)

// Record is the session-side view of one bookmark row
type Record struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
	OwnerID   uint      `json:"owner_id"`
}

// EventType discriminates change feed messages
type EventType string

const (
	EventInsert EventType = "insert"
	EventDelete EventType = "delete"
)

// Event is one change notification from the feed. Insert events carry the
// record; delete events carry only the id.
type Event struct {
	Type   EventType `json:"event"`
	Record *Record   `json:"record,omitempty"`
	ID     string    `json:"id,omitempty"`
}

// Store is the remote record store the reconciler writes through to. Writes
// never touch local state; the store's change feed is the only mutation path.
type Store interface {
	Insert(ctx context.Context, title, url string) error
	Delete(ctx context.Context, id string) error
}

// Subscription is a live change feed scoped to the session's owner. The
// events channel closes when the feed drops or the subscription is closed.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

// Reconciler keeps the ordered, id-unique bookmark sequence for one session
type Reconciler struct {
	store Store

	mu      sync.Mutex
	records []Record
	sub     Subscription
	closed  bool
}

// New creates a reconciler writing through the given store
func New(store Store) *Reconciler {
	return &Reconciler{store: store}
}

// Initialize replaces the sequence wholesale with a point-in-time snapshot.
// The snapshot is trusted as delivered: already owner-scoped, unique by id,
// and ordered newest-first.
func (r *Reconciler) Initialize(snapshot []Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = make([]Record, len(snapshot))
	copy(r.records, snapshot)
}

// SubmitNew validates the input and issues an insert to the store. Local
// state is never mutated here: the record appears once the feed delivers the
// corresponding insert event.
func (r *Reconciler) SubmitNew(ctx context.Context, title, rawURL string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrTitleRequired
	}
	if !validURL(rawURL) {
		return ErrInvalidURL
	}

	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return ErrClosed
	}

	return r.store.Insert(ctx, title, rawURL)
}

// LocalDelete issues a delete to the store. As with SubmitNew, the removal
// only becomes visible when the feed delivers the delete event, so a rejected
// delete leaves the record in place with no rollback needed.
func (r *Reconciler) LocalDelete(ctx context.Context, id string) error {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return ErrClosed
	}

	return r.store.Delete(ctx, id)
}

// Apply dispatches one feed event into the state. Events arriving after
// Close are ignored rather than faulting.
func (r *Reconciler) Apply(ev Event) {
	switch ev.Type {
	case EventInsert:
		if ev.Record != nil {
			r.OnRemoteInsert(*ev.Record)
		}
	case EventDelete:
		r.OnRemoteDelete(ev.ID)
	}
}

// OnRemoteInsert prepends the record. The feed is at-least-once, so a record
// whose id is already present is skipped to keep the sequence unique.
func (r *Reconciler) OnRemoteInsert(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	for _, existing := range r.records {
		if existing.ID == rec.ID {
			return
		}
	}
	r.records = append([]Record{rec}, r.records...)
}

// OnRemoteDelete removes the record with the matching id. A delete for a
// record never observed locally is a no-op, not an error.
func (r *Reconciler) OnRemoteDelete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	for i, rec := range r.records {
		if rec.ID == id {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return
		}
	}
}

// Records returns a copy of the current sequence
func (r *Reconciler) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Len returns the current sequence length
func (r *Reconciler) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// FilteredView returns the order-preserving subsequence whose title or url
// contains the query as a case-insensitive substring. An empty query returns
// the full sequence.
func (r *Reconciler) FilteredView(query string) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	if query == "" {
		out := make([]Record, len(r.records))
		copy(out, r.records)
		return out
	}

	q := strings.ToLower(query)
	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		if strings.Contains(strings.ToLower(rec.Title), q) || strings.Contains(strings.ToLower(rec.URL), q) {
			out = append(out, rec)
		}
	}
	return out
}

// Run pumps subscription events into the state until the context ends or the
// feed channel closes. The subscription is released on the way out.
func (r *Reconciler) Run(ctx context.Context, sub Subscription) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		sub.Close()
		return
	}
	r.sub = sub
	r.mu.Unlock()

	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			r.Apply(ev)
		}
	}
}

// Close tears the session down: further events and writes are ignored and the
// subscription, if any, is released.
func (r *Reconciler) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	sub := r.sub
	r.sub = nil
	r.mu.Unlock()

	if sub != nil {
		return sub.Close()
	}
	return nil
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != ""
}

// Hostname derives the display hostname for a record's url. Unparseable
// input degrades to an empty string so a malformed remote record renders as
// a placeholder instead of breaking the view.
func Hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
