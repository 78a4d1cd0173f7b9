package client

import (
	"context"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/marksapp/marks/pkg/marks/reconciler"
)

// Subscription is a live websocket connection to the server's change feed.
// It satisfies reconciler.Subscription.
type Subscription struct {
	conn   *websocket.Conn
	events chan reconciler.Event
	errs   chan error
	once   sync.Once
}

// Subscribe opens the change feed for the current credential. Events flow on
// Events() until the connection drops or Close is called; a terminal read
// error, if any, is reported on Err().
func (c *Client) Subscribe(ctx context.Context) (*Subscription, error) {
	wsURL := toWebsocketURL(c.baseURL) + "/api/feed?token=" + c.token

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}

	s := &Subscription{
		conn:   conn,
		events: make(chan reconciler.Event, 16),
		errs:   make(chan error, 1),
	}

	go s.readLoop()
	return s, nil
}

func (s *Subscription) readLoop() {
	defer close(s.events)
	for {
		var ev reconciler.Event
		if err := s.conn.ReadJSON(&ev); err != nil {
			select {
			case s.errs <- err:
			default:
			}
			return
		}
		s.events <- ev
	}
}

// Events returns the event channel; it closes when the feed ends
func (s *Subscription) Events() <-chan reconciler.Event {
	return s.events
}

// Err reports the terminal read error when the feed drops unexpectedly
func (s *Subscription) Err() <-chan error {
	return s.errs
}

// Close releases the websocket. Safe to call more than once.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		err = s.conn.Close()
	})
	return err
}

func toWebsocketURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}
