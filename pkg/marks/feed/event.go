package feed

import "github.com/marksapp/marks/pkg/marks/models"

// EventType discriminates change feed messages
type EventType string

const (
	EventInsert EventType = "insert"
	EventDelete EventType = "delete"
)

// Event is one row-level change notification. Insert events carry the full
// record; delete events carry only the record id. Delivery is at-least-once:
// consumers must tolerate duplicates.
type Event struct {
	Event  EventType        `json:"event"`
	Record *models.Bookmark `json:"record,omitempty"`
	ID     string           `json:"id,omitempty"`
}

// InsertEvent builds an insert notification for a committed row
func InsertEvent(b models.Bookmark) Event {
	return Event{Event: EventInsert, Record: &b}
}

// DeleteEvent builds a delete notification for a removed row
func DeleteEvent(id string) Event {
	return Event{Event: EventDelete, ID: id}
}
