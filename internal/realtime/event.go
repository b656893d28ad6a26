// Package realtime fans content-change events out to connected playback
// displays. Delivery is best effort while connected; there is no replay,
// so a reconnecting display re-fetches its full content.
package realtime

import "context"

const (
	EventJoin         = "join"
	EventJoined       = "joined"
	EventMediaUpdated = "media_updated"
	EventError        = "error"
)

// Event is the wire message exchanged with displays.
type Event struct {
	Type    string `json:"type"`
	UserID  string `json:"user_id,omitempty"`
	GroupID string `json:"group_id,omitempty"`
	Message string `json:"message,omitempty"`
}

func MediaUpdated(groupID string) Event {
	return Event{Type: EventMediaUpdated, GroupID: groupID}
}

// Publisher delivers an event to every display joined to userID's channel.
type Publisher interface {
	Publish(ctx context.Context, userID string, event Event) error
}
