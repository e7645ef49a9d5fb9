package player

import "github.com/osa030/xiamibox/internal/domain/track"

// EventType represents a player event type.
type EventType int

const (
	EventShown        EventType = iota // Window restored
	EventHidden                        // Window minimised
	EventClosed                        // Window torn down
	EventStateChanged                  // Play, pause or toggle sent
	EventTrackChanged                  // New now-playing track
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventShown:
		return "shown"
	case EventHidden:
		return "hidden"
	case EventClosed:
		return "closed"
	case EventStateChanged:
		return "state_changed"
	case EventTrackChanged:
		return "track_changed"
	default:
		return "unknown"
	}
}

// Event represents a player event.
type Event struct {
	Type    EventType
	State   State
	Visible bool
	Track   track.Record // Now playing; empty until a track is observed
}
