package watcher

import "time"

// EventType represents the type of file system event
type EventType int

const (
	// EventModified is emitted when the watched file changes (after settling)
	EventModified EventType = iota
	// EventRemoved is emitted when the watched file is gone after settling
	EventRemoved
)

// String returns the string representation of the event type
func (t EventType) String() string {
	switch t {
	case EventModified:
		return "modified"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event represents a change to the watched deck file
type Event struct {
	Type EventType
	Path string

	// Size and ModTime describe the settled file; zero for EventRemoved.
	Size    int64
	ModTime time.Time
}
