package chat

import "time"

// EventKind tags the variants carried by Event.
type EventKind int

const (
	// EventMessage is a chat line from a user in the joined channel.
	EventMessage EventKind = iota
	// EventNotice is free text the server addressed to the viewer, such
	// as slow-mode announcements.
	EventNotice
	// EventError reports a lost connection. The worker emits exactly one
	// per failure before it retries.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventNotice:
		return "notice"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one item handed from the connection worker to the rendering
// layer. Sender is set only for chat messages. Text holds the message
// body, notice text, or error description. ReceivedAt is the local
// receipt time.
type Event struct {
	Kind       EventKind
	Sender     string
	Text       string
	ReceivedAt time.Time
}
