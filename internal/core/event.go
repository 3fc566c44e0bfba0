package core

import "time"

// BroadcastRoom is the room value carried by notices addressed to every room.
const BroadcastRoom = "all"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventSystem is a server-generated notice (joins, leaves, moderation, rejections).
	EventSystem EventKind = iota
	// EventNewMessage carries an accepted chat message.
	EventNewMessage
	// EventUsers carries the full membership snapshot of a room.
	EventUsers
	// EventTyping tells room members that someone is typing.
	EventTyping
	// EventStopTyping clears the typing indicator of a room.
	EventStopTyping
	// EventError reports a malformed or rejected client frame.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventSystem:
		return "system"
	case EventNewMessage:
		return "new_message"
	case EventUsers:
		return "users"
	case EventTyping:
		return "typing"
	case EventStopTyping:
		return "stop_typing"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind    EventKind
	Room    string
	User    string
	Text    string
	Users   []string // For EventUsers
	Message Message  // For EventNewMessage
	Time    time.Time
	Error   *CoreError
}
