package core

import "time"

// Message is an accepted chat message. Immutable once stamped.
type Message struct {
	ID        int64
	Room      string
	User      string
	Text      string
	CreatedAt time.Time
}
