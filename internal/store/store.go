package store

import (
	"context"
	"time"
)

// Message represents a persisted chat message.
type Message struct {
	ID        int64     `json:"id,omitempty"`
	Room      string    `json:"room"`
	User      string    `json:"user"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageLog is an append-only store of chat messages keyed by room.
type MessageLog interface {
	// Append persists a message. Implementations may set msg.ID.
	Append(ctx context.Context, msg *Message) error

	// Query returns up to limit most recent messages of room, oldest first.
	Query(ctx context.Context, room string, limit int) ([]*Message, error)

	// Close releases the underlying connection.
	Close() error
}
