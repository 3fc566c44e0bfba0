package core

import "sync"

const defaultEventBuffer = 64

// Client is a live connection as seen by the core layer.
type Client struct {
	ID     string
	Events chan *Event

	done      chan struct{}
	closeOnce sync.Once

	// detached is set by the hub once the connection is cleaned up; owned by Run.
	detached bool
}

// NewClient constructs a client with an event buffer of the given size.
func NewClient(id string, buffer int) *Client {
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	return &Client{
		ID:     id,
		Events: make(chan *Event, buffer),
		done:   make(chan struct{}),
	}
}

// Done is closed when the hub forcibly disconnects the client.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) kick() {
	c.closeOnce.Do(func() { close(c.done) })
}

// deliver queues ev without blocking; events are dropped for slow consumers.
func (c *Client) deliver(ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}
