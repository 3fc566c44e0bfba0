package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/socketchat-server/internal/store"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// mustNoEvent fails if an event of kind arrives within a short window.
func mustNoEvent(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()

	deadline := time.Now().Add(150 * time.Millisecond)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected %v event: %+v", kind, ev)
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func drain(ch <-chan *Event) []*Event {
	var out []*Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// memoryLog is an in-memory store.MessageLog.
type memoryLog struct {
	mu       sync.Mutex
	messages []*store.Message
	failWith error
}

func (m *memoryLog) Append(_ context.Context, msg *store.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	cp := *msg
	cp.ID = int64(len(m.messages) + 1)
	msg.ID = cp.ID
	m.messages = append(m.messages, &cp)
	return nil
}

func (m *memoryLog) Query(_ context.Context, room string, limit int) ([]*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.Message
	for _, msg := range m.messages {
		if msg.Room == room {
			out = append(out, msg)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memoryLog) Close() error { return nil }

func (m *memoryLog) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

var errDiskFull = errors.New("disk full")

// startHub runs a hub for the duration of the test.
func startHub(t *testing.T, log store.MessageLog) *Hub {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(log, HubOptions{})
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func dispatch(t *testing.T, hub *Hub, cmd *Command) {
	t.Helper()
	if err := hub.Dispatch(context.Background(), cmd); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
}

func connect(t *testing.T, hub *Hub, id string) *Client {
	t.Helper()
	c := NewClient(id, 0)
	if err := hub.Register(context.Background(), c); err != nil {
		t.Fatalf("register: %v", err)
	}
	return c
}

func join(t *testing.T, hub *Hub, c *Client, user, room string) {
	t.Helper()
	dispatch(t, hub, &Command{Kind: CommandJoin, Client: c, User: user, Room: room})
}

func sendText(t *testing.T, hub *Hub, c *Client, text string) {
	t.Helper()
	dispatch(t, hub, &Command{Kind: CommandSend, Client: c, Text: text})
}

// settle waits until every previously dispatched command has been handled.
func settle(t *testing.T, hub *Hub) Snapshot {
	t.Helper()
	snap, err := hub.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return snap
}

func membersIn(snap Snapshot, room string) []string {
	for _, r := range snap.Rooms {
		if r.Name == room {
			return r.Members
		}
	}
	return nil
}
