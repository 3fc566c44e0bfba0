package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/vovakirdan/socketchat-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAppendAssignsIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &store.Message{Room: "general", User: "alice", Body: "hi", CreatedAt: time.Now()}
	second := &store.Message{Room: "general", User: "bob", Body: "hey", CreatedAt: time.Now()}

	if err := s.Append(ctx, first); err != nil {
		t.Fatalf("append first: %v", err)
	}
	if err := s.Append(ctx, second); err != nil {
		t.Fatalf("append second: %v", err)
	}
	if first.ID == 0 || second.ID <= first.ID {
		t.Fatalf("expected increasing ids, got %d and %d", first.ID, second.ID)
	}
}

func TestQueryReturnsOldestFirstWithinLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := range 5 {
		msg := &store.Message{
			Room:      "general",
			User:      "alice",
			Body:      fmt.Sprintf("m%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := s.Append(ctx, msg); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := s.Append(ctx, &store.Message{Room: "random", User: "bob", Body: "elsewhere", CreatedAt: base}); err != nil {
		t.Fatalf("append other room: %v", err)
	}

	tests := []struct {
		name     string
		room     string
		limit    int
		expected []string
	}{
		{name: "limit smaller than log", room: "general", limit: 3, expected: []string{"m2", "m3", "m4"}},
		{name: "limit larger than log", room: "general", limit: 10, expected: []string{"m0", "m1", "m2", "m3", "m4"}},
		{name: "other room isolated", room: "random", limit: 10, expected: []string{"elsewhere"}},
		{name: "unknown room", room: "ghost", limit: 10, expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := s.Query(ctx, tt.room, tt.limit)
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			if len(msgs) != len(tt.expected) {
				t.Fatalf("expected %d messages, got %d", len(tt.expected), len(msgs))
			}
			for i, msg := range msgs {
				if msg.Body != tt.expected[i] {
					t.Errorf("expected %s at index %d, got %s", tt.expected[i], i, msg.Body)
				}
				if msg.Room != tt.room {
					t.Errorf("expected room %s, got %s", tt.room, msg.Room)
				}
			}
		})
	}
}

func TestQueryPreservesTimestamp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ts := time.Date(2025, 6, 7, 8, 9, 10, 0, time.UTC)
	if err := s.Append(ctx, &store.Message{Room: "general", User: "alice", Body: "hi", CreatedAt: ts}); err != nil {
		t.Fatalf("append: %v", err)
	}

	msgs, err := s.Query(ctx, "general", 1)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if !msgs[0].CreatedAt.Equal(ts) {
		t.Fatalf("expected timestamp %v, got %v", ts, msgs[0].CreatedAt)
	}
	if msgs[0].User != "alice" {
		t.Fatalf("expected user alice, got %s", msgs[0].User)
	}
}
