package core

import (
	"context"
	"reflect"
	"testing"
	"time"
)

// newEngine returns a hub whose handlers are driven directly by the test goroutine.
func newEngine(log *memoryLog) *Hub {
	var h *Hub
	// A typed nil *memoryLog would not disable persistence.
	if log == nil {
		h = NewHub(nil, HubOptions{})
	} else {
		h = NewHub(log, HubOptions{})
	}
	return h
}

func (h *Hub) apply(cmd *Command) {
	h.handle(context.Background(), cmd)
}

func TestEngineBanRemovesMembership(t *testing.T) {
	h := newEngine(nil)
	c1, c2 := NewClient("c1", 0), NewClient("c2", 0)

	h.apply(&Command{Kind: CommandJoin, Client: c1, User: "bob", Room: "general"})
	h.apply(&Command{Kind: CommandJoin, Client: c2, User: "bob", Room: "general"})

	res := h.moderate(Action{Kind: ActionBan, Room: "general", User: "bob"})
	if res.Disconnected != 2 {
		t.Fatalf("expected both connections disconnected, got %d", res.Disconnected)
	}
	if !h.registry.IsBanned("general", "bob") {
		t.Fatalf("bob should be banned")
	}
	if h.directory.IsMember("general", "bob") {
		t.Fatalf("banned user still a member")
	}
	for _, c := range []*Client{c1, c2} {
		if _, ok := h.directory.Lookup(c.ID); ok {
			t.Fatalf("connection %s still associated", c.ID)
		}
	}
}

func TestEngineUnbanDoesNotRestoreMembership(t *testing.T) {
	h := newEngine(nil)
	c := NewClient("c1", 0)

	h.apply(&Command{Kind: CommandJoin, Client: c, User: "bob", Room: "general"})
	h.moderate(Action{Kind: ActionBan, Room: "general", User: "bob"})
	h.moderate(Action{Kind: ActionUnban, Room: "general", User: "bob"})

	if h.registry.IsBanned("general", "bob") {
		t.Fatalf("bob should be unbanned")
	}
	if h.directory.IsMember("general", "bob") {
		t.Fatalf("unban must not restore membership")
	}
}

func TestEngineDoubleJoinKeepsOneMembership(t *testing.T) {
	h := newEngine(nil)
	c := NewClient("c1", 0)

	h.apply(&Command{Kind: CommandJoin, Client: c, User: "alice", Room: "general"})
	h.apply(&Command{Kind: CommandJoin, Client: c, User: "alice", Room: "general"})

	if got := h.directory.MembersOf("general"); !reflect.DeepEqual(got, []string{"alice"}) {
		t.Fatalf("unexpected members: %v", got)
	}
	h.drop(c)
	if got := h.directory.MembersOf("general"); len(got) != 0 {
		t.Fatalf("expected empty room after disconnect, got %v", got)
	}
}

func TestEngineJoinElsewhereLeavesOldRoomFirst(t *testing.T) {
	h := newEngine(nil)
	alice, bob := NewClient("a", 0), NewClient("b", 0)

	h.apply(&Command{Kind: CommandJoin, Client: alice, User: "alice", Room: "general"})
	h.apply(&Command{Kind: CommandJoin, Client: bob, User: "bob", Room: "general"})
	drain(bob.Events)

	h.apply(&Command{Kind: CommandJoin, Client: alice, User: "alice", Room: "random"})

	events := drain(bob.Events)
	if len(events) != 2 || events[0].Kind != EventUsers || events[1].Text != "alice left" {
		t.Fatalf("expected leave side effects in general, got %+v", events)
	}
	if h.directory.IsMember("general", "alice") || !h.directory.IsMember("random", "alice") {
		t.Fatalf("alice should have moved to random")
	}
}

func TestEngineLeaveWrongRoomIsNoop(t *testing.T) {
	h := newEngine(nil)
	c := NewClient("c1", 0)

	h.apply(&Command{Kind: CommandJoin, Client: c, User: "alice", Room: "general"})
	drain(c.Events)

	h.apply(&Command{Kind: CommandLeave, Client: c, User: "alice", Room: "random"})
	if !h.directory.IsMember("general", "alice") {
		t.Fatalf("leave of another room must not unbind")
	}
	if events := drain(c.Events); len(events) != 0 {
		t.Fatalf("expected no events, got %+v", events)
	}

	h.apply(&Command{Kind: CommandLeave, Client: c, User: "alice", Room: "general"})
	h.apply(&Command{Kind: CommandLeave, Client: c, User: "alice", Room: "general"})
	if h.directory.IsMember("general", "alice") {
		t.Fatalf("alice should have left")
	}
}

func TestEngineUnboundSendUsesFallback(t *testing.T) {
	log := &memoryLog{}
	h := newEngine(log)
	listener, anon := NewClient("l", 0), NewClient("anon", 0)

	h.apply(&Command{Kind: CommandJoin, Client: listener, User: "carol", Room: "general"})
	drain(listener.Events)

	h.apply(&Command{Kind: CommandSend, Client: anon, User: "dave", Text: "  early bird  "})

	events := drain(listener.Events)
	if len(events) != 1 || events[0].Kind != EventNewMessage {
		t.Fatalf("expected one message, got %+v", events)
	}
	msg := events[0].Message
	if msg.User != "dave" || msg.Room != "general" || msg.Text != "early bird" {
		t.Fatalf("unexpected fallback message: %+v", msg)
	}
	if log.Len() != 1 {
		t.Fatalf("expected message persisted")
	}
}

func TestEngineMutedFallbackSenderRejected(t *testing.T) {
	log := &memoryLog{}
	h := newEngine(log)
	anon := NewClient("anon", 0)

	h.moderate(Action{Kind: ActionMute, Room: "general", User: "dave"})
	h.apply(&Command{Kind: CommandSend, Client: anon, User: "dave", Room: "general", Text: "hi"})

	events := drain(anon.Events)
	if len(events) != 1 || events[0].Text != NoticeMuted {
		t.Fatalf("expected muted notice, got %+v", events)
	}
	if log.Len() != 0 {
		t.Fatalf("muted message persisted")
	}
}

func TestEngineTimestampsNeverGoBackwards(t *testing.T) {
	log := &memoryLog{}
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(-time.Minute), base.Add(time.Second)}
	var i int
	h := NewHub(log, HubOptions{Now: func() time.Time {
		ts := times[i%len(times)]
		i++
		return ts
	}})
	c := NewClient("c1", 0)
	h.directory.Associate(c.ID, "alice", "general")
	h.clients[c.ID] = c

	for range 3 {
		h.send(context.Background(), c, "tick", "", "")
	}

	msgs, _ := log.Query(context.Background(), "general", 10)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for j := 1; j < len(msgs); j++ {
		if msgs[j].CreatedAt.Before(msgs[j-1].CreatedAt) {
			t.Fatalf("timestamp %d went backwards: %v < %v", j, msgs[j].CreatedAt, msgs[j-1].CreatedAt)
		}
	}
}

func TestEngineKickedClientCommandsIgnored(t *testing.T) {
	h := newEngine(nil)
	c := NewClient("c1", 0)

	h.apply(&Command{Kind: CommandJoin, Client: c, User: "bob", Room: "general"})
	h.moderate(Action{Kind: ActionKick, Room: "general", User: "bob", Actor: "mod"})

	h.apply(&Command{Kind: CommandJoin, Client: c, User: "bob", Room: "general"})
	if h.directory.IsMember("general", "bob") {
		t.Fatalf("kicked connection rejoined")
	}
	if _, ok := h.clients[c.ID]; ok {
		t.Fatalf("kicked connection still registered")
	}
}

func TestEngineLeaveNoticeWaitsForLastConnection(t *testing.T) {
	h := newEngine(nil)
	tab1, tab2, bob := NewClient("a1", 0), NewClient("a2", 0), NewClient("b", 0)

	h.apply(&Command{Kind: CommandJoin, Client: tab1, User: "alice", Room: "general"})
	h.apply(&Command{Kind: CommandJoin, Client: tab2, User: "alice", Room: "general"})
	h.apply(&Command{Kind: CommandJoin, Client: bob, User: "bob", Room: "general"})
	drain(bob.Events)

	h.drop(tab1)
	events := drain(bob.Events)
	if len(events) != 1 || events[0].Kind != EventUsers {
		t.Fatalf("expected only a users refresh, got %+v", events)
	}
	if !reflect.DeepEqual(events[0].Users, []string{"alice", "bob"}) {
		t.Fatalf("alice still has a connection, got users %v", events[0].Users)
	}

	h.apply(&Command{Kind: CommandLeave, Client: tab2, Room: "general"})
	events = drain(bob.Events)
	if len(events) != 2 || events[1].Kind != EventSystem || events[1].Text != "alice left" {
		t.Fatalf("expected users refresh and leave notice, got %+v", events)
	}
}
