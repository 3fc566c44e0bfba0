package core

import (
	"context"
	"fmt"
	"strings"
)

// ActionKind is a privileged moderation operation.
type ActionKind string

const (
	ActionMute      ActionKind = "mute"
	ActionUnmute    ActionKind = "unmute"
	ActionKick      ActionKind = "kick"
	ActionBan       ActionKind = "ban"
	ActionUnban     ActionKind = "unban"
	ActionLock      ActionKind = "lock"
	ActionUnlock    ActionKind = "unlock"
	ActionBroadcast ActionKind = "broadcast"
)

// ParseAction maps a form value onto an ActionKind.
func ParseAction(s string) (ActionKind, error) {
	kind := ActionKind(strings.ToLower(strings.TrimSpace(s)))
	switch kind {
	case ActionMute, ActionUnmute, ActionKick, ActionBan, ActionUnban,
		ActionLock, ActionUnlock, ActionBroadcast:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Action is a moderation request. Actor names who performed it in notices
// ("admin", "mod").
type Action struct {
	Kind  ActionKind
	Room  string
	User  string
	Text  string
	Actor string
}

// Validate checks that the fields required by the action kind are present.
func (a Action) Validate() error {
	switch a.Kind {
	case ActionMute, ActionUnmute, ActionKick, ActionBan, ActionUnban:
		if a.Room == "" || a.User == "" {
			return fmt.Errorf("%w: %s requires room and user", ErrBadRequest, a.Kind)
		}
	case ActionLock, ActionUnlock:
		if a.Room == "" {
			return fmt.Errorf("%w: %s requires room", ErrBadRequest, a.Kind)
		}
	case ActionBroadcast:
		if strings.TrimSpace(a.Text) == "" {
			return fmt.Errorf("%w: broadcast requires text", ErrBadRequest)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, a.Kind)
	}
	return nil
}

// ModerationResult reports what an action changed.
type ModerationResult struct {
	Disconnected int
}

// RoomView is a room's moderation state plus its current members.
type RoomView struct {
	RoomSnapshot
	Members []string `json:"members"`
}

// Snapshot is a consistent view of every known room.
type Snapshot struct {
	Rooms []RoomView `json:"rooms"`
}

type reply struct {
	result   ModerationResult
	snapshot Snapshot
	err      error
}

type request struct {
	fn    func(ctx context.Context) reply
	reply chan reply
}

// call runs fn on the event loop and waits for its reply.
func (h *Hub) call(ctx context.Context, fn func(ctx context.Context) reply) (reply, error) {
	req := &request{fn: fn, reply: make(chan reply, 1)}
	if err := h.Dispatch(ctx, &Command{Kind: commandCall, req: req}); err != nil {
		return reply{}, err
	}
	select {
	case r := <-req.reply:
		return r, r.err
	case <-h.stopped:
		return reply{}, ErrHubStopped
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
}

// Moderate applies a moderation action atomically with respect to every
// other event the hub processes. Privilege checks happen before this call.
func (h *Hub) Moderate(ctx context.Context, action Action) (ModerationResult, error) {
	if err := action.Validate(); err != nil {
		return ModerationResult{}, err
	}
	r, err := h.call(ctx, func(context.Context) reply {
		return reply{result: h.moderate(action)}
	})
	return r.result, err
}

// Snapshot returns every known room with its members and moderation flags.
func (h *Hub) Snapshot(ctx context.Context) (Snapshot, error) {
	r, err := h.call(ctx, func(context.Context) reply {
		return reply{snapshot: h.snapshot()}
	})
	return r.snapshot, err
}

func (h *Hub) moderate(a Action) ModerationResult {
	actor := a.Actor
	if actor == "" {
		actor = "admin"
	}
	h.logger.Info().
		Str("action", string(a.Kind)).
		Str("room", a.Room).
		Str("user", a.User).
		Str("actor", actor).
		Msg("moderation action")

	switch a.Kind {
	case ActionMute:
		h.registry.Mute(a.Room, a.User)
	case ActionUnmute:
		h.registry.Unmute(a.Room, a.User)
	case ActionKick:
		return ModerationResult{Disconnected: h.kick(a.Room, a.User, fmt.Sprintf("%s kicked by %s", a.User, actor))}
	case ActionBan:
		h.registry.Ban(a.Room, a.User)
		return ModerationResult{Disconnected: h.kick(a.Room, a.User, fmt.Sprintf("%s banned by %s", a.User, actor))}
	case ActionUnban:
		h.registry.Unban(a.Room, a.User)
	case ActionLock:
		h.registry.Lock(a.Room)
	case ActionUnlock:
		h.registry.Unlock(a.Room)
	case ActionBroadcast:
		h.broadcastAll(a.Text)
	}
	return ModerationResult{}
}

// kick announces notice to the room and force-disconnects every connection
// bound to (user, room) through the regular disconnect path.
func (h *Hub) kick(room, user, notice string) int {
	h.registry.Ensure(room)

	conns := h.directory.Connections(room, user)
	if len(conns) == 0 {
		return 0
	}
	h.toRoom(room, h.system(room, notice), nil)

	for _, id := range conns {
		c, ok := h.clients[id]
		if !ok {
			// Bound but never registered; still drop the association.
			h.directory.Dissociate(id)
			continue
		}
		h.drop(c)
		c.kick()
	}
	return len(conns)
}

func (h *Hub) broadcastAll(text string) {
	ev := h.system(BroadcastRoom, "[ADMIN]: "+strings.TrimSpace(text))
	for _, c := range h.clients {
		h.sendTo(c, ev)
	}
}

func (h *Hub) snapshot() Snapshot {
	names := h.registry.Rooms()
	occupied := h.directory.Occupied()
	views := make([]RoomView, 0, len(names))
	for _, name := range names {
		views = append(views, RoomView{
			RoomSnapshot: h.registry.Snapshot(name),
			Members:      occupied[name],
		})
	}
	return Snapshot{Rooms: views}
}
