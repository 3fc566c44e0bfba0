package core

import "sort"

// RoomState holds moderation state of a single room.
type RoomState struct {
	Name   string
	Locked bool
	banned map[string]struct{}
	muted  map[string]struct{}
}

func newRoomState(name string) *RoomState {
	return &RoomState{
		Name:   name,
		banned: make(map[string]struct{}),
		muted:  make(map[string]struct{}),
	}
}

// RoomSnapshot is a read-only copy of a room's moderation state.
type RoomSnapshot struct {
	Name   string   `json:"name"`
	Locked bool     `json:"locked"`
	Banned []string `json:"banned"`
	Muted  []string `json:"muted"`
}

// Registry owns per-room moderation state. Rooms are created on first
// reference and live for the lifetime of the registry.
// Registry is not safe for concurrent use; the hub owns it.
type Registry struct {
	rooms map[string]*RoomState
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*RoomState)}
}

// Ensure returns the state of room, creating it if absent.
func (r *Registry) Ensure(room string) *RoomState {
	st, ok := r.rooms[room]
	if !ok {
		st = newRoomState(room)
		r.rooms[room] = st
	}
	return st
}

// IsBanned reports whether user is banned from room.
func (r *Registry) IsBanned(room, user string) bool {
	_, ok := r.Ensure(room).banned[user]
	return ok
}

// IsMuted reports whether user is muted in room.
func (r *Registry) IsMuted(room, user string) bool {
	_, ok := r.Ensure(room).muted[user]
	return ok
}

// IsLocked reports whether room refuses new joins.
func (r *Registry) IsLocked(room string) bool {
	return r.Ensure(room).Locked
}

// Ban adds user to the ban list of room.
func (r *Registry) Ban(room, user string) {
	r.Ensure(room).banned[user] = struct{}{}
}

// Unban lifts a ban. Unknown users are ignored.
func (r *Registry) Unban(room, user string) {
	delete(r.Ensure(room).banned, user)
}

// Mute silences user in room.
func (r *Registry) Mute(room, user string) {
	r.Ensure(room).muted[user] = struct{}{}
}

// Unmute lets user speak in room again.
func (r *Registry) Unmute(room, user string) {
	delete(r.Ensure(room).muted, user)
}

// Lock closes room to new joins. Current members stay.
func (r *Registry) Lock(room string) {
	r.Ensure(room).Locked = true
}

// Unlock reopens room.
func (r *Registry) Unlock(room string) {
	r.Ensure(room).Locked = false
}

// Rooms returns the names of all known rooms, sorted.
func (r *Registry) Rooms() []string {
	names := make([]string, 0, len(r.rooms))
	for name := range r.rooms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot copies the moderation state of room.
func (r *Registry) Snapshot(room string) RoomSnapshot {
	st := r.Ensure(room)
	return RoomSnapshot{
		Name:   st.Name,
		Locked: st.Locked,
		Banned: sortedKeys(st.banned),
		Muted:  sortedKeys(st.muted),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
