package core

import "sort"

// Association binds a connection to the user it speaks as and the room it is in.
type Association struct {
	User string
	Room string
}

// Directory maps live connections to their (user, room) association and
// keeps room membership in step with it. A user is a member of a room while
// at least one connection is associated with that (user, room) pair.
// Directory is not safe for concurrent use; the hub owns it.
type Directory struct {
	conns   map[string]Association
	rooms   map[string]map[string]struct{} // room -> connections
	members map[string]map[string]int      // room -> user -> connection count
}

// NewDirectory constructs an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		conns:   make(map[string]Association),
		rooms:   make(map[string]map[string]struct{}),
		members: make(map[string]map[string]int),
	}
}

// Associate binds conn to (user, room), dropping any previous association first.
func (d *Directory) Associate(conn, user, room string) {
	d.Dissociate(conn)

	d.conns[conn] = Association{User: user, Room: room}
	conns, ok := d.rooms[room]
	if !ok {
		conns = make(map[string]struct{})
		d.rooms[room] = conns
	}
	conns[conn] = struct{}{}

	users, ok := d.members[room]
	if !ok {
		users = make(map[string]int)
		d.members[room] = users
	}
	users[user]++
}

// Dissociate removes the association of conn and returns it.
func (d *Directory) Dissociate(conn string) (Association, bool) {
	assoc, ok := d.conns[conn]
	if !ok {
		return Association{}, false
	}
	delete(d.conns, conn)

	if conns, ok := d.rooms[assoc.Room]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(d.rooms, assoc.Room)
		}
	}
	if users, ok := d.members[assoc.Room]; ok {
		users[assoc.User]--
		if users[assoc.User] <= 0 {
			delete(users, assoc.User)
		}
		if len(users) == 0 {
			delete(d.members, assoc.Room)
		}
	}
	return assoc, true
}

// Lookup returns the association of conn, if any.
func (d *Directory) Lookup(conn string) (Association, bool) {
	assoc, ok := d.conns[conn]
	return assoc, ok
}

// IsMember reports whether user currently has a connection in room.
func (d *Directory) IsMember(room, user string) bool {
	return d.members[room][user] > 0
}

// MembersOf returns the users present in room, sorted.
func (d *Directory) MembersOf(room string) []string {
	users := d.members[room]
	out := make([]string, 0, len(users))
	for u := range users {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// ConnectionsIn returns every connection bound to room, sorted.
func (d *Directory) ConnectionsIn(room string) []string {
	conns := d.rooms[room]
	out := make([]string, 0, len(conns))
	for conn := range conns {
		out = append(out, conn)
	}
	sort.Strings(out)
	return out
}

// Connections returns the connections bound to (user, room), sorted.
func (d *Directory) Connections(room, user string) []string {
	var out []string
	for conn := range d.rooms[room] {
		if d.conns[conn].User == user {
			out = append(out, conn)
		}
	}
	sort.Strings(out)
	return out
}

// Occupied returns members of every room that has at least one member.
func (d *Directory) Occupied() map[string][]string {
	out := make(map[string][]string, len(d.members))
	for room := range d.members {
		out[room] = d.MembersOf(room)
	}
	return out
}
