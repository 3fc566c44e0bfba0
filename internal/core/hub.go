package core

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/socketchat-server/internal/store"
)

const (
	defaultRoom           = "general"
	anonymousUser         = "Anonymous"
	defaultPersistTimeout = 3 * time.Second
)

// HubOptions tunes a Hub. Zero values fall back to defaults.
type HubOptions struct {
	DefaultRoom    string
	PersistTimeout time.Duration
	Logger         *zerolog.Logger
	Now            func() time.Time
}

// Hub is the presence and messaging engine. All state is owned by the Run
// goroutine; every command and moderation request is handled to completion
// before the next one is read.
type Hub struct {
	log            store.MessageLog
	registry       *Registry
	directory      *Directory
	clients        map[string]*Client
	lastStamp      map[string]time.Time
	defaultRoom    string
	persistTimeout time.Duration
	now            func() time.Time
	logger         *zerolog.Logger

	commands    chan *Command
	disconnects chan *Client
	stopped     chan struct{}
}

// NewHub creates a hub that persists accepted messages to messageLog.
// A nil messageLog disables persistence.
func NewHub(messageLog store.MessageLog, opts HubOptions) *Hub {
	if opts.DefaultRoom == "" {
		opts.DefaultRoom = defaultRoom
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = defaultPersistTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}

	return &Hub{
		log:            messageLog,
		registry:       NewRegistry(),
		directory:      NewDirectory(),
		clients:        make(map[string]*Client),
		lastStamp:      make(map[string]time.Time),
		defaultRoom:    opts.DefaultRoom,
		persistTimeout: opts.PersistTimeout,
		now:            opts.Now,
		logger:         opts.Logger,
		commands:       make(chan *Command, 256),
		disconnects:    make(chan *Client),
		stopped:        make(chan struct{}),
	}
}

// DefaultRoom is the room used when a payload names none.
func (h *Hub) DefaultRoom() string {
	return h.defaultRoom
}

// Run processes commands until ctx is cancelled. Pending disconnects are
// always handled before the next queued command.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)

	for {
		select {
		case c := <-h.disconnects:
			h.drop(c)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return
		case c := <-h.disconnects:
			h.drop(c)
		case cmd := <-h.commands:
			h.handle(ctx, cmd)
		}
	}
}

// Register makes a connection known to the hub so it receives broadcasts.
func (h *Hub) Register(ctx context.Context, c *Client) error {
	return h.Dispatch(ctx, &Command{Kind: commandRegister, Client: c})
}

// Unregister disconnects a connection, running full cleanup. It bypasses the
// command queue and blocks until the event loop takes the request, so it can
// only fail with ErrHubStopped. Commands the connection queued earlier are
// discarded. It is safe to call more than once.
func (h *Hub) Unregister(c *Client) error {
	select {
	case h.disconnects <- c:
		return nil
	case <-h.stopped:
		return ErrHubStopped
	}
}

// Dispatch queues a client command for the event loop.
func (h *Hub) Dispatch(ctx context.Context, cmd *Command) error {
	select {
	case h.commands <- cmd:
		return nil
	case <-h.stopped:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) handle(ctx context.Context, cmd *Command) {
	if cmd == nil {
		return
	}
	if cmd.Kind == commandCall {
		cmd.req.reply <- cmd.req.fn(ctx)
		return
	}
	if cmd.Client == nil {
		return
	}
	if cmd.Client.detached {
		// Frames still in flight from a closed or kicked connection.
		return
	}
	h.clients[cmd.Client.ID] = cmd.Client

	switch cmd.Kind {
	case CommandJoin:
		h.join(cmd.Client, cmd.User, cmd.Room)
	case CommandLeave:
		h.leave(cmd.Client, cmd.Room)
	case CommandSend:
		h.send(ctx, cmd.Client, cmd.Text, cmd.User, cmd.Room)
	case CommandTyping:
		h.typing(cmd.Client, cmd.User, cmd.Room)
	case CommandStopTyping:
		h.stopTyping(cmd.Client, cmd.Room)
	}
}

func (h *Hub) join(c *Client, user, room string) {
	if h.registry.IsBanned(room, user) {
		h.logger.Debug().Str("conn_id", c.ID).Str("user", user).Str("room", room).Msg("join rejected: banned")
		h.notify(c, room, NoticeBanned)
		return
	}
	if h.registry.IsLocked(room) {
		h.logger.Debug().Str("conn_id", c.ID).Str("user", user).Str("room", room).Msg("join rejected: locked")
		h.notify(c, room, NoticeLocked)
		return
	}

	if prev, ok := h.directory.Lookup(c.ID); ok {
		if prev.Room == room && prev.User == user {
			// Already bound; refresh the joiner's view only.
			h.sendTo(c, &Event{Kind: EventUsers, Room: room, Users: h.directory.MembersOf(room)})
			return
		}
		h.unbind(c)
	}

	h.directory.Associate(c.ID, user, room)
	h.logger.Debug().Str("conn_id", c.ID).Str("user", user).Str("room", room).Msg("joined room")

	h.broadcastUsers(room)
	h.toRoom(room, h.system(room, user+" joined"), nil)
}

func (h *Hub) leave(c *Client, room string) {
	assoc, ok := h.directory.Lookup(c.ID)
	if !ok || assoc.Room != room {
		return
	}
	h.unbind(c)
}

// drop runs full cleanup for a connection that is going away and detaches it
// so that nothing it queued earlier can bind it again.
func (h *Hub) drop(c *Client) {
	if c == nil {
		return
	}
	if _, ok := h.directory.Lookup(c.ID); ok {
		h.unbind(c)
	}
	delete(h.clients, c.ID)
	c.detached = true
}

// unbind dissociates c and tells the old room. The leave notice is only sent
// once the user has no connection left in the room.
func (h *Hub) unbind(c *Client) {
	assoc, ok := h.directory.Dissociate(c.ID)
	if !ok {
		return
	}
	h.logger.Debug().Str("conn_id", c.ID).Str("user", assoc.User).Str("room", assoc.Room).Msg("left room")

	h.broadcastUsers(assoc.Room)
	if !h.directory.IsMember(assoc.Room, assoc.User) {
		h.toRoom(assoc.Room, h.system(assoc.Room, assoc.User+" left"), nil)
	}
}

func (h *Hub) send(ctx context.Context, c *Client, text, fallbackUser, fallbackRoom string) {
	user, room := fallbackUser, fallbackRoom
	if assoc, ok := h.directory.Lookup(c.ID); ok {
		user, room = assoc.User, assoc.Room
	} else {
		// Unbound connections may still post under the names they assert.
		if room == "" {
			room = h.defaultRoom
		}
		if user == "" {
			user = anonymousUser
		}
	}

	if h.registry.IsMuted(room, user) {
		h.logger.Debug().Str("conn_id", c.ID).Str("user", user).Str("room", room).Msg("message rejected: muted")
		h.notify(c, room, NoticeMuted)
		return
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	msg := Message{
		Room:      room,
		User:      user,
		Text:      text,
		CreatedAt: h.stamp(room),
	}
	msg.ID = h.persist(ctx, msg)

	h.toRoom(room, &Event{Kind: EventNewMessage, Room: room, User: user, Message: msg, Time: msg.CreatedAt}, nil)
}

// persist appends msg to the log, bounded by the persist timeout. Failures are
// logged and never block or repeat the fan-out.
func (h *Hub) persist(ctx context.Context, msg Message) int64 {
	if h.log == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(ctx, h.persistTimeout)
	defer cancel()

	record := &store.Message{
		Room:      msg.Room,
		User:      msg.User,
		Body:      msg.Text,
		CreatedAt: msg.CreatedAt,
	}
	if err := h.log.Append(ctx, record); err != nil {
		h.logger.Warn().Err(err).Str("room", msg.Room).Str("user", msg.User).Msg("failed to persist message")
		return 0
	}
	return record.ID
}

// stamp returns the current time, never earlier than the last stamp of room.
func (h *Hub) stamp(room string) time.Time {
	ts := h.now()
	if last, ok := h.lastStamp[room]; ok && ts.Before(last) {
		ts = last
	}
	h.lastStamp[room] = ts
	return ts
}

func (h *Hub) typing(c *Client, user, room string) {
	if room == "" {
		room = h.defaultRoom
	}
	h.toRoom(room, &Event{Kind: EventTyping, Room: room, User: user}, c)
}

func (h *Hub) stopTyping(c *Client, room string) {
	if room == "" {
		room = h.defaultRoom
	}
	h.toRoom(room, &Event{Kind: EventStopTyping, Room: room}, c)
}

func (h *Hub) system(room, text string) *Event {
	return &Event{Kind: EventSystem, Room: room, Text: text, Time: h.now()}
}

func (h *Hub) notify(c *Client, room, text string) {
	h.sendTo(c, h.system(room, text))
}

func (h *Hub) broadcastUsers(room string) {
	h.toRoom(room, &Event{Kind: EventUsers, Room: room, Users: h.directory.MembersOf(room)}, nil)
}

// toRoom delivers ev to every connection bound to room except skip.
func (h *Hub) toRoom(room string, ev *Event, skip *Client) {
	for _, id := range h.directory.ConnectionsIn(room) {
		c, ok := h.clients[id]
		if !ok || c == skip {
			continue
		}
		h.sendTo(c, ev)
	}
}

func (h *Hub) sendTo(c *Client, ev *Event) {
	if !c.deliver(ev) {
		h.logger.Warn().Str("conn_id", c.ID).Str("event", ev.Kind.String()).Msg("dropping event for slow client")
	}
}
