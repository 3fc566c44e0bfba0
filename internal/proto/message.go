package proto

import "encoding/json"

// TimeLayout is the wire format of every "ts" field.
const TimeLayout = "2006-01-02 15:04:05"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoin       = "join"
	InboundTypeLeave      = "leave"
	InboundTypeSend       = "send_message"
	InboundTypeTyping     = "typing"
	InboundTypeStopTyping = "stop_typing"

	OutboundTypeSystem     = "system"
	OutboundTypeNewMessage = "new_message"
	OutboundTypeUsers      = "users"
	OutboundTypeTyping     = "typing"
	OutboundTypeStopTyping = "stop_typing"
	OutboundTypeError      = "error"
)

// JoinData binds the connection to a room under a display name.
type JoinData struct {
	User string `json:"user"`
	Room string `json:"room"`
}

// LeaveData unbinds the connection from a room.
type LeaveData struct {
	User string `json:"user"`
	Room string `json:"room"`
}

// SendData is a chat message from the client. User and Room are only used
// when the connection has not joined a room.
type SendData struct {
	Room    string `json:"room"`
	User    string `json:"user"`
	Message string `json:"message"`
}

// TypingData is an advisory typing indicator.
type TypingData struct {
	Room string `json:"room"`
	User string `json:"user"`
}

// StopTypingData clears a typing indicator.
type StopTypingData struct {
	Room string `json:"room"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// SystemData is a server notice. Room "all" marks a global broadcast.
type SystemData struct {
	Room string `json:"room"`
	Text string `json:"text"`
	TS   string `json:"ts"`
}

// NewMessageData is an accepted chat message.
type NewMessageData struct {
	ID      int64  `json:"id,omitempty"`
	Room    string `json:"room"`
	User    string `json:"user"`
	Message string `json:"message"`
	TS      string `json:"ts"`
}

// UsersData is the current member list of a room.
type UsersData struct {
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

// HistoryEntry is one element of the /history response.
type HistoryEntry struct {
	User    string `json:"user"`
	Message string `json:"message"`
	TS      string `json:"ts"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
