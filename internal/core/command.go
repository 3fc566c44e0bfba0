package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoin binds the connection to a room under a display name.
	CommandJoin CommandKind = iota
	// CommandLeave unbinds the connection from a room.
	CommandLeave
	// CommandSend posts a chat message.
	CommandSend
	// CommandTyping announces that the user is typing.
	CommandTyping
	// CommandStopTyping clears the typing indicator.
	CommandStopTyping

	commandRegister
	commandCall
)

// Command represents an action requested by a client. User and Room are the
// values asserted in the client's payload.
type Command struct {
	Kind   CommandKind
	Client *Client
	User   string
	Room   string
	Text   string

	req *request
}
