package http

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/vovakirdan/socketchat-server/internal/core"
	"github.com/vovakirdan/socketchat-server/internal/proto"
)

// anonymousTyper is shown when a typing frame carries no user.
const anonymousTyper = "Anon"

// inboundLimits bounds the values clients may assert.
type inboundLimits struct {
	defaultRoom   string
	maxNameLength int
}

func inboundToCommand(client *core.Client, inbound proto.Inbound, limits inboundLimits) (*core.Command, *core.CoreError) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if err := decodeData(inbound.Data, &join); err != nil {
			return nil, badRequest("invalid join payload")
		}
		user, userOK := cleanName(join.User, limits.maxNameLength)
		room, roomOK := cleanName(join.Room, limits.maxNameLength)
		if user == "" || room == "" {
			return nil, badRequest("user and room are required")
		}
		if !userOK || !roomOK {
			return nil, badRequest("user or room name too long")
		}
		return &core.Command{Kind: core.CommandJoin, Client: client, User: user, Room: room}, nil
	case proto.InboundTypeLeave:
		var leave proto.LeaveData
		if err := decodeData(inbound.Data, &leave); err != nil {
			return nil, badRequest("invalid leave payload")
		}
		room, ok := cleanName(leave.Room, limits.maxNameLength)
		if room == "" {
			return nil, badRequest("room is required")
		}
		if !ok {
			return nil, badRequest("room name too long")
		}
		user, _ := cleanName(leave.User, limits.maxNameLength)
		return &core.Command{Kind: core.CommandLeave, Client: client, User: user, Room: room}, nil
	case proto.InboundTypeSend:
		var msg proto.SendData
		if err := decodeData(inbound.Data, &msg); err != nil {
			return nil, badRequest("invalid send_message payload")
		}
		room, roomOK := cleanName(msg.Room, limits.maxNameLength)
		user, userOK := cleanName(msg.User, limits.maxNameLength)
		if !roomOK || !userOK {
			return nil, badRequest("user or room name too long")
		}
		if room == "" {
			room = limits.defaultRoom
		}
		return &core.Command{Kind: core.CommandSend, Client: client, User: user, Room: room, Text: msg.Message}, nil
	case proto.InboundTypeTyping:
		var typing proto.TypingData
		if err := decodeData(inbound.Data, &typing); err != nil {
			return nil, badRequest("invalid typing payload")
		}
		room, roomOK := cleanName(typing.Room, limits.maxNameLength)
		user, userOK := cleanName(typing.User, limits.maxNameLength)
		if !roomOK || !userOK {
			return nil, badRequest("user or room name too long")
		}
		if room == "" {
			room = limits.defaultRoom
		}
		if user == "" {
			user = anonymousTyper
		}
		return &core.Command{Kind: core.CommandTyping, Client: client, User: user, Room: room}, nil
	case proto.InboundTypeStopTyping:
		var stop proto.StopTypingData
		if err := decodeData(inbound.Data, &stop); err != nil {
			return nil, badRequest("invalid stop_typing payload")
		}
		room, ok := cleanName(stop.Room, limits.maxNameLength)
		if !ok {
			return nil, badRequest("room name too long")
		}
		if room == "" {
			room = limits.defaultRoom
		}
		return &core.Command{Kind: core.CommandStopTyping, Client: client, Room: room}, nil
	default:
		return nil, core.NewError(core.ErrCodeUnknownType, "unknown message type")
	}
}

// decodeData unmarshals a payload; a missing payload decodes as empty.
func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, v)
}

// cleanName trims s and reports whether it fits within limit runes.
func cleanName(s string, limit int) (string, bool) {
	s = strings.TrimSpace(s)
	if limit > 0 && utf8.RuneCountInString(s) > limit {
		return s, false
	}
	return s, true
}

func badRequest(msg string) *core.CoreError {
	return core.NewError(core.ErrCodeBadRequest, msg)
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventSystem:
		return proto.Outbound{
			Type: proto.OutboundTypeSystem,
			Data: proto.SystemData{
				Room: event.Room,
				Text: event.Text,
				TS:   event.Time.Format(proto.TimeLayout),
			},
		}
	case core.EventNewMessage:
		return proto.Outbound{
			Type: proto.OutboundTypeNewMessage,
			Data: proto.NewMessageData{
				ID:      event.Message.ID,
				Room:    event.Message.Room,
				User:    event.Message.User,
				Message: event.Message.Text,
				TS:      event.Message.CreatedAt.Format(proto.TimeLayout),
			},
		}
	case core.EventUsers:
		users := event.Users
		if users == nil {
			users = []string{}
		}
		return proto.Outbound{
			Type: proto.OutboundTypeUsers,
			Data: proto.UsersData{Room: event.Room, Users: users},
		}
	case core.EventTyping:
		return proto.Outbound{
			Type: proto.OutboundTypeTyping,
			Data: proto.TypingData{Room: event.Room, User: event.User},
		}
	case core.EventStopTyping:
		return proto.Outbound{
			Type: proto.OutboundTypeStopTyping,
			Data: proto.StopTypingData{Room: event.Room},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Data: proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type: proto.OutboundTypeError,
			Data: proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: event.Kind.String()}
	}
}
