package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vovakirdan/socketchat-server/internal/proto"
)

// frame is an outbound envelope with its payload left undecoded.
type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// render formats a server frame as one terminal line.
func render(f frame) string {
	switch f.Type {
	case proto.OutboundTypeSystem:
		var evt proto.SystemData
		if err := json.Unmarshal(f.Data, &evt); err != nil {
			return decodeFailure(f, err)
		}
		return fmt.Sprintf("%s [%s] * %s", evt.TS, evt.Room, evt.Text)
	case proto.OutboundTypeNewMessage:
		var evt proto.NewMessageData
		if err := json.Unmarshal(f.Data, &evt); err != nil {
			return decodeFailure(f, err)
		}
		return fmt.Sprintf("%s [%s] %s: %s", evt.TS, evt.Room, evt.User, evt.Message)
	case proto.OutboundTypeUsers:
		var evt proto.UsersData
		if err := json.Unmarshal(f.Data, &evt); err != nil {
			return decodeFailure(f, err)
		}
		return fmt.Sprintf("[%s] online: %s", evt.Room, strings.Join(evt.Users, ", "))
	case proto.OutboundTypeTyping:
		var evt proto.TypingData
		if err := json.Unmarshal(f.Data, &evt); err != nil {
			return decodeFailure(f, err)
		}
		return fmt.Sprintf("[%s] %s is typing...", evt.Room, evt.User)
	case proto.OutboundTypeStopTyping:
		return ""
	case proto.OutboundTypeError:
		var evt proto.Error
		if err := json.Unmarshal(f.Data, &evt); err != nil {
			return decodeFailure(f, err)
		}
		return fmt.Sprintf("error %s: %s", evt.Code, evt.Msg)
	default:
		return fmt.Sprintf("type=%s data=%s", f.Type, f.Data)
	}
}

func decodeFailure(f frame, err error) string {
	return fmt.Sprintf("bad %s frame: %v", f.Type, err)
}
