package sseserver

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	EventConnected  = "connected"
	EventNewMessage = "newMessage"
	EventUserStatus = "userStatus"
	EventError      = "error"
)

// Event is one logical unit on the stream. Exactly one kind is active,
// carried in Type; Data holds the kind's payload.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// HeartbeatFrame is an SSE comment. Parsers that only look at lines
// prefixed "data: " never see it as a data event.
var HeartbeatFrame = []byte(": heartbeat\n\n")

func ConnectedEvent(roomID uint64, userID string) Event {
	return Event{
		Type: EventConnected,
		Data: map[string]any{
			"roomId":    roomID,
			"userId":    userID,
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

func NewMessageEvent(message any) Event {
	return Event{
		Type: EventNewMessage,
		Data: message,
	}
}

func UserStatusEvent(userID string, status string) Event {
	return Event{
		Type: EventUserStatus,
		Data: map[string]any{
			"userId":    userID,
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

func ErrorEvent(detail string) Event {
	return Event{
		Type: EventError,
		Data: map[string]any{
			"message": detail,
		},
	}
}

// Frame serializes the event to its wire form: "data: <json>\n\n".
func (e Event) Frame() ([]byte, error) {
	marshalled, err := json.Marshal(e)

	if err != nil {
		return nil, err
	}

	return []byte(fmt.Sprintf("data: %s\n\n", marshalled)), nil
}
