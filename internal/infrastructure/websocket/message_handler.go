package websocket

import (
	"encoding/json"
	"time"
)

const (
	MessageTypePing  = "ping"
	MessageTypePong  = "pong"
	MessageTypeError = "error"
)

// WSMessage is the frame format on the push channel. Server events use
// the event type (e.g. "negotiation.message_sent") as Type.
type WSMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

func NewFrame(messageType string, data interface{}, at time.Time) ([]byte, error) {
	return json.Marshal(WSMessage{
		Type:      messageType,
		Data:      data,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
	})
}

// HandleInbound answers a client frame. Only ping is understood; state
// changes go through the HTTP API.
func HandleInbound(raw []byte) []byte {
	var msg WSMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return errorFrame("malformed frame")
	}

	switch msg.Type {
	case MessageTypePing:
		frame, _ := NewFrame(MessageTypePong, nil, time.Now())
		return frame
	default:
		return errorFrame("push channel is read-only, use the HTTP API")
	}
}

func errorFrame(reason string) []byte {
	frame, _ := NewFrame(MessageTypeError, map[string]string{"message": reason}, time.Now())
	return frame
}
