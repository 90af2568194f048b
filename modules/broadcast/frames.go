package broadcast

import (
	"encoding/json"
	"fmt"
	"time"

	domain "github.com/example/channel-chat-demo/domain/chat"
)

// FrameType enumerates the closed set of frames pushed to clients. Handlers
// dispatch on this enum rather than free-form strings, so an unknown frame
// type is a decode error, not a silent drop.
type FrameType string

// Outbound frame types.
const (
	FrameConnected      FrameType = "connected"
	FrameIdentified     FrameType = "identified"
	FrameSubscribed     FrameType = "subscribed"
	FrameUnsubscribed   FrameType = "unsubscribed"
	FrameMessageCreated FrameType = "message_created"
	FrameMessageDeleted FrameType = "message_deleted"
	FramePresence       FrameType = "presence_changed"
	FrameError          FrameType = "error"
)

// Frame is the wire envelope for every server-to-client push.
type Frame struct {
	Type    FrameType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// MessagePayload carries a created message to room subscribers.
type MessagePayload struct {
	Message domain.Message `json:"message"`
}

// MessageDeletedPayload announces a soft-deleted message to room subscribers.
type MessageDeletedPayload struct {
	MessageID int64  `json:"message_id"`
	ChannelID string `json:"channel_id"`
}

// PresencePayload carries the full online-user snapshot. Sent to every
// connection on any presence transition.
type PresencePayload struct {
	Users []string  `json:"users"`
	At    time.Time `json:"at"`
}

// ConnectedPayload acknowledges a new connection.
type ConnectedPayload struct {
	ConnectionID string `json:"connection_id"`
}

// RoomPayload acknowledges a subscribe or unsubscribe.
type RoomPayload struct {
	RoomID string `json:"room_id"`
}

// EncodeFrame marshals a typed frame for the wire.
func EncodeFrame(frameType FrameType, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", frameType, err)
		}
		raw = data
	}
	data, err := json.Marshal(Frame{Type: frameType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s frame: %w", frameType, err)
	}
	return data, nil
}

// EncodeErrorFrame marshals an error frame. The connection stays open;
// errors are per-request, never fatal to the session.
func EncodeErrorFrame(message string) []byte {
	data, _ := json.Marshal(Frame{Type: FrameError, Error: message})
	return data
}
