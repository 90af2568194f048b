package events

import (
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/channel-chat-demo/domain/chat"
)

// MessageCreatedEvent is emitted by the chat module after a message has been
// persisted. Broadcast happens only on this event, so a failed write never
// reaches subscribers.
type MessageCreatedEvent struct {
	Message chat.Message `json:"message"`
}

// MessageDeletedEvent is emitted after a message has been soft-deleted.
type MessageDeletedEvent struct {
	MessageID int64  `json:"message_id"`
	ChannelID string `json:"channel_id"`
}

// Event definitions for the chat domain.
var (
	MessageCreatedV1 = helper.EventDefinition[MessageCreatedEvent](
		"chat",
		"MessageCreated",
		"v1",
	)

	MessageDeletedV1 = helper.EventDefinition[MessageDeletedEvent](
		"chat",
		"MessageDeleted",
		"v1",
	)
)
