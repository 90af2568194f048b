package chat

import (
	"time"

	"gorm.io/gorm"
)

// Message is an immutable chat record. The store assigns ID and CreatedAt on
// creation; ID is monotonically increasing and acts as the tiebreak for
// messages sharing a timestamp, so (CreatedAt, ID) totally orders a channel.
type Message struct {
	ID            int64          `gorm:"primarykey" json:"id"`
	ChannelID     string         `gorm:"size:36;not null;index:idx_messages_channel_created,priority:1" json:"channel_id"`
	SenderID      string         `gorm:"size:36;not null" json:"sender_id"`
	Text          string         `gorm:"size:5000" json:"text"`
	AttachmentRef string         `gorm:"size:500" json:"attachment_ref,omitempty"`
	CreatedAt     time.Time      `gorm:"index:idx_messages_channel_created,priority:2" json:"created_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the table name for Message model.
func (Message) TableName() string {
	return "messages"
}

// Before reports whether m sorts before other in the channel ordering key
// (creation timestamp, then ID).
func (m Message) Before(other Message) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.ID < other.ID
	}
	return m.CreatedAt.Before(other.CreatedAt)
}

// Channel is a named chat channel. Channel membership (who may read/write)
// is durable and distinct from live room subscriptions, which are
// session-scoped and rebuilt from zero on restart.
type Channel struct {
	ID        string    `gorm:"primarykey;size:36" json:"id"`
	Name      string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	CreatedBy string    `gorm:"size:36;not null" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the table name for Channel model.
func (Channel) TableName() string {
	return "channels"
}

// ChannelMember records durable membership of a user in a channel.
type ChannelMember struct {
	ChannelID string    `gorm:"primarykey;size:36" json:"channel_id"`
	UserID    string    `gorm:"primarykey;size:36" json:"user_id"`
	JoinedAt  time.Time `json:"joined_at"`
}

// TableName returns the table name for ChannelMember model.
func (ChannelMember) TableName() string {
	return "channel_members"
}
