package chat

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/example/channel-chat-demo/domain/chat"
)

// Repository provides access to durable channel and message storage.
// It is the sole owner of persisted chat data; everything the live fan-out
// layer holds is transient and rebuildable from zero.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new chat repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateMessage persists a new message, assigning its id and timestamp.
func (r *Repository) CreateMessage(senderID, channelID, text, attachmentRef string) (*domain.Message, error) {
	msg := &domain.Message{
		ChannelID:     channelID,
		SenderID:      senderID,
		Text:          text,
		AttachmentRef: attachmentRef,
		CreatedAt:     time.Now().UTC(),
	}
	if err := r.db.Create(msg).Error; err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	return msg, nil
}

// ListMessagesBefore returns up to limit messages of a channel that are older
// than beforeID, newest first. beforeID == 0 means the newest page.
// Soft-deleted messages are excluded. A short page means end of history.
func (r *Repository) ListMessagesBefore(channelID string, beforeID int64, limit int) ([]domain.Message, error) {
	q := r.db.Where("channel_id = ?", channelID)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}

	var messages []domain.Message
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// GetMessage retrieves a message by id.
func (r *Repository) GetMessage(id int64) (*domain.Message, error) {
	var msg domain.Message
	if err := r.db.First(&msg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to find message: %w", err)
	}
	return &msg, nil
}

// DeleteMessage soft-deletes a message by id.
func (r *Repository) DeleteMessage(id int64) error {
	result := r.db.Delete(&domain.Message{}, "id = ?", id)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if result.RowsAffected == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

// CreateChannel creates a channel with a unique name. The creator becomes
// its first member.
func (r *Repository) CreateChannel(name, createdBy string) (*domain.Channel, error) {
	channel := &domain.Channel{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Channel{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check channel name: %w", err)
		}
		if count > 0 {
			return domain.ErrChannelNameTaken
		}
		if err := tx.Create(channel).Error; err != nil {
			return fmt.Errorf("failed to create channel: %w", err)
		}
		member := &domain.ChannelMember{
			ChannelID: channel.ID,
			UserID:    createdBy,
			JoinedAt:  channel.CreatedAt,
		}
		if err := tx.Create(member).Error; err != nil {
			return fmt.Errorf("failed to add creator as member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return channel, nil
}

// GetChannel retrieves a channel by id.
func (r *Repository) GetChannel(id string) (*domain.Channel, error) {
	var channel domain.Channel
	if err := r.db.First(&channel, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrChannelNotFound
		}
		return nil, fmt.Errorf("failed to find channel: %w", err)
	}
	return &channel, nil
}

// ListChannels returns all channels, newest first.
func (r *Repository) ListChannels() ([]domain.Channel, error) {
	var channels []domain.Channel
	if err := r.db.Order("created_at DESC").Find(&channels).Error; err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	return channels, nil
}

// AddMember adds a user to a channel's durable membership.
func (r *Repository) AddMember(channelID, userID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Channel{}).Where("id = ?", channelID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check channel: %w", err)
		}
		if count == 0 {
			return domain.ErrChannelNotFound
		}
		if err := tx.Model(&domain.ChannelMember{}).
			Where("channel_id = ? AND user_id = ?", channelID, userID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check membership: %w", err)
		}
		if count > 0 {
			return domain.ErrAlreadyMember
		}
		member := &domain.ChannelMember{
			ChannelID: channelID,
			UserID:    userID,
			JoinedAt:  time.Now().UTC(),
		}
		if err := tx.Create(member).Error; err != nil {
			return fmt.Errorf("failed to add member: %w", err)
		}
		return nil
	})
}

// RemoveMember removes a user from a channel's durable membership.
func (r *Repository) RemoveMember(channelID, userID string) error {
	result := r.db.Delete(&domain.ChannelMember{}, "channel_id = ? AND user_id = ?", channelID, userID)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotMember
	}
	return nil
}

// IsMember reports whether a user belongs to a channel.
func (r *Repository) IsMember(userID, channelID string) (bool, error) {
	var count int64
	if err := r.db.Model(&domain.ChannelMember{}).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return count > 0, nil
}

// ListMembers returns the user ids of a channel's members.
func (r *Repository) ListMembers(channelID string) ([]string, error) {
	var members []domain.ChannelMember
	if err := r.db.Order("joined_at").Find(&members, "channel_id = ?", channelID).Error; err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	userIDs := make([]string, 0, len(members))
	for _, m := range members {
		userIDs = append(userIDs, m.UserID)
	}
	return userIDs, nil
}
