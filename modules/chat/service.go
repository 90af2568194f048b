package chat

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	domain "github.com/example/channel-chat-demo/domain/chat"
)

// DefaultHistoryPageSize is used when a history request does not specify a
// limit.
const DefaultHistoryPageSize = 50

// MaxHistoryPageSize caps a single history page.
const MaxHistoryPageSize = 200

// Service provides validated access to the chat store.
type Service struct {
	repo       *Repository
	membership singleflight.Group
}

// NewService creates a new chat service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// CreateChannel creates a channel with a unique name.
func (s *Service) CreateChannel(_ context.Context, name, createdBy string) (*domain.Channel, error) {
	if err := ValidateChannelName(name); err != nil {
		return nil, err
	}
	if createdBy == "" {
		return nil, ErrSenderRequired
	}
	return s.repo.CreateChannel(name, createdBy)
}

// GetChannel retrieves a channel by id.
func (s *Service) GetChannel(_ context.Context, channelID string) (*domain.Channel, error) {
	return s.repo.GetChannel(channelID)
}

// ListChannels returns all channels, newest first.
func (s *Service) ListChannels(_ context.Context) ([]domain.Channel, error) {
	return s.repo.ListChannels()
}

// ListMembers returns the user ids of a channel's members.
func (s *Service) ListMembers(_ context.Context, channelID string) ([]string, error) {
	if _, err := s.repo.GetChannel(channelID); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(channelID)
}

// JoinChannel adds a user to a channel's durable membership.
func (s *Service) JoinChannel(_ context.Context, channelID, userID string) error {
	if userID == "" {
		return ErrSenderRequired
	}
	return s.repo.AddMember(channelID, userID)
}

// LeaveChannel removes a user from a channel's durable membership.
func (s *Service) LeaveChannel(_ context.Context, channelID, userID string) error {
	return s.repo.RemoveMember(channelID, userID)
}

// IsChannelMember reports whether a user belongs to a channel. Concurrent
// lookups for the same (user, channel) pair are collapsed into one query,
// since a reconnect storm subscribes many sessions at once.
func (s *Service) IsChannelMember(_ context.Context, userID, channelID string) (bool, error) {
	key := userID + "\x00" + channelID
	v, err, _ := s.membership.Do(key, func() (any, error) {
		return s.repo.IsMember(userID, channelID)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// CreateMessage validates and persists a message. The caller must only
// broadcast after this returns without error.
func (s *Service) CreateMessage(_ context.Context, senderID, channelID, text, attachmentRef string) (*domain.Message, error) {
	if senderID == "" {
		return nil, ErrSenderRequired
	}
	if channelID == "" {
		return nil, ErrChannelRequired
	}
	if err := ValidateMessageText(text, attachmentRef); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetChannel(channelID); err != nil {
		return nil, err
	}
	return s.repo.CreateMessage(senderID, channelID, text, attachmentRef)
}

// ListMessagesBefore returns up to limit messages older than beforeID,
// newest first. beforeID == 0 means the newest page.
func (s *Service) ListMessagesBefore(_ context.Context, channelID string, beforeID int64, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryPageSize
	}
	if limit > MaxHistoryPageSize {
		limit = MaxHistoryPageSize
	}
	if _, err := s.repo.GetChannel(channelID); err != nil {
		return nil, err
	}
	return s.repo.ListMessagesBefore(channelID, beforeID, limit)
}

// DeleteMessage soft-deletes a message. Only the original sender may delete.
func (s *Service) DeleteMessage(_ context.Context, messageID int64, requesterID string) (*domain.Message, error) {
	msg, err := s.repo.GetMessage(messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != requesterID {
		return nil, fmt.Errorf("delete message %d: %w", messageID, domain.ErrAuthorizationDenied)
	}
	if err := s.repo.DeleteMessage(messageID); err != nil {
		return nil, err
	}
	return msg, nil
}
