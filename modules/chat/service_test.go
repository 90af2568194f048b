package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	domain "github.com/example/channel-chat-demo/domain/chat"
)

func setupTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(NewRepository(setupTestDB(t)))
}

func TestService_CreateChannelValidation(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		channel   string
		createdBy string
		wantErr   error
	}{
		{"empty name", "", "alice", ErrChannelNameEmpty},
		{"name too long", strings.Repeat("x", MaxChannelNameLength+1), "alice", ErrChannelNameTooLong},
		{"missing creator", "general", "", ErrSenderRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateChannel(ctx, tt.channel, tt.createdBy)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateChannel() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := svc.CreateChannel(ctx, "general", "alice"); err != nil {
		t.Fatalf("CreateChannel() error = %v", err)
	}
}

func TestService_CreateMessageValidation(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	channel, err := svc.CreateChannel(ctx, "general", "alice")
	if err != nil {
		t.Fatalf("CreateChannel() error = %v", err)
	}

	tests := []struct {
		name          string
		senderID      string
		channelID     string
		text          string
		attachmentRef string
		wantErr       error
	}{
		{"missing sender", "", channel.ID, "hi", "", ErrSenderRequired},
		{"missing channel", "alice", "", "hi", "", ErrChannelRequired},
		{"empty without attachment", "alice", channel.ID, "", "", ErrMessageEmpty},
		{"text too long", "alice", channel.ID, strings.Repeat("x", MaxMessageLength+1), "", ErrMessageTooLong},
		{"attachment ref too long", "alice", channel.ID, "hi", strings.Repeat("x", MaxAttachmentRefLength+1), ErrAttachmentRefTooLong},
		{"unknown channel", "alice", "missing", "hi", "", domain.ErrChannelNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateMessage(ctx, tt.senderID, tt.channelID, tt.text, tt.attachmentRef)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateMessage() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("attachment without text", func(t *testing.T) {
		msg, err := svc.CreateMessage(ctx, "alice", channel.ID, "", "blob://attachment-1")
		if err != nil {
			t.Fatalf("CreateMessage() error = %v", err)
		}
		if msg.AttachmentRef != "blob://attachment-1" {
			t.Errorf("expected attachment ref to persist, got %q", msg.AttachmentRef)
		}
	})
}

func TestService_ListMessagesBeforeClampsLimit(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	channel, err := svc.CreateChannel(ctx, "general", "alice")
	if err != nil {
		t.Fatalf("CreateChannel() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.CreateMessage(ctx, "alice", channel.ID, "hello", ""); err != nil {
			t.Fatalf("CreateMessage() error = %v", err)
		}
	}

	page, err := svc.ListMessagesBefore(ctx, channel.ID, 0, 0)
	if err != nil {
		t.Fatalf("ListMessagesBefore() error = %v", err)
	}
	if len(page) != 3 {
		t.Errorf("expected defaulted limit to return all 3 messages, got %d", len(page))
	}

	if _, err := svc.ListMessagesBefore(ctx, "missing", 0, 10); !errors.Is(err, domain.ErrChannelNotFound) {
		t.Errorf("expected ErrChannelNotFound, got %v", err)
	}
}

func TestService_DeleteMessageAuthorization(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	channel, err := svc.CreateChannel(ctx, "general", "alice")
	if err != nil {
		t.Fatalf("CreateChannel() error = %v", err)
	}
	msg, err := svc.CreateMessage(ctx, "alice", channel.ID, "hello", "")
	if err != nil {
		t.Fatalf("CreateMessage() error = %v", err)
	}

	if _, err := svc.DeleteMessage(ctx, msg.ID, "bob"); !errors.Is(err, domain.ErrAuthorizationDenied) {
		t.Errorf("expected ErrAuthorizationDenied for non-sender, got %v", err)
	}

	deleted, err := svc.DeleteMessage(ctx, msg.ID, "alice")
	if err != nil {
		t.Fatalf("DeleteMessage() error = %v", err)
	}
	if deleted.ChannelID != channel.ID {
		t.Errorf("expected deleted message to carry its channel id")
	}

	if _, err := svc.DeleteMessage(ctx, msg.ID, "alice"); !errors.Is(err, domain.ErrMessageNotFound) {
		t.Errorf("expected ErrMessageNotFound after delete, got %v", err)
	}
}

func TestService_IsChannelMemberConcurrent(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	channel, err := svc.CreateChannel(ctx, "general", "alice")
	if err != nil {
		t.Fatalf("CreateChannel() error = %v", err)
	}

	// A reconnect storm checks the same pair from many goroutines at once.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			member, err := svc.IsChannelMember(ctx, "alice", channel.ID)
			if err != nil {
				t.Errorf("IsChannelMember() error = %v", err)
				return
			}
			if !member {
				t.Error("expected alice to be a member")
			}
		}()
	}
	wg.Wait()

	member, err := svc.IsChannelMember(ctx, "bob", channel.ID)
	if err != nil {
		t.Fatalf("IsChannelMember() error = %v", err)
	}
	if member {
		t.Error("expected bob to not be a member")
	}
}
