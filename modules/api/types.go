package api

import "time"

// CreateChannelRequest is the API request to create a channel.
type CreateChannelRequest struct {
	Name   string `json:"name"`
	UserID string `json:"user_id"`
}

// MembershipRequest is the API request to join or leave a channel.
type MembershipRequest struct {
	UserID string `json:"user_id"`
}

// SendMessageRequest is the API request to post a message.
type SendMessageRequest struct {
	SenderID      string `json:"sender_id"`
	Text          string `json:"text"`
	AttachmentRef string `json:"attachment_ref,omitempty"`
}

// ChannelResponse is the API response for a channel. Subscribers counts live
// WebSocket subscriptions, not durable members.
type ChannelResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	Subscribers int       `json:"subscribers"`
}

// ChannelListResponse is the API response for listing channels.
type ChannelListResponse struct {
	Channels []ChannelResponse `json:"channels"`
}

// MemberListResponse is the API response for a channel's durable members.
type MemberListResponse struct {
	ChannelID string   `json:"channel_id"`
	Users     []string `json:"users"`
}

// MessageResponse is the API response for a message.
type MessageResponse struct {
	ID            int64     `json:"id"`
	ChannelID     string    `json:"channel_id"`
	SenderID      string    `json:"sender_id"`
	Text          string    `json:"text"`
	AttachmentRef string    `json:"attachment_ref,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// HistoryResponse is the API response for a history page, newest first.
// HasMore is true when the page came back full, so an older page may exist.
type HistoryResponse struct {
	ChannelID string            `json:"channel_id"`
	Messages  []MessageResponse `json:"messages"`
	HasMore   bool              `json:"has_more"`
}

// PresenceResponse is the API response for the online-user snapshot.
type PresenceResponse struct {
	Users []string  `json:"users"`
	At    time.Time `json:"at"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}
