package api

import (
	"errors"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	domain "github.com/example/channel-chat-demo/domain/chat"
	"github.com/example/channel-chat-demo/modules/chat"
)

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes() {
	// Health check
	m.app.Get("/health", m.healthHandler)

	// WebSocket endpoint
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", websocket.New(m.handleWebSocket))

	// REST API v1
	api := m.app.Group("/api/v1")

	api.Get("/channels", m.listChannels)
	api.Post("/channels", m.createChannel)
	api.Get("/channels/:id", m.getChannel)
	api.Get("/channels/:id/members", m.listMembers)
	api.Post("/channels/:id/join", m.joinChannel)
	api.Post("/channels/:id/leave", m.leaveChannel)
	api.Get("/channels/:id/messages", m.getHistory)
	api.Post("/channels/:id/messages", m.sendMessage)
	api.Delete("/messages/:id", m.deleteMessage)
	api.Get("/presence", m.getPresence)
}

// sendDomainError maps a chat/store error to an HTTP response.
func (m *APIModule) sendDomainError(c *fiber.Ctx, err error) error {
	switch {
	case chat.IsValidationError(err):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrChannelNotFound), errors.Is(err, domain.ErrMessageNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrChannelNameTaken), errors.Is(err, domain.ErrAlreadyMember), errors.Is(err, domain.ErrNotMember):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrAuthorizationDenied):
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
			Error:   "authorization_denied",
			Message: err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "Unexpected error",
		})
	}
}

func toMessageResponse(msg domain.Message) MessageResponse {
	return MessageResponse{
		ID:            msg.ID,
		ChannelID:     msg.ChannelID,
		SenderID:      msg.SenderID,
		Text:          msg.Text,
		AttachmentRef: msg.AttachmentRef,
		CreatedAt:     msg.CreatedAt,
	}
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module":            "api",
			"connected_clients": m.hub.ClientCount(),
			"online_users":      len(m.hub.CurrentOnline()),
		},
	})
}

// listChannels handles GET /api/v1/channels.
func (m *APIModule) listChannels(c *fiber.Ctx) error {
	channels, err := m.chatModule.ListChannels(c.UserContext())
	if err != nil {
		return m.sendDomainError(c, err)
	}

	response := ChannelListResponse{
		Channels: make([]ChannelResponse, 0, len(channels)),
	}
	for _, ch := range channels {
		response.Channels = append(response.Channels, ChannelResponse{
			ID:          ch.ID,
			Name:        ch.Name,
			CreatedBy:   ch.CreatedBy,
			CreatedAt:   ch.CreatedAt,
			Subscribers: m.hub.RoomClientCount(ch.ID),
		})
	}

	return c.JSON(response)
}

// createChannel handles POST /api/v1/channels.
func (m *APIModule) createChannel(c *fiber.Ctx) error {
	var req CreateChannelRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	ch, err := m.chatModule.CreateChannel(c.UserContext(), req.Name, req.UserID)
	if err != nil {
		return m.sendDomainError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(ChannelResponse{
		ID:        ch.ID,
		Name:      ch.Name,
		CreatedBy: ch.CreatedBy,
		CreatedAt: ch.CreatedAt,
	})
}

// getChannel handles GET /api/v1/channels/:id.
func (m *APIModule) getChannel(c *fiber.Ctx) error {
	ch, err := m.chatModule.GetChannel(c.UserContext(), c.Params("id"))
	if err != nil {
		return m.sendDomainError(c, err)
	}

	return c.JSON(ChannelResponse{
		ID:          ch.ID,
		Name:        ch.Name,
		CreatedBy:   ch.CreatedBy,
		CreatedAt:   ch.CreatedAt,
		Subscribers: m.hub.RoomClientCount(ch.ID),
	})
}

// listMembers handles GET /api/v1/channels/:id/members.
func (m *APIModule) listMembers(c *fiber.Ctx) error {
	channelID := c.Params("id")
	users, err := m.chatModule.ListMembers(c.UserContext(), channelID)
	if err != nil {
		return m.sendDomainError(c, err)
	}

	return c.JSON(MemberListResponse{
		ChannelID: channelID,
		Users:     users,
	})
}

// joinChannel handles POST /api/v1/channels/:id/join.
func (m *APIModule) joinChannel(c *fiber.Ctx) error {
	var req MembershipRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	if err := m.chatModule.JoinChannel(c.UserContext(), c.Params("id"), req.UserID); err != nil {
		return m.sendDomainError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// leaveChannel handles POST /api/v1/channels/:id/leave.
func (m *APIModule) leaveChannel(c *fiber.Ctx) error {
	var req MembershipRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	if err := m.chatModule.LeaveChannel(c.UserContext(), c.Params("id"), req.UserID); err != nil {
		return m.sendDomainError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// getHistory handles GET /api/v1/channels/:id/messages?before=&limit=.
// Pages are newest first; before is the oldest message id the client already
// holds, 0 or absent for the newest page.
func (m *APIModule) getHistory(c *fiber.Ctx) error {
	channelID := c.Params("id")
	beforeID := int64(c.QueryInt("before", 0))
	limit := c.QueryInt("limit", 0)

	messages, err := m.chatModule.ListMessagesBefore(c.UserContext(), channelID, beforeID, limit)
	if err != nil {
		return m.sendDomainError(c, err)
	}

	effectiveLimit := limit
	if effectiveLimit <= 0 {
		effectiveLimit = chat.DefaultHistoryPageSize
	}
	if effectiveLimit > chat.MaxHistoryPageSize {
		effectiveLimit = chat.MaxHistoryPageSize
	}

	response := HistoryResponse{
		ChannelID: channelID,
		Messages:  make([]MessageResponse, 0, len(messages)),
		HasMore:   len(messages) == effectiveLimit,
	}
	for _, msg := range messages {
		response.Messages = append(response.Messages, toMessageResponse(msg))
	}

	return c.JSON(response)
}

// sendMessage handles POST /api/v1/channels/:id/messages.
func (m *APIModule) sendMessage(c *fiber.Ctx) error {
	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	msg, err := m.chatModule.SendMessage(c.UserContext(), req.SenderID, c.Params("id"), req.Text, req.AttachmentRef)
	if err != nil {
		return m.sendDomainError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toMessageResponse(*msg))
}

// deleteMessage handles DELETE /api/v1/messages/:id?user_id=.
func (m *APIModule) deleteMessage(c *fiber.Ctx) error {
	messageID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Message id must be an integer",
		})
	}

	userID := c.Query("user_id")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "user_id is required",
		})
	}

	if err := m.chatModule.DeleteMessage(c.UserContext(), int64(messageID), userID); err != nil {
		return m.sendDomainError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// getPresence handles GET /api/v1/presence.
func (m *APIModule) getPresence(c *fiber.Ctx) error {
	return c.JSON(PresenceResponse{
		Users: m.hub.CurrentOnline(),
		At:    time.Now().UTC(),
	})
}
