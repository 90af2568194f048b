package broadcast

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/channel-chat-demo/events"
)

// BroadcastModule consumes persisted-message events and fans them out to the
// live WebSocket sessions subscribed to the message's room.
type BroadcastModule struct {
	hub *Hub
}

// Compile-time interface checks.
var _ mono.Module = (*BroadcastModule)(nil)
var _ mono.EventConsumerModule = (*BroadcastModule)(nil)
var _ mono.HealthCheckableModule = (*BroadcastModule)(nil)

// NewModule creates a new BroadcastModule with an empty hub.
func NewModule() *BroadcastModule {
	return &BroadcastModule{
		hub: NewHub(),
	}
}

// Name returns the module name.
func (m *BroadcastModule) Name() string {
	return "broadcast"
}

// Start initializes the module. The hub carries no goroutines of its own;
// fan-out runs on the event consumer's goroutine.
func (m *BroadcastModule) Start(_ context.Context) error {
	log.Println("[broadcast] Module started - fan-out hub ready")
	return nil
}

// Stop disconnects all clients.
func (m *BroadcastModule) Stop(_ context.Context) error {
	clientCount := m.hub.ClientCount()
	m.hub.CloseAll()
	log.Printf("[broadcast] Module stopped - %d clients were connected", clientCount)
	return nil
}

// Health returns the health status.
func (m *BroadcastModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
			"online_users":      len(m.hub.CurrentOnline()),
		},
	}
}

// RegisterEventConsumers registers event handlers.
func (m *BroadcastModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageCreatedV1, m.handleMessageCreated, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageCreated consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageDeletedV1, m.handleMessageDeleted, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageDeleted consumer: %w", err)
	}

	log.Println("[broadcast] Registered event consumers: MessageCreated, MessageDeleted")
	return nil
}

// Event handlers

func (m *BroadcastModule) handleMessageCreated(_ context.Context, event events.MessageCreatedEvent, _ *mono.Msg) error {
	data, err := EncodeFrame(FrameMessageCreated, MessagePayload{Message: event.Message})
	if err != nil {
		return fmt.Errorf("failed to encode message frame: %w", err)
	}

	delivered := m.hub.Publish(event.Message.ChannelID, data)
	log.Printf("[broadcast] Message %d delivered to %d subscriber(s) in room %s",
		event.Message.ID, delivered, event.Message.ChannelID)
	return nil
}

func (m *BroadcastModule) handleMessageDeleted(_ context.Context, event events.MessageDeletedEvent, _ *mono.Msg) error {
	data, err := EncodeFrame(FrameMessageDeleted, MessageDeletedPayload{
		MessageID: event.MessageID,
		ChannelID: event.ChannelID,
	})
	if err != nil {
		return fmt.Errorf("failed to encode delete frame: %w", err)
	}

	m.hub.Publish(event.ChannelID, data)
	return nil
}

// GetHub returns the fan-out hub for the API module to use.
func (m *BroadcastModule) GetHub() *Hub {
	return m.hub
}
