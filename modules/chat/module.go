package chat

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-monolith/mono"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domain "github.com/example/channel-chat-demo/domain/chat"
	"github.com/example/channel-chat-demo/events"
)

// Module provides durable channel and message storage via GORM + SQLite and
// emits events after writes commit, so broadcast never precedes persistence.
type Module struct {
	db       *gorm.DB
	svc      *Service
	eventBus mono.EventBus
	dbPath   string
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new chat module.
func NewModule() *Module {
	dbPath := os.Getenv("CHAT_DB_PATH")
	if dbPath == "" {
		dbPath = "chat.db"
	}
	return &Module{dbPath: dbPath}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "chat"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageCreatedV1.ToBase(),
		events.MessageDeletedV1.ToBase(),
	}
}

// Start opens the database connection and runs migrations.
func (m *Module) Start(_ context.Context) error {
	log.Printf("[chat] Connecting to SQLite database: %s", m.dbPath)

	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "true" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := m.db.AutoMigrate(&domain.Channel{}, &domain.ChannelMember{}, &domain.Message{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	m.svc = NewService(NewRepository(m.db))

	log.Println("[chat] Module started")
	return nil
}

// Stop gracefully closes the database connection.
func (m *Module) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	log.Println("[chat] Module stopped")
	return nil
}

// Health performs a health check on the chat module.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{Healthy: false, Message: "database not initialized"}
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("failed to get sql.DB: %v", err)}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("database ping failed: %v", err)}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": "sqlite",
			"path":   m.dbPath,
		},
	}
}

// Service returns the underlying chat service.
func (m *Module) Service() *Service {
	return m.svc
}

// CreateChannel creates a channel with a unique name.
func (m *Module) CreateChannel(ctx context.Context, name, createdBy string) (*domain.Channel, error) {
	return m.svc.CreateChannel(ctx, name, createdBy)
}

// GetChannel retrieves a channel by id.
func (m *Module) GetChannel(ctx context.Context, channelID string) (*domain.Channel, error) {
	return m.svc.GetChannel(ctx, channelID)
}

// ListChannels returns all channels, newest first.
func (m *Module) ListChannels(ctx context.Context) ([]domain.Channel, error) {
	return m.svc.ListChannels(ctx)
}

// ListMembers returns the user ids of a channel's members.
func (m *Module) ListMembers(ctx context.Context, channelID string) ([]string, error) {
	return m.svc.ListMembers(ctx, channelID)
}

// JoinChannel adds a user to a channel's durable membership.
func (m *Module) JoinChannel(ctx context.Context, channelID, userID string) error {
	return m.svc.JoinChannel(ctx, channelID, userID)
}

// LeaveChannel removes a user from a channel's durable membership.
func (m *Module) LeaveChannel(ctx context.Context, channelID, userID string) error {
	return m.svc.LeaveChannel(ctx, channelID, userID)
}

// IsChannelMember reports whether a user belongs to a channel.
func (m *Module) IsChannelMember(ctx context.Context, userID, channelID string) (bool, error) {
	return m.svc.IsChannelMember(ctx, userID, channelID)
}

// SendMessage persists a message and, only after the write commits,
// publishes MessageCreated for fan-out.
func (m *Module) SendMessage(ctx context.Context, senderID, channelID, text, attachmentRef string) (*domain.Message, error) {
	msg, err := m.svc.CreateMessage(ctx, senderID, channelID, text, attachmentRef)
	if err != nil {
		return nil, err
	}

	event := events.MessageCreatedEvent{Message: *msg}
	if err := events.MessageCreatedV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[chat] Failed to publish MessageCreated event: %v", err)
	}
	return msg, nil
}

// ListMessagesBefore returns a newest-first history page.
func (m *Module) ListMessagesBefore(ctx context.Context, channelID string, beforeID int64, limit int) ([]domain.Message, error) {
	return m.svc.ListMessagesBefore(ctx, channelID, beforeID, limit)
}

// DeleteMessage soft-deletes a message and publishes MessageDeleted.
func (m *Module) DeleteMessage(ctx context.Context, messageID int64, requesterID string) error {
	msg, err := m.svc.DeleteMessage(ctx, messageID, requesterID)
	if err != nil {
		return err
	}

	event := events.MessageDeletedEvent{MessageID: msg.ID, ChannelID: msg.ChannelID}
	if err := events.MessageDeletedV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[chat] Failed to publish MessageDeleted event: %v", err)
	}
	return nil
}
