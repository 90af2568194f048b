package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/channel-chat-demo/modules/api"
	"github.com/example/channel-chat-demo/modules/broadcast"
	"github.com/example/channel-chat-demo/modules/chat"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Channel Chat Demo - Room Fan-Out over Fiber + EventBus ===")

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	chatModule := chat.NewModule()
	broadcastModule := broadcast.NewModule()
	apiModule := api.NewModule(chatModule)

	// Inject broadcast hub into API module
	// (This is done manually because the hub is not exposed via ServiceContainer)
	apiModule.SetHub(broadcastModule.GetHub())

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - chat: durable store (EventEmitterModule, publishes after writes commit)
	// - broadcast: live fan-out (EventConsumerModule, sessions/rooms/presence)
	// - api: driving adapter (Fiber HTTP/WebSocket server)
	app.Register(chatModule)
	app.Register(broadcastModule)
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	dbPath := os.Getenv("CHAT_DB_PATH")
	if dbPath == "" {
		dbPath = "chat.db"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber with WebSocket support")
	log.Println("  - Store: GORM + SQLite (messages, channels, membership)")
	log.Printf("  - Database: %s", dbPath)
	log.Println("  - Fan-out: broadcast only after the store write commits")
	log.Println("")
	log.Println("Event-Driven Fan-Out:")
	log.Println("  - MessageCreated events -> broadcast module -> room subscribers")
	log.Println("  - MessageDeleted events -> broadcast module -> room subscribers")
	log.Println("  - Presence snapshots -> all connections on online/offline edges")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", port)
	log.Println("  GET    /health                        - Health check")
	log.Println("  GET    /api/v1/channels               - List channels")
	log.Println("  POST   /api/v1/channels               - Create a channel")
	log.Println("  GET    /api/v1/channels/:id           - Get channel details")
	log.Println("  GET    /api/v1/channels/:id/members   - List durable members")
	log.Println("  POST   /api/v1/channels/:id/join      - Join a channel")
	log.Println("  POST   /api/v1/channels/:id/leave     - Leave a channel")
	log.Println("  GET    /api/v1/channels/:id/messages  - History page (?before=&limit=)")
	log.Println("  POST   /api/v1/channels/:id/messages  - Send a message")
	log.Println("  DELETE /api/v1/messages/:id           - Delete own message")
	log.Println("  GET    /api/v1/presence               - Online-user snapshot")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", port)
	log.Println("  Connect with: ws://localhost:3000/ws?user_id=youruser")
	log.Println("  Inbound frame types: identify, subscribe, unsubscribe")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
