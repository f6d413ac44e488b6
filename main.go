package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/example/realtime-collab/logging"
	"github.com/example/realtime-collab/modules/auth"
	"github.com/example/realtime-collab/modules/collab"
	"github.com/example/realtime-collab/modules/directory"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Realtime Collab - WebSocket Project Rooms ===")

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	appLogger := logging.New()

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	// Create modules
	authModule := auth.NewModule()
	directoryModule := directory.NewModule(appLogger.WithModule("directory"))
	collabModule := collab.NewModule(
		":"+port,
		authModule.Verifier(),
		directoryModule,
		appLogger.WithModule("collab"),
	)

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - auth: credential verification (no dependencies)
	// - directory: user lookup + presence event consumer
	// - collab: WebSocket relay (depends on auth and directory)
	app.Register(authModule)
	app.Register(directoryModule)
	app.Register(collabModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(port)

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

func printStartupInfo(port string) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Realtime Collaboration Relay:")
	log.Println("  - Bearer-token handshake (close codes 4001/4002/4003 on failure)")
	log.Println("  - Project room join/leave with presence notifications")
	log.Println("  - chat_message, document_update, task_update broadcast to all members")
	log.Println("  - cursor_position, typing_indicator broadcast to everyone but the sender")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws?token=<jwt>):", port)
	log.Println("  Send: {\"type\":\"join_project\",\"projectId\":\"proj-1\"}")
	log.Println("  Then: {\"type\":\"chat_message\",\"projectId\":\"proj-1\",\"payload\":{\"text\":\"hi\"}}")
	log.Println("")
	log.Printf("HTTP Endpoints (http://localhost:%s):", port)
	log.Println("  GET    /health                          - Health check")
	log.Println("  GET    /api/v1/projects/:id/members     - Room presence snapshot")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
