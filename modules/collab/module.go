package collab

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/example/realtime-collab/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Module runs the collaboration relay: the Fiber server with the WebSocket
// endpoint, the hub, and the message router.
type Module struct {
	app      *fiber.App
	addr     string
	hub      *Hub
	router   *Router
	handlers *Handlers

	verifier  IdentityVerifier
	directory UserDirectory
	eventBus  mono.EventBus
	logger    types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.EventBusAwareModule = (*Module)(nil)
var _ mono.EventEmitterModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)
var _ PresenceNotifier = (*Module)(nil)

// NewModule creates the collab module. The hub, router, and handlers are
// built here so tests and main wire the same object graph.
func NewModule(addr string, verifier IdentityVerifier, userDir UserDirectory, moduleLogger types.Logger) *Module {
	m := &Module{
		addr:      addr,
		hub:       NewHub(),
		verifier:  verifier,
		directory: userDir,
		logger:    moduleLogger,
	}
	m.router = NewRouter(m.hub, m)
	m.handlers = NewHandlers(m.hub, m.router, verifier, userDir)
	return m
}

// Name returns the module name.
func (m *Module) Name() string {
	return "collab"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.UserJoinedV1.ToBase(),
		events.UserLeftV1.ToBase(),
	}
}

// Start initializes and starts the server.
func (m *Module) Start(_ context.Context) error {
	m.app = fiber.New(fiber.Config{
		AppName:               "Realtime Collab",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
	})

	m.app.Use(recover.New())
	m.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
	}))

	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:8080"
	}
	m.app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	m.registerRoutes()

	// Start server in goroutine with startup error detection
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("collab server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
		// Server started successfully
	}

	m.logger.Info("Collab server started", "addr", m.addr)
	return nil
}

// Stop closes every connection and shuts down the server.
func (m *Module) Stop(ctx context.Context) error {
	m.hub.registry.CloseAll()
	if m.app != nil {
		if err := m.app.ShutdownWithContext(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}
	m.logger.Info("Collab server stopped")
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connections": m.hub.registry.Len(),
			"rooms":       m.hub.presence.RoomCount(),
		},
	}
}

// registerRoutes sets up the WebSocket endpoint and the read-only HTTP routes.
func (m *Module) registerRoutes() {
	m.app.Get("/health", m.handlers.HealthCheck)

	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", websocket.New(m.handlers.HandleWebSocket))

	api := m.app.Group("/api/v1")
	api.Get("/projects/:id/members", m.handlers.ProjectMembers)
}

// errorHandler handles errors globally.
func (m *Module) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	m.logger.Error("HTTP error", "code", code, "message", message, "error", err)

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}

// NotifyJoined publishes a UserJoined presence event. Best-effort: a publish
// failure is logged and never reaches the client.
func (m *Module) NotifyJoined(projectID string, conn *Conn, at time.Time) {
	if m.eventBus == nil {
		return
	}
	event := events.PresenceEvent{
		ProjectID:   projectID,
		UserID:      conn.UserID,
		DisplayName: conn.DisplayName,
		Timestamp:   at,
	}
	if err := events.UserJoinedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish UserJoined event", "error", err)
	}
}

// NotifyLeft publishes a UserLeft presence event.
func (m *Module) NotifyLeft(projectID string, conn *Conn, at time.Time) {
	if m.eventBus == nil {
		return
	}
	event := events.PresenceEvent{
		ProjectID:   projectID,
		UserID:      conn.UserID,
		DisplayName: conn.DisplayName,
		Timestamp:   at,
	}
	if err := events.UserLeftV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish UserLeft event", "error", err)
	}
}
