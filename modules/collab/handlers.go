package collab

import (
	"context"
	"errors"
	"log/slog"
	"time"

	domain "github.com/example/realtime-collab/domain/user"
	"github.com/example/realtime-collab/modules/directory"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// authTimeout bounds the handshake's verifier and directory calls.
const authTimeout = 5 * time.Second

// IdentityVerifier resolves an opaque bearer credential to a user identity.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (string, error)
}

// UserDirectory resolves a user identity to a directory entry.
type UserDirectory interface {
	Lookup(ctx context.Context, userID string) (*domain.User, error)
}

// Handlers contains the WebSocket lifecycle handler and the read-only HTTP
// handlers next to it.
type Handlers struct {
	hub       *Hub
	router    *Router
	verifier  IdentityVerifier
	directory UserDirectory
	logger    *slog.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(hub *Hub, router *Router, verifier IdentityVerifier, userDir UserDirectory) *Handlers {
	return &Handlers{
		hub:       hub,
		router:    router,
		verifier:  verifier,
		directory: userDir,
		logger:    slog.Default(),
	}
}

// HandleWebSocket drives a connection through its lifecycle: authenticate,
// register, read envelopes until the transport closes or errors, then clean
// up. Graceful and abrupt closes share the same teardown path.
func (h *Handlers) HandleWebSocket(c *websocket.Conn) {
	credential := c.Query("token")
	if credential == "" {
		h.closeWithCode(c, CloseNoCredential, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	userID, err := h.verifier.Verify(ctx, credential)
	if err != nil {
		cancel()
		h.closeWithCode(c, CloseInvalidCredential, "invalid credential")
		return
	}

	displayName, err := h.resolveDisplayName(ctx, userID)
	cancel()
	if err != nil {
		h.closeWithCode(c, CloseUnknownUser, "unknown user")
		return
	}

	conn := h.hub.registry.Register(userID, displayName, c)
	go conn.writePump()
	defer func() {
		h.router.Disconnect(conn)
		h.logger.Info("WebSocket disconnected", "connectionID", conn.ID, "userID", userID)
	}()

	confirm, err := marshalEnvelope(TypeConnected, "", ConnectedPayload{
		UserID:       userID,
		ConnectionID: conn.ID,
	})
	if err == nil {
		conn.enqueue(confirm)
	}
	h.logger.Info("WebSocket connected", "connectionID", conn.ID, "userID", userID)

	c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket error", "connectionID", conn.ID, "error", err)
			}
			break
		}
		h.router.Handle(conn, raw)
	}
}

// resolveDisplayName consults the directory for the user's display name.
// A directory that cannot answer degrades to a placeholder label; only an
// explicit not-found answer fails the handshake.
func (h *Handlers) resolveDisplayName(ctx context.Context, userID string) (string, error) {
	profile, err := h.directory.Lookup(ctx, userID)
	if err == nil {
		return profile.DisplayName, nil
	}
	if errors.Is(err, directory.ErrUserNotFound) {
		return "", err
	}
	h.logger.Warn("Directory lookup failed, using placeholder", "userID", userID, "error", err)
	return "user-" + shortID(userID), nil
}

// closeWithCode rejects a handshake with a distinguished close code so the
// client can branch on the failure reason.
func (h *Handlers) closeWithCode(c *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	if err := c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		h.logger.Debug("Failed to write close message", "error", err)
	}
	c.Close()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// HTTP handlers

// ProjectMembers handles presence lookups (GET /api/v1/projects/:id/members).
func (h *Handlers) ProjectMembers(c *fiber.Ctx) error {
	projectID := c.Params("id")
	if projectID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "project ID is required",
		})
	}

	memberIDs := h.hub.presence.Members(projectID)
	members := make([]fiber.Map, 0, len(memberIDs))
	for _, userID := range memberIDs {
		entry := fiber.Map{"userId": userID}
		if conns := h.hub.registry.ByUser(userID); len(conns) > 0 {
			entry["displayName"] = conns[0].DisplayName
		}
		members = append(members, entry)
	}

	return c.JSON(fiber.Map{
		"project_id": projectID,
		"members":    members,
		"total":      len(members),
	})
}

// HealthCheck handles health check requests (GET /health).
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "healthy",
		"service":     "realtime-collab",
		"connections": h.hub.registry.Len(),
		"rooms":       h.hub.presence.RoomCount(),
	})
}
