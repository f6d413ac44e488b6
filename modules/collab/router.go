package collab

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// PresenceNotifier receives membership changes after they have been applied
// and broadcast. The collab module uses it to publish presence events on the
// application event bus.
type PresenceNotifier interface {
	NotifyJoined(projectID string, conn *Conn, at time.Time)
	NotifyLeft(projectID string, conn *Conn, at time.Time)
}

// Router is the single entry point for every inbound envelope on a
// connection. It validates structure, dispatches by type tag, and shapes the
// outbound envelope before handing it to the hub.
type Router struct {
	hub    *Hub
	notify PresenceNotifier
	logger *slog.Logger
}

// NewRouter creates a router over the given hub. notify may be nil.
func NewRouter(hub *Hub, notify PresenceNotifier) *Router {
	return &Router{
		hub:    hub,
		notify: notify,
		logger: slog.Default(),
	}
}

// Handle processes one inbound message. Failures are reported back to the
// sender only; they never tear down the connection or reach other members.
func (r *Router) Handle(conn *Conn, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		conn.enqueue(errorEnvelope("invalid message format"))
		return
	}

	switch env.Type {
	case TypeJoinProject:
		r.handleJoin(conn, &env)
	case TypeLeaveProject:
		r.handleLeave(conn, &env)
	case TypeChatMessage:
		if !conn.limiter.allow() {
			conn.enqueue(errorEnvelope("rate limit exceeded, please slow down"))
			return
		}
		r.relayAugmented(conn, &env)
	case TypeTaskUpdate:
		r.relayAugmented(conn, &env)
	case TypeCursorPosition, TypeTypingIndicator:
		r.relayExcludingSender(conn, &env)
	case TypeDocumentUpdate:
		r.relayVerbatim(conn, &env)
	default:
		conn.enqueue(errorEnvelope(fmt.Sprintf("unknown message type: %s", env.Type)))
	}
}

// handleJoin adds the user to the room and announces the arrival. A join on a
// connection that already holds a different room leaves that room first.
func (r *Router) handleJoin(conn *Conn, env *Envelope) {
	projectID := env.roomID()
	if projectID == "" {
		conn.enqueue(errorEnvelope("projectId is required"))
		return
	}

	if prev := conn.Project(); prev != "" && prev != projectID {
		r.leaveRoom(conn, prev)
	}

	now := time.Now()
	newly := r.hub.presence.Join(projectID, conn.UserID)
	conn.SetProject(projectID)

	// Confirmation to the joining connection only.
	confirm, err := marshalEnvelope(TypeProjectJoined, projectID, ProjectJoinedPayload{ProjectID: projectID})
	if err == nil {
		conn.enqueue(confirm)
	}

	if !newly {
		return
	}

	joined, err := marshalEnvelope(TypeUserJoined, projectID, PresencePayload{
		UserID:      conn.UserID,
		DisplayName: conn.DisplayName,
		Timestamp:   now,
	})
	if err == nil {
		r.hub.Broadcast(projectID, conn.UserID, joined)
	}
	if r.notify != nil {
		r.notify.NotifyJoined(projectID, conn, now)
	}
	r.logger.Info("User joined project", "userID", conn.UserID, "projectID", projectID)
}

// handleLeave removes the user from the room named in the envelope, falling
// back to the connection's current room.
func (r *Router) handleLeave(conn *Conn, env *Envelope) {
	projectID := env.roomID()
	if projectID == "" {
		projectID = conn.Project()
	}
	if projectID == "" {
		conn.enqueue(errorEnvelope("projectId is required"))
		return
	}

	r.leaveRoom(conn, projectID)
	if conn.Project() == projectID {
		conn.SetProject("")
	}
}

// Disconnect runs the teardown path shared by graceful and abrupt closes:
// unregister the connection and, if it held a room, remove the user and
// announce the departure.
func (r *Router) Disconnect(conn *Conn) {
	r.hub.registry.Unregister(conn.ID)
	if projectID := conn.Project(); projectID != "" {
		r.leaveRoom(conn, projectID)
	}
	conn.close()
}

// leaveRoom removes the user from the room's membership and broadcasts
// user_left to the remaining members when the user was actually removed.
func (r *Router) leaveRoom(conn *Conn, projectID string) {
	if !r.hub.presence.Leave(projectID, conn.UserID) {
		return
	}

	now := time.Now()
	left, err := marshalEnvelope(TypeUserLeft, projectID, PresencePayload{
		UserID:      conn.UserID,
		DisplayName: conn.DisplayName,
		Timestamp:   now,
	})
	if err == nil {
		r.hub.Broadcast(projectID, conn.UserID, left)
	}
	if r.notify != nil {
		r.notify.NotifyLeft(projectID, conn, now)
	}
	r.logger.Info("User left project", "userID", conn.UserID, "projectID", projectID)
}

// relayAugmented broadcasts a room-scoped envelope to all members, stamping
// the sender identity and a server timestamp into the payload.
func (r *Router) relayAugmented(conn *Conn, env *Envelope) {
	projectID := env.roomID()
	if projectID == "" {
		conn.enqueue(errorEnvelope("projectId is required"))
		return
	}

	payload, err := augmentPayload(env.Payload, conn.UserID, time.Now(), true)
	if err != nil {
		conn.enqueue(errorEnvelope("invalid payload"))
		return
	}

	data, err := json.Marshal(Envelope{Type: env.Type, ProjectID: projectID, Payload: payload})
	if err != nil {
		conn.enqueue(errorEnvelope("invalid payload"))
		return
	}
	r.hub.Broadcast(projectID, "", data)
}

// relayExcludingSender broadcasts to all members except the sender, stamping
// the sender identity into the payload. Used for high-frequency signals the
// sender has no use for echoing back.
func (r *Router) relayExcludingSender(conn *Conn, env *Envelope) {
	projectID := env.roomID()
	if projectID == "" {
		conn.enqueue(errorEnvelope("projectId is required"))
		return
	}

	payload, err := augmentPayload(env.Payload, conn.UserID, time.Time{}, false)
	if err != nil {
		conn.enqueue(errorEnvelope("invalid payload"))
		return
	}

	data, err := json.Marshal(Envelope{Type: env.Type, ProjectID: projectID, Payload: payload})
	if err != nil {
		conn.enqueue(errorEnvelope("invalid payload"))
		return
	}
	r.hub.Broadcast(projectID, conn.UserID, data)
}

// relayVerbatim broadcasts the payload untouched to all members including the
// sender. Document updates are last-write-wins; editors reconcile locally
// from their own echo.
func (r *Router) relayVerbatim(conn *Conn, env *Envelope) {
	projectID := env.roomID()
	if projectID == "" {
		conn.enqueue(errorEnvelope("projectId is required"))
		return
	}

	data, err := json.Marshal(Envelope{Type: env.Type, ProjectID: projectID, Payload: env.Payload})
	if err != nil {
		conn.enqueue(errorEnvelope("invalid payload"))
		return
	}
	r.hub.Broadcast(projectID, "", data)
}
