package collab

import "log/slog"

// Hub owns the connection registry and the room membership index and fans
// outbound envelopes out to room members. It is created at server start and
// injected into the router and handlers; there is no ambient global state.
type Hub struct {
	registry *Registry
	presence *Presence
	logger   *slog.Logger
}

// NewHub creates a hub with empty registry and presence state.
func NewHub() *Hub {
	return &Hub{
		registry: NewRegistry(),
		presence: NewPresence(),
		logger:   slog.Default(),
	}
}

// Registry returns the connection registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Presence returns the room membership index.
func (h *Hub) Presence() *Presence {
	return h.presence
}

// Broadcast delivers data to every live connection of every member of the
// room, skipping all connections of the excluded user (if any) and any
// connection whose current room is not the target room. Delivery is
// fire-and-forget: a consumer with a full send buffer is silently skipped.
func (h *Hub) Broadcast(projectID, excludeUserID string, data []byte) {
	for _, userID := range h.presence.Members(projectID) {
		if excludeUserID != "" && userID == excludeUserID {
			continue
		}
		for _, conn := range h.registry.ByUser(userID) {
			if conn.Project() != projectID {
				continue
			}
			if !conn.enqueue(data) {
				h.logger.Debug("Dropped message for slow consumer",
					"connectionID", conn.ID, "projectID", projectID)
			}
		}
	}
}
