package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// PresenceEvent is emitted when a user's room membership changes.
type PresenceEvent struct {
	ProjectID   string    `json:"project_id"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Event definitions for the collab domain.
var (
	UserJoinedV1 = helper.EventDefinition[PresenceEvent](
		"collab",
		"UserJoined",
		"v1",
	)

	UserLeftV1 = helper.EventDefinition[PresenceEvent](
		"collab",
		"UserLeft",
		"v1",
	)
)
