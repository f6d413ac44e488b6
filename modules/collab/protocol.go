package collab

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType tags an envelope exchanged over a connection. The set is
// closed; the router rejects anything else with an error envelope.
type MessageType string

// Client -> server message types.
const (
	TypeJoinProject     MessageType = "join_project"
	TypeLeaveProject    MessageType = "leave_project"
	TypeChatMessage     MessageType = "chat_message"
	TypeDocumentUpdate  MessageType = "document_update"
	TypeTaskUpdate      MessageType = "task_update"
	TypeCursorPosition  MessageType = "cursor_position"
	TypeTypingIndicator MessageType = "typing_indicator"
)

// Server -> client message types.
const (
	TypeConnected     MessageType = "connected"
	TypeProjectJoined MessageType = "project_joined"
	TypeUserJoined    MessageType = "user_joined"
	TypeUserLeft      MessageType = "user_left"
	TypeError         MessageType = "error"
)

// Close codes sent when a handshake fails. Clients must treat all three as
// non-retriable without fixing the credential.
const (
	CloseNoCredential      = 4001
	CloseInvalidCredential = 4002
	CloseUnknownUser       = 4003
)

// Envelope is the unit of exchange over the wire in both directions.
type Envelope struct {
	Type      MessageType     `json:"type"`
	ProjectID string          `json:"projectId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// roomID returns the room identifier for a room-scoped envelope, checking the
// top level first and falling back to a projectId field inside the payload.
func (e *Envelope) roomID() string {
	if e.ProjectID != "" {
		return e.ProjectID
	}
	var p struct {
		ProjectID string `json:"projectId"`
	}
	if len(e.Payload) > 0 {
		_ = json.Unmarshal(e.Payload, &p)
	}
	return p.ProjectID
}

// ConnectedPayload confirms a successful handshake.
type ConnectedPayload struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
}

// ProjectJoinedPayload confirms a join to the joining connection.
type ProjectJoinedPayload struct {
	ProjectID string `json:"projectId"`
}

// PresencePayload announces a membership change to other room members.
type PresencePayload struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// ErrorPayload carries a human-readable message back to the sender.
type ErrorPayload struct {
	Message string `json:"message"`
}

// marshalEnvelope serializes an outbound envelope with the given payload.
func marshalEnvelope(msgType MessageType, projectID string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
	}
	return json.Marshal(Envelope{
		Type:      msgType,
		ProjectID: projectID,
		Payload:   data,
	})
}

// errorEnvelope builds an error envelope. Marshaling a plain string payload
// cannot fail, so the result is always usable.
func errorEnvelope(message string) []byte {
	data, _ := marshalEnvelope(TypeError, "", ErrorPayload{Message: message})
	return data
}

// augmentPayload decodes the sender's payload object and stamps the resolved
// sender identity (and optionally a server timestamp) into it. Client-supplied
// userId and timestamp fields are overwritten, never trusted.
func augmentPayload(raw json.RawMessage, userID string, at time.Time, withTimestamp bool) (json.RawMessage, error) {
	fields := make(map[string]any)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("payload must be a JSON object: %w", err)
		}
	}
	fields["userId"] = userID
	if withTimestamp {
		fields["timestamp"] = at.UTC()
	}
	return json.Marshal(fields)
}
