package collab

import (
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// Registry is the authoritative map from connection identifier to connection
// state. Lookup misses are normal, expected outcomes, not errors.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*Conn            // connection ID -> connection
	byUser map[string]map[string]*Conn // user ID -> connection ID -> connection
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[string]*Conn),
		byUser: make(map[string]map[string]*Conn),
	}
}

// Register creates a connection for the user and stores it with no room
// assigned. The identifier combines the user identity, the establishment
// time, and a random suffix so rapid repeated connections from the same user
// never collide.
func (r *Registry) Register(userID, displayName string, sock *websocket.Conn) *Conn {
	id := fmt.Sprintf("%s-%d-%s", userID, time.Now().UnixNano(), uuid.New().String()[:8])
	conn := newConn(id, userID, displayName, sock)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[id] = conn
	if r.byUser[userID] == nil {
		r.byUser[userID] = make(map[string]*Conn)
	}
	r.byUser[userID][id] = conn

	return conn
}

// Unregister removes the connection and returns it, or nil if it was not
// registered. Room cleanup is the lifecycle handler's responsibility; the
// registry does not cascade.
func (r *Registry) Unregister(connID string) *Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return nil
	}
	delete(r.conns, connID)

	if userConns := r.byUser[conn.UserID]; userConns != nil {
		delete(userConns, connID)
		if len(userConns) == 0 {
			delete(r.byUser, conn.UserID)
		}
	}

	return conn
}

// ByUser returns a snapshot of every live connection belonging to the user.
func (r *Registry) ByUser(userID string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userConns := r.byUser[userID]
	if len(userConns) == 0 {
		return nil
	}
	conns := make([]*Conn, 0, len(userConns))
	for _, conn := range userConns {
		conns = append(conns, conn)
	}
	return conns
}

// Get returns the connection with the given identifier.
func (r *Registry) Get(connID string) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[connID]
	return conn, ok
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// CloseAll closes every connection. Used at server shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, conn := range r.conns {
		conn.close()
	}
	r.conns = make(map[string]*Conn)
	r.byUser = make(map[string]map[string]*Conn)
}
