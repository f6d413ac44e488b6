package collab

import (
	"testing"
)

func TestRegistry_RegisterAssignsUniqueIDs(t *testing.T) {
	r := NewRegistry()

	// Rapid repeated connections from the same user in the same instant.
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		conn := r.Register("user-1", "User One", nil)
		if seen[conn.ID] {
			t.Fatalf("Register() produced duplicate connection ID %q", conn.ID)
		}
		seen[conn.ID] = true
	}

	if r.Len() != 100 {
		t.Errorf("Len() = %d, want 100", r.Len())
	}
	if got := len(r.ByUser("user-1")); got != 100 {
		t.Errorf("ByUser() count = %d, want 100", got)
	}
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()
	conn1 := r.Register("user-1", "User One", nil)
	conn2 := r.Register("user-1", "User One", nil)

	removed := r.Unregister(conn1.ID)
	if removed == nil || removed.ID != conn1.ID {
		t.Fatalf("Unregister() = %v, want connection %q", removed, conn1.ID)
	}

	if _, ok := r.Get(conn1.ID); ok {
		t.Error("Get() should miss after unregister")
	}
	if got := len(r.ByUser("user-1")); got != 1 {
		t.Errorf("ByUser() count = %d, want 1", got)
	}

	r.Unregister(conn2.ID)
	if got := r.ByUser("user-1"); got != nil {
		t.Errorf("ByUser() = %v, want nil after last unregister", got)
	}
}

func TestRegistry_UnregisterUnknown(t *testing.T) {
	r := NewRegistry()

	// Absence is a normal outcome, not an error.
	if got := r.Unregister("no-such-connection"); got != nil {
		t.Errorf("Unregister() = %v, want nil", got)
	}
}

func TestRegistry_ByUserNotConnected(t *testing.T) {
	r := NewRegistry()

	if got := r.ByUser("nobody"); got != nil {
		t.Errorf("ByUser() = %v, want nil", got)
	}
}

func TestRegistry_CloseAll(t *testing.T) {
	r := NewRegistry()
	conn := r.Register("user-1", "User One", nil)
	r.Register("user-2", "User Two", nil)

	r.CloseAll()

	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after CloseAll", r.Len())
	}
	select {
	case <-conn.done:
	default:
		t.Error("CloseAll() should close every connection")
	}
	if conn.enqueue([]byte("x")) {
		t.Error("enqueue() should fail on a closed connection")
	}
}
