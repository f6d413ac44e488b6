package collab

import (
	"testing"
)

func TestPresence_JoinLeave(t *testing.T) {
	p := NewPresence()

	if !p.Join("proj-1", "user-1") {
		t.Error("Join() first join should report newly added")
	}
	if !p.Contains("proj-1", "user-1") {
		t.Error("Contains() should be true after join")
	}

	if !p.Leave("proj-1", "user-1") {
		t.Error("Leave() should report the user was removed")
	}
	if p.Contains("proj-1", "user-1") {
		t.Error("Contains() should be false after leave")
	}
	if p.RoomCount() != 0 {
		t.Errorf("RoomCount() = %d, want 0 (empty room must be deleted)", p.RoomCount())
	}
}

func TestPresence_JoinIdempotent(t *testing.T) {
	p := NewPresence()

	if !p.Join("proj-1", "user-1") {
		t.Error("Join() first join should report newly added")
	}
	if p.Join("proj-1", "user-1") {
		t.Error("Join() second join should not report newly added")
	}
	if got := len(p.Members("proj-1")); got != 1 {
		t.Errorf("Members() count = %d, want 1", got)
	}
}

func TestPresence_LeaveKeepsOtherMembers(t *testing.T) {
	p := NewPresence()
	p.Join("proj-1", "user-1")
	p.Join("proj-1", "user-2")

	if !p.Leave("proj-1", "user-1") {
		t.Error("Leave() should report the user was removed")
	}
	if p.RoomCount() != 1 {
		t.Errorf("RoomCount() = %d, want 1 (room still has a member)", p.RoomCount())
	}
	members := p.Members("proj-1")
	if len(members) != 1 || members[0] != "user-2" {
		t.Errorf("Members() = %v, want [user-2]", members)
	}
}

func TestPresence_LeaveNonMember(t *testing.T) {
	p := NewPresence()
	p.Join("proj-1", "user-1")

	tests := []struct {
		name      string
		projectID string
		userID    string
	}{
		{name: "unknown room", projectID: "proj-2", userID: "user-1"},
		{name: "not a member", projectID: "proj-1", userID: "user-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if p.Leave(tt.projectID, tt.userID) {
				t.Error("Leave() should report no removal")
			}
		})
	}
}

func TestPresence_MembersOfUnknownRoom(t *testing.T) {
	p := NewPresence()

	if got := p.Members("no-such-room"); len(got) != 0 {
		t.Errorf("Members() = %v, want empty", got)
	}
}
