package collab

import "sync"

// Presence tracks which users are present in which rooms, independent of how
// many connections each user holds. A room with no members is removed
// immediately so empty rooms never accumulate over the server's lifetime.
type Presence struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{} // project ID -> set of user IDs
}

// NewPresence creates an empty room membership index.
func NewPresence() *Presence {
	return &Presence{
		rooms: make(map[string]map[string]struct{}),
	}
}

// Join adds the user to the room's member set, creating the room entry if
// absent. Returns true if the user was newly added; joining a room the user
// is already a member of has no additional effect.
func (p *Presence) Join(projectID, userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	members := p.rooms[projectID]
	if members == nil {
		members = make(map[string]struct{})
		p.rooms[projectID] = members
	}
	if _, ok := members[userID]; ok {
		return false
	}
	members[userID] = struct{}{}
	return true
}

// Leave removes the user from the room. Returns true if the user was actually
// a member. The room entry is deleted when the last member leaves.
func (p *Presence) Leave(projectID, userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	members := p.rooms[projectID]
	if members == nil {
		return false
	}
	if _, ok := members[userID]; !ok {
		return false
	}
	delete(members, userID)
	if len(members) == 0 {
		delete(p.rooms, projectID)
	}
	return true
}

// Members returns a snapshot of the room's member set. An unknown room yields
// an empty slice, not an error.
func (p *Presence) Members(projectID string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	members := p.rooms[projectID]
	if len(members) == 0 {
		return nil
	}
	out := make([]string, 0, len(members))
	for userID := range members {
		out = append(out, userID)
	}
	return out
}

// Contains reports whether the user is a member of the room.
func (p *Presence) Contains(projectID, userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.rooms[projectID][userID]
	return ok
}

// RoomCount returns the number of rooms with at least one member.
func (p *Presence) RoomCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rooms)
}
