package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/parleychat/parley/internal/core"
	"github.com/parleychat/parley/internal/domain"
)

// Membership is the room <-> handle index. Both directions live under one
// mutex so a reader can never observe a handle in a room's set without the
// room in the handle's set, or vice versa.
type Membership struct {
	mu       sync.RWMutex
	byRoom   map[domain.RoomID]map[core.HandleID]struct{}
	byHandle map[core.HandleID]map[domain.RoomID]struct{}
}

func NewMembership() *Membership {
	return &Membership{
		byRoom:   make(map[domain.RoomID]map[core.HandleID]struct{}),
		byHandle: make(map[core.HandleID]map[domain.RoomID]struct{}),
	}
}

// Join is idempotent and reports whether membership actually changed.
// Both sides of the relation are updated in one critical section.
func (m *Membership) Join(handle core.HandleID, room domain.RoomID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	members, ok := m.byRoom[room]
	if !ok {
		members = make(map[core.HandleID]struct{})
		m.byRoom[room] = members
	}
	if _, ok := members[handle]; ok {
		return false
	}
	members[handle] = struct{}{}

	rooms, ok := m.byHandle[handle]
	if !ok {
		rooms = make(map[domain.RoomID]struct{})
		m.byHandle[handle] = rooms
	}
	rooms[room] = struct{}{}
	log.Debug().Str("module", "app.membership").Str("handle", string(handle)).Str("room", string(room)).Msg("joined room")
	return true
}

// Leave is the idempotent inverse of Join; leaving a room the handle never
// joined is a no-op.
func (m *Membership) Leave(handle core.HandleID, room domain.RoomID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaveLocked(handle, room)
}

func (m *Membership) leaveLocked(handle core.HandleID, room domain.RoomID) {
	if members, ok := m.byRoom[room]; ok {
		delete(members, handle)
		if len(members) == 0 {
			delete(m.byRoom, room)
		}
	}
	if rooms, ok := m.byHandle[handle]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(m.byHandle, handle)
		}
	}
}

// MembersOf returns a snapshot of the room's member handles.
func (m *Membership) MembersOf(room domain.RoomID) []core.HandleID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.HandleID, 0, len(m.byRoom[room]))
	for h := range m.byRoom[room] {
		out = append(out, h)
	}
	return out
}

// RoomsOf returns a snapshot of the rooms the handle has joined.
func (m *Membership) RoomsOf(handle core.HandleID) []domain.RoomID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.RoomID, 0, len(m.byHandle[handle]))
	for r := range m.byHandle[handle] {
		out = append(out, r)
	}
	return out
}

// IsMember reports whether the handle currently sits in the room.
func (m *Membership) IsMember(handle core.HandleID, room domain.RoomID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byRoom[room][handle]
	return ok
}

// DropHandle removes the handle from every room it joined and returns
// those rooms. Part of the disconnect cascade: after it returns no
// broadcast can resolve the handle through this index.
func (m *Membership) DropHandle(handle core.HandleID) []domain.RoomID {
	m.mu.Lock()
	defer m.mu.Unlock()
	rooms := make([]domain.RoomID, 0, len(m.byHandle[handle]))
	for r := range m.byHandle[handle] {
		rooms = append(rooms, r)
	}
	for _, r := range rooms {
		m.leaveLocked(handle, r)
	}
	if len(rooms) > 0 {
		log.Debug().Str("module", "app.membership").Str("handle", string(handle)).Int("rooms", len(rooms)).Msg("dropped handle from rooms")
	}
	return rooms
}

func (m *Membership) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byRoom)
}

// RoomSizes returns member counts per room, for the REST listing.
func (m *Membership) RoomSizes() map[domain.RoomID]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[domain.RoomID]int, len(m.byRoom))
	for r, members := range m.byRoom {
		out[r] = len(members)
	}
	return out
}
