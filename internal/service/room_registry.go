package service

import (
	"sort"
	"sync"

	"eduplatform/internal/model"
)

type room struct {
	members map[string]*model.Participant // keyed by user id
	nextSeq uint64
}

// RoomRegistry tracks who is in which meeting room. Callers serialize
// mutations of one room; the registry lock only guards the maps.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]*room
	conns map[string]string // connection id -> room id
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms: make(map[string]*room),
		conns: make(map[string]string),
	}
}

// Upsert adds p to the room, replacing any entry of the same user, and
// returns the replaced participant if there was one. A repeated join from
// the same connection keeps its JoinSeq so offer roles do not flip.
func (r *RoomRegistry) Upsert(roomID string, p model.Participant) *model.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		rm = &room{members: make(map[string]*model.Participant)}
		r.rooms[roomID] = rm
	}

	var replaced *model.Participant
	if old, ok := rm.members[p.UserID]; ok {
		replaced = old
		if r.conns[old.ConnectionID] == roomID {
			delete(r.conns, old.ConnectionID)
		}
	}

	if replaced != nil && replaced.ConnectionID == p.ConnectionID {
		p.JoinSeq = replaced.JoinSeq
	} else {
		rm.nextSeq++
		p.JoinSeq = rm.nextSeq
	}
	rm.members[p.UserID] = &p
	r.conns[p.ConnectionID] = roomID
	return replaced
}

// RemoveConnection drops the participant owning connID. The room is
// deleted when it becomes empty.
func (r *RoomRegistry) RemoveConnection(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	roomID, ok := r.conns[connID]
	if !ok {
		return "", false
	}
	delete(r.conns, connID)

	rm := r.rooms[roomID]
	if rm == nil {
		return roomID, true
	}
	for userID, p := range rm.members {
		if p.ConnectionID == connID {
			delete(rm.members, userID)
			break
		}
	}
	if len(rm.members) == 0 {
		delete(r.rooms, roomID)
	}
	return roomID, true
}

// RoomOf returns the room a connection sits in
func (r *RoomRegistry) RoomOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roomID, ok := r.conns[connID]
	return roomID, ok
}

// Participant returns a copy of the connection's participant entry
func (r *RoomRegistry) Participant(connID string) (model.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p := r.lookup(connID)
	if p == nil {
		return model.Participant{}, false
	}
	return *p, true
}

// UpdateMic changes the mic flag in place
func (r *RoomRegistry) UpdateMic(connID string, on bool) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.lookup(connID)
	if p == nil {
		return "", false
	}
	p.MicOn = on
	return r.conns[connID], true
}

func (r *RoomRegistry) lookup(connID string) *model.Participant {
	roomID, ok := r.conns[connID]
	if !ok {
		return nil
	}
	rm := r.rooms[roomID]
	if rm == nil {
		return nil
	}
	for _, p := range rm.members {
		if p.ConnectionID == connID {
			return p
		}
	}
	return nil
}

// Snapshot lists the room's participants in join order
func (r *RoomRegistry) Snapshot(roomID string) []model.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm := r.rooms[roomID]
	if rm == nil {
		return []model.Participant{}
	}
	out := make([]model.Participant, 0, len(rm.members))
	for _, p := range rm.members {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinSeq < out[j].JoinSeq })
	return out
}

// Rooms lists live rooms sorted by id
func (r *RoomRegistry) Rooms() []model.RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.RoomInfo, 0, len(r.rooms))
	for id, rm := range r.rooms {
		out = append(out, model.RoomInfo{ID: id, ParticipantCount: len(rm.members)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
