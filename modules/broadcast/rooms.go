package broadcast

import "sync"

// RoomTable tracks which connections subscribe to which rooms. Rooms exist
// implicitly: first subscription creates one, and an empty room is valid.
//
// The forward (room -> connections) and reverse (connection -> rooms) maps
// are updated under one mutex, so both sides of an edge change atomically
// relative to readers. The lock is never held across network I/O.
type RoomTable struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]struct{} // roomID -> set of connIDs
	byConn map[string]map[string]struct{} // connID -> set of roomIDs
}

// NewRoomTable creates an empty room membership table.
func NewRoomTable() *RoomTable {
	return &RoomTable{
		rooms:  make(map[string]map[string]struct{}),
		byConn: make(map[string]map[string]struct{}),
	}
}

// Subscribe adds a connection to a room. Idempotent: subscribing twice
// leaves exactly one membership edge.
func (t *RoomTable) Subscribe(connID, roomID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	room, ok := t.rooms[roomID]
	if !ok {
		room = make(map[string]struct{})
		t.rooms[roomID] = room
	}
	room[connID] = struct{}{}

	subs, ok := t.byConn[connID]
	if !ok {
		subs = make(map[string]struct{})
		t.byConn[connID] = subs
	}
	subs[roomID] = struct{}{}
}

// Unsubscribe removes a connection from a room. Idempotent: leaving a room
// never joined is a no-op.
func (t *RoomTable) Unsubscribe(connID, roomID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeEdge(connID, roomID)
}

// UnsubscribeAll removes a connection from every room it subscribes to and
// returns the rooms left. Used on disconnect.
func (t *RoomTable) UnsubscribeAll(connID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	left := make([]string, 0, len(t.byConn[connID]))
	for roomID := range t.byConn[connID] {
		left = append(left, roomID)
	}
	for _, roomID := range left {
		t.removeEdge(connID, roomID)
	}
	return left
}

// removeEdge deletes both sides of a membership edge. Caller holds the lock.
func (t *RoomTable) removeEdge(connID, roomID string) {
	if room, ok := t.rooms[roomID]; ok {
		delete(room, connID)
		if len(room) == 0 {
			delete(t.rooms, roomID)
		}
	}
	if subs, ok := t.byConn[connID]; ok {
		delete(subs, roomID)
		if len(subs) == 0 {
			delete(t.byConn, connID)
		}
	}
}

// SubscribersOf returns a snapshot of the connections subscribed to a room.
// Empty for unknown rooms; rooms are not pre-declared.
func (t *RoomTable) SubscribersOf(roomID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	room := t.rooms[roomID]
	conns := make([]string, 0, len(room))
	for connID := range room {
		conns = append(conns, connID)
	}
	return conns
}

// RoomsOf returns a snapshot of the rooms a connection subscribes to.
func (t *RoomTable) RoomsOf(connID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	subs := t.byConn[connID]
	rooms := make([]string, 0, len(subs))
	for roomID := range subs {
		rooms = append(rooms, roomID)
	}
	return rooms
}
