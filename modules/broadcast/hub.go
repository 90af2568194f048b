package broadcast

import (
	"log"
	"sync"
	"time"

	domain "github.com/example/channel-chat-demo/domain/chat"
)

// sendBufferSize is the per-connection outbound queue. A consumer that falls
// further behind than this starts losing live frames; it recovers via
// history fetch, never by blocking the publisher.
const sendBufferSize = 256

// Client is a connection's outbound half. The hub pushes frames into the
// buffered send channel; the transport drains it from a writer goroutine.
type Client struct {
	ID string

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(id string) *Client {
	return &Client{
		ID:   id,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
}

// Outbound returns the channel the transport's writer drains.
func (c *Client) Outbound() <-chan []byte {
	return c.send
}

// Done is closed when the client is disconnected from the hub.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Send queues a frame for the transport writer without blocking. Used by the
// transport for per-connection frames (acks, errors), so every write shares
// the single writer goroutine.
func (c *Client) Send(data []byte) bool {
	return c.trySend(data)
}

// trySend queues a frame without blocking. A full buffer or closed client
// drops the frame; delivery is fire-and-forget.
func (c *Client) trySend(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Hub owns the live fan-out state: the session registry, the room
// membership table, and the derived presence set. All of it is transient and
// rebuilt from zero on restart; the store owns everything durable.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	sessions *SessionRegistry
	rooms    *RoomTable
	presence *PresenceAggregator
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	sessions := NewSessionRegistry()
	return &Hub{
		clients:  make(map[string]*Client),
		sessions: sessions,
		rooms:    NewRoomTable(),
		presence: NewPresenceAggregator(sessions),
	}
}

// Connect admits a new connection and returns its client handle. The
// connection carries no identity yet; Identify binds one.
func (h *Hub) Connect(connID string) (*Client, error) {
	client := newClient(connID)

	h.mu.Lock()
	if _, exists := h.clients[connID]; exists {
		h.mu.Unlock()
		return nil, domain.ErrDuplicateConnection
	}
	h.clients[connID] = client
	total := len(h.clients)
	h.mu.Unlock()

	log.Printf("[hub] Client %s connected. Total clients: %d", connID, total)
	return client, nil
}

// Identify binds a connection to a user identity. If this is the user's
// first live session, the full presence snapshot is broadcast to every
// connection.
func (h *Hub) Identify(connID, userID string) error {
	h.mu.RLock()
	_, known := h.clients[connID]
	h.mu.RUnlock()
	if !known {
		return domain.ErrUnknownConnection
	}

	first, err := h.sessions.Register(connID, userID)
	if err != nil {
		return err
	}
	if first {
		h.broadcastPresence(userID, true)
	}
	return nil
}

// Subscribe adds the connection to a room's live feed. The caller has
// already authorized the user against durable channel membership; the hub
// trusts it. Idempotent.
func (h *Hub) Subscribe(connID, roomID string) error {
	h.mu.RLock()
	_, known := h.clients[connID]
	h.mu.RUnlock()
	if !known {
		return domain.ErrUnknownConnection
	}
	h.rooms.Subscribe(connID, roomID)
	return nil
}

// Unsubscribe removes the connection from a room's live feed. Idempotent.
func (h *Hub) Unsubscribe(connID, roomID string) {
	h.rooms.Unsubscribe(connID, roomID)
}

// Disconnect removes a connection entirely: membership edges first, then the
// session binding, then the client handle. Returns the rooms left. Safe to
// call twice, and safe to run concurrently with an in-flight publish — the
// publish either delivered before removal or skips the gone client.
func (h *Hub) Disconnect(connID string) []string {
	left := h.rooms.UnsubscribeAll(connID)
	userID, last, known := h.sessions.Unregister(connID)

	h.mu.Lock()
	client, connected := h.clients[connID]
	delete(h.clients, connID)
	total := len(h.clients)
	h.mu.Unlock()

	if connected {
		client.close()
		log.Printf("[hub] Client %s disconnected from %d room(s). Total clients: %d", connID, len(left), total)
	}
	if known && last {
		h.broadcastPresence(userID, false)
	}
	return left
}

// Publish delivers a frame to every connection subscribed to the room at
// call time and returns the delivered count. Connections subscribing later
// never receive it retroactively. Holding the write lock across the
// non-blocking sends serializes the room's live order for all subscribers.
func (h *Hub) Publish(roomID string, data []byte) int {
	subscribers := h.rooms.SubscribersOf(roomID)

	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for _, connID := range subscribers {
		client, ok := h.clients[connID]
		if !ok {
			continue
		}
		if client.trySend(data) {
			delivered++
		} else {
			log.Printf("[hub] Dropped frame for slow client %s in room %s", connID, roomID)
		}
	}
	return delivered
}

// BroadcastAll delivers a frame to every connection regardless of rooms.
func (h *Hub) BroadcastAll(data []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for _, client := range h.clients {
		if client.trySend(data) {
			delivered++
		}
	}
	return delivered
}

func (h *Hub) broadcastPresence(userID string, online bool) {
	snapshot := h.presence.OnSessionChange(userID, online)
	data, err := EncodeFrame(FramePresence, PresencePayload{Users: snapshot, At: time.Now().UTC()})
	if err != nil {
		log.Printf("[hub] Failed to encode presence frame: %v", err)
		return
	}
	h.BroadcastAll(data)
}

// CurrentOnline returns the sorted set of online user identities.
func (h *Hub) CurrentOnline() []string {
	return h.presence.CurrentOnline()
}

// SessionsFor returns a user's live connection ids.
func (h *Hub) SessionsFor(userID string) []string {
	return h.sessions.SessionsFor(userID)
}

// UserOf returns the identity bound to a connection, if identified.
func (h *Hub) UserOf(connID string) (string, bool) {
	return h.sessions.UserOf(connID)
}

// SubscribersOf returns the connections subscribed to a room.
func (h *Hub) SubscribersOf(roomID string) []string {
	return h.rooms.SubscribersOf(roomID)
}

// RoomsOf returns the rooms a connection subscribes to.
func (h *Hub) RoomsOf(connID string) []string {
	return h.rooms.RoomsOf(connID)
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomClientCount returns the number of connections subscribed to a room.
func (h *Hub) RoomClientCount(roomID string) int {
	return len(h.rooms.SubscribersOf(roomID))
}

// CloseAll disconnects every client. Used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	ids := make([]string, 0, len(h.clients))
	for connID := range h.clients {
		ids = append(ids, connID)
	}
	h.mu.RUnlock()

	for _, connID := range ids {
		h.Disconnect(connID)
	}
}
