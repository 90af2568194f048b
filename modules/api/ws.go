package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	domain "github.com/example/channel-chat-demo/domain/chat"
	"github.com/example/channel-chat-demo/modules/broadcast"
)

// Rate limiting constants
const (
	messagesPerSecond = 10
	burstSize         = 20
)

// maxInboundFrameBytes caps a single client frame. Oversized frames close the
// connection at the transport level.
const maxInboundFrameBytes = 64 * 1024

// inboundType enumerates the closed set of client-to-server frames. Dispatch
// is table-driven; a type outside the set is rejected with an error frame,
// never silently ignored.
type inboundType string

// Inbound frame types.
const (
	inboundIdentify    inboundType = "identify"
	inboundSubscribe   inboundType = "subscribe"
	inboundUnsubscribe inboundType = "unsubscribe"
)

// inboundFrame is the wire envelope for every client-to-server frame.
type inboundFrame struct {
	Type    inboundType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// IdentifyPayload binds the connection to a user identity.
type IdentifyPayload struct {
	UserID string `json:"user_id"`
}

// RoomRequestPayload targets a channel for subscribe and unsubscribe.
type RoomRequestPayload struct {
	ChannelID string `json:"channel_id"`
}

type inboundHandler func(sess *wsSession, payload json.RawMessage)

// wsSession is the per-connection state the reader loop carries.
type wsSession struct {
	connID  string
	client  *broadcast.Client
	limiter *rateLimiter
}

// rateLimiter implements a simple token bucket rate limiter.
type rateLimiter struct {
	tokens     int
	maxTokens  int
	refillRate int // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

func newRateLimiter(maxTokens, refillRate int) *rateLimiter {
	return &rateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(r.lastRefill)
	tokensToAdd := int(elapsed.Seconds()) * r.refillRate
	if tokensToAdd > 0 {
		r.tokens += tokensToAdd
		if r.tokens > r.maxTokens {
			r.tokens = r.maxTokens
		}
		r.lastRefill = now
	}

	if r.tokens > 0 {
		r.tokens--
		return true
	}
	return false
}

// buildWSRoutes returns the dispatch table for inbound frames.
func (m *APIModule) buildWSRoutes() map[inboundType]inboundHandler {
	return map[inboundType]inboundHandler{
		inboundIdentify:    m.handleIdentify,
		inboundSubscribe:   m.handleSubscribe,
		inboundUnsubscribe: m.handleUnsubscribe,
	}
}

// handleWebSocket handles WebSocket connections at /ws. An optional ?user_id=
// query identifies the connection immediately; otherwise the client sends an
// identify frame.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	connID := uuid.New().String()
	c.SetReadLimit(maxInboundFrameBytes)

	client, err := m.hub.Connect(connID)
	if err != nil {
		log.Printf("[api] Failed to admit WebSocket connection: %v", err)
		return
	}
	defer m.hub.Disconnect(connID)

	sess := &wsSession{
		connID:  connID,
		client:  client,
		limiter: newRateLimiter(burstSize, messagesPerSecond),
	}

	// Single writer goroutine: every outbound frame, hub fan-out and
	// per-connection acks alike, flows through the client queue.
	go m.writePump(c, client)

	if data, err := broadcast.EncodeFrame(broadcast.FrameConnected, broadcast.ConnectedPayload{ConnectionID: connID}); err == nil {
		client.Send(data)
	}

	if userID := c.Query("user_id"); userID != "" {
		m.identify(sess, userID)
	}

	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[api] Read error from %s: %v", connID, err)
			}
			break
		}

		if !sess.limiter.allow() {
			client.Send(broadcast.EncodeErrorFrame("Rate limit exceeded, please slow down"))
			continue
		}

		var frame inboundFrame
		if err := json.Unmarshal(msgBytes, &frame); err != nil {
			client.Send(broadcast.EncodeErrorFrame("Invalid frame format"))
			continue
		}

		handler, ok := m.wsRoutes[frame.Type]
		if !ok {
			client.Send(broadcast.EncodeErrorFrame("Unknown frame type: " + string(frame.Type)))
			continue
		}
		handler(sess, frame.Payload)
	}
}

// writePump drains the client's outbound queue onto the socket. It owns all
// writes; it exits when the hub disconnects the client or a write fails.
func (m *APIModule) writePump(c *websocket.Conn, client *broadcast.Client) {
	defer c.Close()
	for {
		select {
		case data := <-client.Outbound():
			if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-client.Done():
			return
		}
	}
}

func (m *APIModule) handleIdentify(sess *wsSession, payload json.RawMessage) {
	var req IdentifyPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		sess.client.Send(broadcast.EncodeErrorFrame("Invalid identify payload"))
		return
	}
	if req.UserID == "" {
		sess.client.Send(broadcast.EncodeErrorFrame("user_id is required"))
		return
	}
	m.identify(sess, req.UserID)
}

// identify binds the connection to a user and acknowledges with the current
// presence snapshot, so a fresh session does not wait for the next presence
// edge to learn who is online.
func (m *APIModule) identify(sess *wsSession, userID string) {
	if err := m.hub.Identify(sess.connID, userID); err != nil {
		if errors.Is(err, domain.ErrDuplicateConnection) {
			sess.client.Send(broadcast.EncodeErrorFrame("Connection already identified"))
		} else {
			sess.client.Send(broadcast.EncodeErrorFrame("Failed to identify connection"))
		}
		return
	}

	if data, err := broadcast.EncodeFrame(broadcast.FrameIdentified, IdentifyPayload{UserID: userID}); err == nil {
		sess.client.Send(data)
	}
	if data, err := broadcast.EncodeFrame(broadcast.FramePresence, broadcast.PresencePayload{
		Users: m.hub.CurrentOnline(),
		At:    time.Now().UTC(),
	}); err == nil {
		sess.client.Send(data)
	}

	log.Printf("[api] Connection %s identified as user %s", sess.connID, userID)
}

// handleSubscribe joins the connection to a room's live feed. Subscription is
// gated on durable channel membership; a denial leaves the connection open.
func (m *APIModule) handleSubscribe(sess *wsSession, payload json.RawMessage) {
	var req RoomRequestPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		sess.client.Send(broadcast.EncodeErrorFrame("Invalid subscribe payload"))
		return
	}
	if req.ChannelID == "" {
		sess.client.Send(broadcast.EncodeErrorFrame("channel_id is required"))
		return
	}

	userID, identified := m.hub.UserOf(sess.connID)
	if !identified {
		sess.client.Send(broadcast.EncodeErrorFrame("Identify before subscribing"))
		return
	}

	member, err := m.chatModule.IsChannelMember(context.Background(), userID, req.ChannelID)
	if err != nil {
		sess.client.Send(broadcast.EncodeErrorFrame("Failed to check channel membership"))
		return
	}
	if !member {
		sess.client.Send(broadcast.EncodeErrorFrame(domain.ErrAuthorizationDenied.Error()))
		return
	}

	if err := m.hub.Subscribe(sess.connID, req.ChannelID); err != nil {
		sess.client.Send(broadcast.EncodeErrorFrame("Failed to subscribe"))
		return
	}

	if data, err := broadcast.EncodeFrame(broadcast.FrameSubscribed, broadcast.RoomPayload{RoomID: req.ChannelID}); err == nil {
		sess.client.Send(data)
	}
}

func (m *APIModule) handleUnsubscribe(sess *wsSession, payload json.RawMessage) {
	var req RoomRequestPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		sess.client.Send(broadcast.EncodeErrorFrame("Invalid unsubscribe payload"))
		return
	}
	if req.ChannelID == "" {
		sess.client.Send(broadcast.EncodeErrorFrame("channel_id is required"))
		return
	}

	m.hub.Unsubscribe(sess.connID, req.ChannelID)

	if data, err := broadcast.EncodeFrame(broadcast.FrameUnsubscribed, broadcast.RoomPayload{RoomID: req.ChannelID}); err == nil {
		sess.client.Send(data)
	}
}
