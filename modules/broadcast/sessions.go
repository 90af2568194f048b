package broadcast

import (
	"sync"

	domain "github.com/example/channel-chat-demo/domain/chat"
)

// SessionRegistry maps live connections to user identities. A user may hold
// any number of simultaneous sessions (tabs, devices); none is privileged.
//
// Both directions of the mapping are guarded by one mutex so a reader never
// observes a connection bound to a user that does not list it, or vice versa.
type SessionRegistry struct {
	mu       sync.RWMutex
	users    map[string]string              // connID -> userID
	sessions map[string]map[string]struct{} // userID -> set of connIDs
}

// NewSessionRegistry creates an empty session registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		users:    make(map[string]string),
		sessions: make(map[string]map[string]struct{}),
	}
}

// Register binds a connection to a user identity. It reports whether this is
// the user's first live session (the offline -> online edge). Registering an
// already-known connection id returns ErrDuplicateConnection and leaves the
// existing binding untouched.
func (r *SessionRegistry) Register(connID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[connID]; exists {
		return false, domain.ErrDuplicateConnection
	}

	r.users[connID] = userID
	set, ok := r.sessions[userID]
	if !ok {
		set = make(map[string]struct{})
		r.sessions[userID] = set
	}
	set[connID] = struct{}{}
	return len(set) == 1, nil
}

// Unregister removes a connection. It returns the bound user identity and
// whether this was the user's last session (the online -> offline edge).
// Unknown connection ids are a benign no-op: disconnects race with cleanup.
func (r *SessionRegistry) Unregister(connID string) (userID string, last bool, known bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, known = r.users[connID]
	if !known {
		return "", false, false
	}

	delete(r.users, connID)
	set := r.sessions[userID]
	delete(set, connID)
	if len(set) == 0 {
		delete(r.sessions, userID)
		last = true
	}
	return userID, last, true
}

// SessionsFor returns a snapshot of a user's live connection ids. May be empty.
func (r *SessionRegistry) SessionsFor(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.sessions[userID]
	conns := make([]string, 0, len(set))
	for connID := range set {
		conns = append(conns, connID)
	}
	return conns
}

// UserOf returns the user identity bound to a connection, if any.
func (r *SessionRegistry) UserOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.users[connID]
	return userID, ok
}

// OnlineUsers returns the distinct user identities with at least one live
// session.
func (r *SessionRegistry) OnlineUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]string, 0, len(r.sessions))
	for userID := range r.sessions {
		users = append(users, userID)
	}
	return users
}
