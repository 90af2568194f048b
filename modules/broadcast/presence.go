package broadcast

import "sort"

// PresenceAggregator derives the set of online users from the session
// registry. Presence is never stored: it is recomputed from registry state
// on every session transition, so it can never drift.
type PresenceAggregator struct {
	registry *SessionRegistry
}

// NewPresenceAggregator creates an aggregator over a session registry.
func NewPresenceAggregator(registry *SessionRegistry) *PresenceAggregator {
	return &PresenceAggregator{registry: registry}
}

// OnSessionChange recomputes the online set after a session transition edge
// (first session added or last session removed) and returns the full set to
// broadcast. Presence is global, not per-room: every connection receives the
// snapshot. Acceptable at small scale; a per-room redesign is the documented
// scaling path.
func (p *PresenceAggregator) OnSessionChange(_ string, _ bool) []string {
	return p.CurrentOnline()
}

// CurrentOnline returns the sorted set of user identities with at least one
// live session.
func (p *PresenceAggregator) CurrentOnline() []string {
	users := p.registry.OnlineUsers()
	sort.Strings(users)
	return users
}
