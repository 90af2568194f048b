// Package timeline reconciles a room's message history with its live feed on
// behalf of a consumer (a UI, a bot, a test harness). It merges paged history
// fetches with pushed messages into one totally ordered, duplicate-free view.
package timeline

import (
	"context"
	"sort"
	"sync"

	"github.com/example/channel-chat-demo/domain/chat"
)

// State is the reconciler's loading state for the active room.
type State int

// Reconciler states.
const (
	StateIdle State = iota
	StateLoadingInitial
	StateReady
	StateLoadingOlder
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoadingInitial:
		return "loading_initial"
	case StateReady:
		return "ready"
	case StateLoadingOlder:
		return "loading_older"
	default:
		return "unknown"
	}
}

// Lister fetches history pages, newest first. beforeID == 0 means the newest
// page. The chat module satisfies this directly.
type Lister interface {
	ListMessagesBefore(ctx context.Context, channelID string, beforeID int64, limit int) ([]chat.Message, error)
}

// DefaultPageSize is used when NewTimeline gets a non-positive page size.
const DefaultPageSize = 50

// Timeline holds the merged view for one active room at a time. Switching
// rooms discards everything, including responses of fetches still in flight.
//
// The mutex is never held across a Lister call; in-flight results are
// validated against an epoch counter so a stale fetch cannot pollute the view
// after a room switch.
type Timeline struct {
	lister   Lister
	pageSize int

	mu       sync.Mutex
	room     string
	state    State
	hasMore  bool
	epoch    uint64
	messages []chat.Message // ascending by (CreatedAt, ID)
	seen     map[int64]struct{}
}

// NewTimeline creates an idle reconciler over a history source.
func NewTimeline(lister Lister, pageSize int) *Timeline {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Timeline{
		lister:   lister,
		pageSize: pageSize,
		seen:     make(map[int64]struct{}),
	}
}

// SelectRoom makes roomID the active room, discards the previous view, and
// loads the newest history page. Selecting the same room again reloads it.
func (t *Timeline) SelectRoom(ctx context.Context, roomID string) error {
	t.mu.Lock()
	t.epoch++
	epoch := t.epoch
	t.room = roomID
	t.state = StateLoadingInitial
	t.hasMore = false
	t.messages = nil
	t.seen = make(map[int64]struct{})
	t.mu.Unlock()

	page, err := t.lister.ListMessagesBefore(ctx, roomID, 0, t.pageSize)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.epoch != epoch {
		// A newer SelectRoom superseded this fetch; drop the result.
		return nil
	}
	if err != nil {
		t.state = StateIdle
		return err
	}
	t.merge(page)
	t.hasMore = len(page) == t.pageSize
	t.state = StateReady
	return nil
}

// LoadOlder fetches the page preceding the oldest message held. It is a no-op
// unless the view is Ready and an older page may exist, so repeated scroll
// triggers collapse into at most one in-flight fetch.
func (t *Timeline) LoadOlder(ctx context.Context) error {
	t.mu.Lock()
	if t.state != StateReady || !t.hasMore || len(t.messages) == 0 {
		t.mu.Unlock()
		return nil
	}
	epoch := t.epoch
	room := t.room
	beforeID := t.messages[0].ID
	t.state = StateLoadingOlder
	t.mu.Unlock()

	page, err := t.lister.ListMessagesBefore(ctx, room, beforeID, t.pageSize)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.epoch != epoch {
		return nil
	}
	if err != nil {
		t.state = StateReady
		return err
	}
	t.merge(page)
	t.hasMore = len(page) == t.pageSize
	t.state = StateReady
	return nil
}

// ApplyLive merges a pushed message into the view. Messages for other rooms
// are ignored, as are duplicates of messages already held (a live push can
// race a history page covering the same message). Reports whether the view
// changed.
func (t *Timeline) ApplyLive(msg chat.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == StateIdle || msg.ChannelID != t.room {
		return false
	}
	if _, dup := t.seen[msg.ID]; dup {
		return false
	}
	t.insert(msg)
	return true
}

// ApplyDelete removes a message from the view after a deletion push. Reports
// whether the view changed.
func (t *Timeline) ApplyDelete(messageID int64, channelID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if channelID != t.room {
		return false
	}
	if _, held := t.seen[messageID]; !held {
		return false
	}
	delete(t.seen, messageID)
	for i, msg := range t.messages {
		if msg.ID == messageID {
			t.messages = append(t.messages[:i], t.messages[i+1:]...)
			break
		}
	}
	return true
}

// merge inserts every unseen message of a history page. Caller holds the lock.
func (t *Timeline) merge(page []chat.Message) {
	for _, msg := range page {
		if _, dup := t.seen[msg.ID]; dup {
			continue
		}
		t.insert(msg)
	}
}

// insert places a message at its ordered position. Caller holds the lock.
func (t *Timeline) insert(msg chat.Message) {
	t.seen[msg.ID] = struct{}{}
	i := sort.Search(len(t.messages), func(i int) bool {
		return msg.Before(t.messages[i])
	})
	t.messages = append(t.messages, chat.Message{})
	copy(t.messages[i+1:], t.messages[i:])
	t.messages[i] = msg
}

// Room returns the active room id, empty when idle.
func (t *Timeline) Room() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.room
}

// State returns the current loading state.
func (t *Timeline) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// HasMore reports whether an older history page may exist.
func (t *Timeline) HasMore() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hasMore
}

// Messages returns a snapshot of the view, oldest first.
func (t *Timeline) Messages() []chat.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]chat.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages held.
func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}
