package timeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/channel-chat-demo/domain/chat"
)

// fakeLister serves pages from an in-memory slice the way the store does:
// newest first, strictly older than beforeID.
type fakeLister struct {
	messages []chat.Message // ascending by id
	calls    atomic.Int32
	err      error
}

func (f *fakeLister) ListMessagesBefore(_ context.Context, channelID string, beforeID int64, limit int) ([]chat.Message, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}

	var page []chat.Message
	for i := len(f.messages) - 1; i >= 0 && len(page) < limit; i-- {
		msg := f.messages[i]
		if msg.ChannelID != channelID {
			continue
		}
		if beforeID > 0 && msg.ID >= beforeID {
			continue
		}
		page = append(page, msg)
	}
	return page, nil
}

func seedMessages(channelID string, from, to int64) []chat.Message {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	msgs := make([]chat.Message, 0, to-from+1)
	for id := from; id <= to; id++ {
		msgs = append(msgs, chat.Message{
			ID:        id,
			ChannelID: channelID,
			SenderID:  "alice",
			Text:      "hello",
			CreatedAt: base.Add(time.Duration(id) * time.Second),
		})
	}
	return msgs
}

func messageIDs(msgs []chat.Message) []int64 {
	ids := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestTimeline_PaginateToStartOfHistory(t *testing.T) {
	lister := &fakeLister{messages: seedMessages("room-a", 1, 120)}
	tl := NewTimeline(lister, 50)

	require.NoError(t, tl.SelectRoom(context.Background(), "room-a"))
	assert.Equal(t, StateReady, tl.State())
	assert.True(t, tl.HasMore())

	view := tl.Messages()
	require.Len(t, view, 50)
	assert.Equal(t, int64(71), view[0].ID, "view is oldest first")
	assert.Equal(t, int64(120), view[len(view)-1].ID)

	require.NoError(t, tl.LoadOlder(context.Background()))
	view = tl.Messages()
	require.Len(t, view, 100)
	assert.Equal(t, int64(21), view[0].ID)
	assert.True(t, tl.HasMore())

	// The final page comes back short, which ends pagination.
	require.NoError(t, tl.LoadOlder(context.Background()))
	view = tl.Messages()
	require.Len(t, view, 120)
	assert.Equal(t, int64(1), view[0].ID)
	assert.False(t, tl.HasMore())

	calls := lister.calls.Load()
	require.NoError(t, tl.LoadOlder(context.Background()))
	assert.Equal(t, calls, lister.calls.Load(), "exhausted history triggers no fetch")
}

func TestTimeline_LoadOlderGuards(t *testing.T) {
	lister := &fakeLister{messages: seedMessages("room-a", 1, 10)}
	tl := NewTimeline(lister, 50)

	// LoadOlder before any room is selected is a no-op.
	require.NoError(t, tl.LoadOlder(context.Background()))
	assert.Zero(t, lister.calls.Load())

	require.NoError(t, tl.SelectRoom(context.Background(), "room-a"))
	assert.False(t, tl.HasMore(), "short initial page means no older history")
	require.NoError(t, tl.LoadOlder(context.Background()))
	assert.Equal(t, int32(1), lister.calls.Load())
}

func TestTimeline_ApplyLive(t *testing.T) {
	lister := &fakeLister{messages: seedMessages("room-a", 1, 3)}
	tl := NewTimeline(lister, 50)
	require.NoError(t, tl.SelectRoom(context.Background(), "room-a"))

	live := chat.Message{
		ID:        4,
		ChannelID: "room-a",
		SenderID:  "bob",
		Text:      "new",
		CreatedAt: time.Date(2026, 8, 1, 13, 0, 0, 0, time.UTC),
	}
	assert.True(t, tl.ApplyLive(live))
	assert.Equal(t, []int64{1, 2, 3, 4}, messageIDs(tl.Messages()))

	// A duplicate of a held message changes nothing.
	assert.False(t, tl.ApplyLive(live))
	assert.Equal(t, []int64{1, 2, 3, 4}, messageIDs(tl.Messages()))

	// Messages for other rooms are ignored.
	other := live
	other.ID = 99
	other.ChannelID = "room-b"
	assert.False(t, tl.ApplyLive(other))
	assert.Len(t, tl.Messages(), 4)
}

func TestTimeline_LivePushRacingHistoryPageDeduplicates(t *testing.T) {
	msgs := seedMessages("room-a", 1, 60)
	lister := &fakeLister{messages: msgs}
	tl := NewTimeline(lister, 50)
	require.NoError(t, tl.SelectRoom(context.Background(), "room-a"))

	// A live push duplicating a message the initial page delivered.
	assert.False(t, tl.ApplyLive(msgs[30]), "message 31 is already in view")

	require.NoError(t, tl.LoadOlder(context.Background()))
	view := tl.Messages()
	require.Len(t, view, 60)
	assert.Equal(t, int64(1), view[0].ID)

	// And one duplicating a message the older page delivered.
	assert.False(t, tl.ApplyLive(msgs[4]))
	assert.Len(t, tl.Messages(), 60)
}

func TestTimeline_ApplyDelete(t *testing.T) {
	lister := &fakeLister{messages: seedMessages("room-a", 1, 5)}
	tl := NewTimeline(lister, 50)
	require.NoError(t, tl.SelectRoom(context.Background(), "room-a"))

	assert.True(t, tl.ApplyDelete(3, "room-a"))
	assert.Equal(t, []int64{1, 2, 4, 5}, messageIDs(tl.Messages()))

	assert.False(t, tl.ApplyDelete(3, "room-a"), "already removed")
	assert.False(t, tl.ApplyDelete(4, "room-b"), "wrong room")
	assert.Len(t, tl.Messages(), 4)
}

func TestTimeline_SelectRoomResetsView(t *testing.T) {
	msgs := append(seedMessages("room-a", 1, 60), seedMessages("room-b", 200, 205)...)
	lister := &fakeLister{messages: msgs}
	tl := NewTimeline(lister, 50)

	require.NoError(t, tl.SelectRoom(context.Background(), "room-a"))
	assert.True(t, tl.HasMore())

	require.NoError(t, tl.SelectRoom(context.Background(), "room-b"))
	assert.Equal(t, "room-b", tl.Room())
	assert.False(t, tl.HasMore())
	assert.Equal(t, []int64{200, 201, 202, 203, 204, 205}, messageIDs(tl.Messages()))

	// Live frames for the previous room no longer apply.
	assert.False(t, tl.ApplyLive(msgs[0]))
}

func TestTimeline_InitialLoadFailureReturnsToIdle(t *testing.T) {
	lister := &fakeLister{err: errors.New("store unavailable")}
	tl := NewTimeline(lister, 50)

	err := tl.SelectRoom(context.Background(), "room-a")
	require.Error(t, err)
	assert.Equal(t, StateIdle, tl.State())
	assert.Empty(t, tl.Messages())
}

func TestTimeline_LoadOlderFailureKeepsView(t *testing.T) {
	lister := &fakeLister{messages: seedMessages("room-a", 1, 60)}
	tl := NewTimeline(lister, 50)
	require.NoError(t, tl.SelectRoom(context.Background(), "room-a"))

	lister.err = errors.New("store unavailable")
	err := tl.LoadOlder(context.Background())
	require.Error(t, err)

	assert.Equal(t, StateReady, tl.State(), "a failed older fetch is retryable")
	assert.True(t, tl.HasMore())
	assert.Len(t, tl.Messages(), 50)
}
