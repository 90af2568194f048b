package broadcast

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomTable_SubscribeIsIdempotent(t *testing.T) {
	rt := NewRoomTable()

	rt.Subscribe("conn-1", "room-a")
	rt.Subscribe("conn-1", "room-a")

	assert.Equal(t, []string{"conn-1"}, rt.SubscribersOf("room-a"))
	assert.Equal(t, []string{"room-a"}, rt.RoomsOf("conn-1"))
}

func TestRoomTable_UnsubscribeUnknownIsNoOp(t *testing.T) {
	rt := NewRoomTable()

	rt.Unsubscribe("conn-1", "room-a")
	rt.Subscribe("conn-1", "room-a")
	rt.Unsubscribe("conn-1", "room-never-joined")

	assert.Equal(t, []string{"room-a"}, rt.RoomsOf("conn-1"))
}

func TestRoomTable_BidirectionalConsistency(t *testing.T) {
	rt := NewRoomTable()

	rt.Subscribe("conn-1", "room-a")
	rt.Subscribe("conn-1", "room-b")
	rt.Subscribe("conn-2", "room-a")

	assert.ElementsMatch(t, []string{"conn-1", "conn-2"}, rt.SubscribersOf("room-a"))
	assert.ElementsMatch(t, []string{"room-a", "room-b"}, rt.RoomsOf("conn-1"))

	rt.Unsubscribe("conn-1", "room-a")
	assert.Equal(t, []string{"conn-2"}, rt.SubscribersOf("room-a"))
	assert.Equal(t, []string{"room-b"}, rt.RoomsOf("conn-1"))
}

func TestRoomTable_UnsubscribeAll(t *testing.T) {
	rt := NewRoomTable()

	rt.Subscribe("conn-1", "room-a")
	rt.Subscribe("conn-1", "room-b")
	rt.Subscribe("conn-2", "room-a")

	left := rt.UnsubscribeAll("conn-1")
	assert.ElementsMatch(t, []string{"room-a", "room-b"}, left)

	// No dangling edges in either direction.
	assert.Empty(t, rt.RoomsOf("conn-1"))
	assert.Equal(t, []string{"conn-2"}, rt.SubscribersOf("room-a"))
	assert.Empty(t, rt.SubscribersOf("room-b"), "empty rooms are pruned")

	assert.Empty(t, rt.UnsubscribeAll("conn-1"), "second call is a no-op")
}

func TestRoomTable_ConcurrentSubscribe(t *testing.T) {
	rt := NewRoomTable()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rt.Subscribe("conn-1", "room-a")
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"conn-1"}, rt.SubscribersOf("room-a"),
		"concurrent subscribes leave exactly one membership edge")
}
