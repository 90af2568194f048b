package broadcast

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/example/channel-chat-demo/domain/chat"
)

func TestSessionRegistry_FirstAndLastSession(t *testing.T) {
	r := NewSessionRegistry()

	first, err := r.Register("conn-1", "alice")
	require.NoError(t, err)
	assert.True(t, first, "first session should report the offline -> online edge")

	first, err = r.Register("conn-2", "alice")
	require.NoError(t, err)
	assert.False(t, first, "second session of the same user is not an edge")

	userID, last, known := r.Unregister("conn-1")
	assert.Equal(t, "alice", userID)
	assert.False(t, last, "user still has a live session")
	assert.True(t, known)

	userID, last, known = r.Unregister("conn-2")
	assert.Equal(t, "alice", userID)
	assert.True(t, last, "removing the final session is the online -> offline edge")
	assert.True(t, known)

	assert.Empty(t, r.OnlineUsers())
}

func TestSessionRegistry_DuplicateConnection(t *testing.T) {
	r := NewSessionRegistry()

	_, err := r.Register("conn-1", "alice")
	require.NoError(t, err)

	_, err = r.Register("conn-1", "bob")
	assert.ErrorIs(t, err, domain.ErrDuplicateConnection)

	// The original binding must survive the rejected re-registration.
	userID, ok := r.UserOf("conn-1")
	require.True(t, ok)
	assert.Equal(t, "alice", userID)
}

func TestSessionRegistry_UnregisterUnknownIsNoOp(t *testing.T) {
	r := NewSessionRegistry()

	userID, last, known := r.Unregister("never-registered")
	assert.Empty(t, userID)
	assert.False(t, last)
	assert.False(t, known)
}

func TestSessionRegistry_OnlineMeansAtLeastOneSession(t *testing.T) {
	r := NewSessionRegistry()

	_, err := r.Register("a1", "alice")
	require.NoError(t, err)
	_, err = r.Register("a2", "alice")
	require.NoError(t, err)
	_, err = r.Register("b1", "bob")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"alice", "bob"}, r.OnlineUsers())
	assert.ElementsMatch(t, []string{"a1", "a2"}, r.SessionsFor("alice"))

	r.Unregister("a1")
	assert.ElementsMatch(t, []string{"alice", "bob"}, r.OnlineUsers(),
		"a user with a remaining session stays online")

	r.Unregister("a2")
	assert.ElementsMatch(t, []string{"bob"}, r.OnlineUsers())
	assert.Empty(t, r.SessionsFor("alice"))
}

func TestSessionRegistry_ConcurrentRegisterUnregister(t *testing.T) {
	r := NewSessionRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			connID := fmt.Sprintf("conn-%d", i)
			_, err := r.Register(connID, "alice")
			assert.NoError(t, err)
			r.Unregister(connID)
		}(i)
	}
	wg.Wait()

	assert.Empty(t, r.OnlineUsers())
	assert.Empty(t, r.SessionsFor("alice"))
}
