package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_RegisterAndBroadcast(t *testing.T) {
	t.Parallel()
	hub := NewHub()

	a, err := hub.Register(10, nil)
	require.NoError(t, err)
	b, err := hub.Register(10, nil)
	require.NoError(t, err)
	other, err := hub.Register(11, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, hub.ConnectionCount(10))
	assert.Equal(t, 2, hub.Broadcast(10, []byte("hello")))

	assert.Equal(t, "hello", string(<-a.Send))
	assert.Equal(t, "hello", string(<-b.Send))
	assert.Empty(t, other.Send)
}

func TestHub_UnregisterClosesSendOnce(t *testing.T) {
	t.Parallel()
	hub := NewHub()

	c, err := hub.Register(3, nil)
	require.NoError(t, err)

	hub.UnregisterClient(c)
	hub.UnregisterClient(c)

	_, open := <-c.Send
	assert.False(t, open)
	assert.Equal(t, 0, hub.ConnectionCount(3))
	assert.Equal(t, 0, hub.Broadcast(3, []byte("x")))
}

func TestHub_PerUserLimit(t *testing.T) {
	t.Parallel()
	hub := NewHub()
	for range maxConnsPerUser {
		_, err := hub.Register(5, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(5, nil)
	assert.ErrorIs(t, err, ErrUserFull)
}

func TestHub_FullBufferDrops(t *testing.T) {
	t.Parallel()
	hub := NewHub()
	c, err := hub.Register(8, nil)
	require.NoError(t, err)

	for range sendBuffer {
		require.True(t, c.TrySend([]byte("m")))
	}
	assert.False(t, c.TrySend([]byte("overflow")))
}

func TestHub_ShutdownRejectsNewClients(t *testing.T) {
	t.Parallel()
	hub := NewHub()
	c, err := hub.Register(1, nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	_, open := <-c.Send
	assert.False(t, open)

	_, err = hub.Register(1, nil)
	assert.ErrorIs(t, err, ErrServerFull)
	// shutdown already removed the client
	hub.UnregisterClient(c)
}

func TestHub_StartWiringForwardsUserChannel(t *testing.T) {
	rdb := newTestRedis(t)
	n := NewNotifier(rdb)
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := hub.Register(21, nil)
	require.NoError(t, err)
	require.NoError(t, hub.StartWiring(ctx, n))

	require.NoError(t, n.PublishUser(context.Background(), 21, `{"type":"unread_count","payload":{"count":1}}`))

	select {
	case msg := <-c.Send:
		assert.JSONEq(t, `{"type":"unread_count","payload":{"count":1}}`, string(msg))
	case <-time.After(time.Second):
		t.Fatal("hub did not forward the message")
	}
}
