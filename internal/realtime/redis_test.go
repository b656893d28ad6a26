package realtime

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRelayFallsBackToLocalDelivery(t *testing.T) {
	hub := NewHub(nil)
	srv := newHubServer(t, hub)
	conn := dialDisplay(t, srv)
	joinAs(t, conn, "alice")

	// Nothing listens on port 1, so every Redis call fails fast.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, MaxRetries: -1})
	relay := newRedisRelay(client, "test:media:", hub, nil)
	t.Cleanup(func() { _ = relay.Close() })

	err := relay.Publish(context.Background(), "alice", MediaUpdated("group-7"))
	assert.ErrorContains(t, err, "failed to relay event")

	ev := readEvent(t, conn)
	assert.Equal(t, EventMediaUpdated, ev.Type)
	assert.Equal(t, "group-7", ev.GroupID)
}

func TestRedisRelayDispatch(t *testing.T) {
	hub := NewHub(nil)
	srv := newHubServer(t, hub)
	conn := dialDisplay(t, srv)
	joinAs(t, conn, "bob")

	relay := newRedisRelay(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), "", hub, nil)
	t.Cleanup(func() { _ = relay.Close() })
	assert.Equal(t, "adpanel:media:bob", relay.channel("bob"))

	relay.dispatch(context.Background(), "not json")

	payload, err := json.Marshal(relayEnvelope{UserID: "bob", Event: MediaUpdated("g2")})
	require.NoError(t, err)
	relay.dispatch(context.Background(), string(payload))

	ev := readEvent(t, conn)
	assert.Equal(t, "g2", ev.GroupID)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err = conn.ReadMessage()
	assert.True(t, err != nil && !websocket.IsCloseError(err), "malformed message produced no event")
}

func TestRedisRelayResubscribesAfterRedisComesBack(t *testing.T) {
	hub := NewHub(nil)
	srv := newHubServer(t, hub)
	conn := dialDisplay(t, srv)
	joinAs(t, conn, "carol")

	// Reserve an address with nothing listening on it yet.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	client := redis.NewClient(&redis.Options{Addr: addr, DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	relay := newRedisRelay(client, "test:media", hub, nil)
	relay.minBackoff = 10 * time.Millisecond
	relay.maxBackoff = 50 * time.Millisecond
	t.Cleanup(func() { _ = relay.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("relay stopped while redis was down: %v", err)
	case <-time.After(200 * time.Millisecond):
	}
	assert.False(t, relay.subscribed.Load())

	m := miniredis.NewMiniRedis()
	require.NoError(t, m.StartAddr(addr))
	t.Cleanup(m.Close)

	require.Eventually(t, relay.subscribed.Load, 5*time.Second, 10*time.Millisecond)

	// An event published by another instance reaches this instance's display.
	other := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = other.Close() })
	payload, err := json.Marshal(relayEnvelope{UserID: "carol", Event: MediaUpdated("g9")})
	require.NoError(t, err)
	require.NoError(t, other.Publish(context.Background(), "test:media:carol", payload).Err())

	ev := readEvent(t, conn)
	assert.Equal(t, EventMediaUpdated, ev.Type)
	assert.Equal(t, "g9", ev.GroupID)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}
