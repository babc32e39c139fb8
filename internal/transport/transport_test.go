package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialPeer(t *testing.T, url, id string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, url, id)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func waitPeerCount(t *testing.T, hub *Hub, want int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.PeerCount() == want },
		2*time.Second, 10*time.Millisecond)
}

func recv(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "connection closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestHub_BroadcastReachesAllPeers(t *testing.T) {
	hub, url := startHub(t)
	a := dialPeer(t, url, "peer-a")
	b := dialPeer(t, url, "peer-b")
	waitPeerCount(t, hub, 2)

	require.NoError(t, hub.Broadcast([]byte("hello")))

	assert.Equal(t, "hello", string(recv(t, a.Inbound())))
	assert.Equal(t, "hello", string(recv(t, b.Inbound())))
}

func TestHub_SendToPeer(t *testing.T) {
	hub, url := startHub(t)
	a := dialPeer(t, url, "peer-a")
	b := dialPeer(t, url, "peer-b")
	waitPeerCount(t, hub, 2)

	require.NoError(t, hub.SendToPeer("peer-b", []byte("direct")))
	assert.Equal(t, "direct", string(recv(t, b.Inbound())))

	// nothing should have reached peer-a
	select {
	case msg := <-a.Inbound():
		t.Fatalf("unexpected message for peer-a: %q", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_SendToUnknownPeer(t *testing.T) {
	hub, _ := startHub(t)
	err := hub.SendToPeer("ghost", []byte("x"))
	assert.ErrorIs(t, err, ErrUnknownPeer)
}

func TestHub_InboundCarriesPeerID(t *testing.T) {
	hub, url := startHub(t)
	c := dialPeer(t, url, "peer-a")
	waitPeerCount(t, hub, 1)

	require.NoError(t, c.Broadcast([]byte("uplink")))

	select {
	case in := <-hub.Inbound():
		assert.Equal(t, "peer-a", in.PeerID)
		assert.Equal(t, "uplink", string(in.Data))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for inbound")
	}
}

func TestHub_PeerDisconnect(t *testing.T) {
	hub, url := startHub(t)
	c := dialPeer(t, url, "peer-a")
	waitPeerCount(t, hub, 1)

	c.Close()
	waitPeerCount(t, hub, 0)

	err := hub.SendToPeer("peer-a", []byte("x"))
	assert.ErrorIs(t, err, ErrUnknownPeer)
}

func TestHub_DepartureNotified(t *testing.T) {
	hub, url := startHub(t)
	c := dialPeer(t, url, "peer-a")
	waitPeerCount(t, hub, 1)

	c.Close()

	select {
	case id := <-hub.Departures():
		assert.Equal(t, "peer-a", id)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for departure")
	}
}

func TestHub_ReconnectDoesNotEvictSuccessor(t *testing.T) {
	hub, url := startHub(t)
	old := dialPeer(t, url, "peer-a")
	waitPeerCount(t, hub, 1)

	// same id reconnects; the replaced connection dies afterwards
	dialPeer(t, url, "peer-a")
	old.Close()

	// the successor stays connected and reachable throughout
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, hub.PeerCount())
	assert.NoError(t, hub.SendToPeer("peer-a", []byte("still here")))

	select {
	case id := <-hub.Departures():
		t.Fatalf("unexpected departure for %q", id)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestClient_InboundClosedOnHostShutdown(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), "peer-a")
	require.NoError(t, err)
	defer c.Close()
	waitPeerCount(t, hub, 1)

	srv.CloseClientConnections()

	select {
	case _, ok := <-c.Inbound():
		assert.False(t, ok, "inbound channel closes when the host goes away")
	case <-time.After(2 * time.Second):
		t.Fatal("inbound channel never closed")
	}
	srv.Close()
}

func TestDial_Failure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, err := Dial(ctx, "ws://127.0.0.1:1/ws", "peer-a")
	assert.Error(t, err)
}
