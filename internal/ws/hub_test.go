package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, Serve(hub, w, r))
	}))
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBroadcastReachesAllClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Close()

	server := newTestServer(t, hub)
	first := dial(t, server)
	second := dial(t, server)

	// Give the hub a beat to register both connections.
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast(map[string]any{
		"slots":    map[string][]string{"2025-06-01": {"09:00"}},
		"bookings": []any{},
	})

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, message, err := conn.ReadMessage()
		require.NoError(t, err)

		var payload struct {
			Slots    map[string][]string `json:"slots"`
			Bookings []any               `json:"bookings"`
		}
		require.NoError(t, json.Unmarshal(message, &payload))
		assert.Equal(t, []string{"09:00"}, payload.Slots["2025-06-01"])
	}
}

func TestDisconnectedClientDoesNotBlockOthers(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Close()

	server := newTestServer(t, hub)
	gone := dial(t, server)
	alive := dial(t, server)

	time.Sleep(50 * time.Millisecond)
	gone.Close()
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast(map[string]string{"status": "ok"})

	alive.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := alive.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(message))
}

// A client whose send buffer is full gets dropped instead of stalling the
// broadcast loop; dropping closes its send channel.
func TestSlowClientIsDropped(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Close()

	slow := &Client{hub: hub, send: make(chan []byte)}
	hub.register <- slow

	hub.Broadcast(map[string]string{"status": "ok"})

	select {
	case _, ok := <-slow.send:
		assert.False(t, ok, "send channel should be closed by the drop")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the slow client to be dropped")
	}
}

func TestBroadcastNeverBlocksCaller(t *testing.T) {
	hub := NewHub() // Run intentionally not started.

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Broadcast(map[string]int{"i": i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked with no consumer")
	}
}
