package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func testClient(hub *Hub, userID uint, buffer int) *Client {
	return &Client{hub: hub, UserID: userID, Role: "customer", send: make(chan []byte, buffer)}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return Message{}
	}
}

func TestNotifyUserReachesEveryConnection(t *testing.T) {
	hub, _ := startHub(t)

	tab1 := testClient(hub, 1, 4)
	tab2 := testClient(hub, 1, 4)
	other := testClient(hub, 2, 4)
	require.True(t, hub.Register(tab1))
	require.True(t, hub.Register(tab2))
	require.True(t, hub.Register(other))

	require.Eventually(t, func() bool { return len(hub.ConnectedUsers()) == 2 }, time.Second, 5*time.Millisecond)
	assert.True(t, hub.IsUserConnected(1))

	hub.NotifyUser(1, "booking_assigned", map[string]uint{"booking_id": 9})

	for _, c := range []*Client{tab1, tab2} {
		msg := receive(t, c)
		assert.Equal(t, "booking_assigned", msg.Type)
		assert.Equal(t, float64(9), msg.Data.(map[string]interface{})["booking_id"])
	}
	assert.Empty(t, other.send)

	hub.NotifyUser(42, "booking_updated", nil)
}

func TestNotifyUserDropsWhenBufferFull(t *testing.T) {
	hub, _ := startHub(t)
	client := testClient(hub, 1, 1)
	require.True(t, hub.Register(client))
	require.Eventually(t, func() bool { return hub.IsUserConnected(1) }, time.Second, 5*time.Millisecond)

	hub.NotifyUser(1, "first", nil)
	hub.NotifyUser(1, "second", nil)

	assert.Equal(t, "first", receive(t, client).Type)
	assert.Empty(t, client.send)
}

func TestUnregisterAndShutdown(t *testing.T) {
	hub, cancel := startHub(t)
	leaving := testClient(hub, 1, 1)
	staying := testClient(hub, 2, 1)
	require.True(t, hub.Register(leaving))
	require.True(t, hub.Register(staying))

	hub.Unregister(leaving)
	require.Eventually(t, func() bool { return !hub.IsUserConnected(1) }, time.Second, 5*time.Millisecond)
	_, open := <-leaving.send
	assert.False(t, open)

	cancel()
	require.Eventually(t, func() bool { return !hub.IsUserConnected(2) }, time.Second, 5*time.Millisecond)
	_, open = <-staying.send
	assert.False(t, open)

	assert.False(t, hub.Register(testClient(hub, 3, 1)))
	hub.Unregister(staying)
}

func TestPingHandlerRepliesPong(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := testClient(hub, 1, 1)

	hub.handle(client, &Message{Type: "ping"})
	assert.Equal(t, "pong", receive(t, client).Type)

	hub.handle(client, &Message{Type: "unknown"})
	assert.Empty(t, client.send)
}

func TestServeWebSocketEndToEnd(t *testing.T) {
	hub, _ := startHub(t)
	upgrader := NewUpgrader(nil)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = ServeWebSocket(hub, upgrader, w, r, 7, "technician")
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return hub.IsUserConnected(7) }, time.Second, 5*time.Millisecond)
	hub.NotifyUser(7, "booking_assigned", map[string]int{"booking_id": 3})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "booking_assigned", msg.Type)

	require.NoError(t, conn.WriteJSON(Message{Type: "ping"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "pong", msg.Type)
}

func TestUpgraderOriginCheck(t *testing.T) {
	upgrader := NewUpgrader([]string{"https://app.example"})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://app.example")
	assert.True(t, upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, upgrader.CheckOrigin(req))

	assert.True(t, NewUpgrader([]string{"*"}).CheckOrigin(req))
}

func TestSendAfterShutdownIsRefused(t *testing.T) {
	hub, cancel := startHub(t)
	client := testClient(hub, 1, 1)
	require.True(t, hub.Register(client))
	require.Eventually(t, func() bool { return hub.IsUserConnected(1) }, time.Second, 5*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return !hub.IsUserConnected(1) }, time.Second, 5*time.Millisecond)

	assert.NotPanics(t, func() {
		hub.handle(client, &Message{Type: "ping"})
	})
	assert.ErrorIs(t, client.SendMessage(&Message{Type: "pong"}), ErrClientClosed)
}
