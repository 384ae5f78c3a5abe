package feed

import (
	"context"
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

// fakePlatform speaks just enough graphql-transport-ws to drive the client.
func fakePlatform(t *testing.T, token string, frames []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{Subprotocols: []string{subprotocol}}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var init message
		if conn.ReadJSON(&init) != nil || init.Type != "connection_init" {
			return
		}
		var payload map[string]string
		_ = json.Unmarshal(init.Payload, &payload)
		if payload["accessToken"] != token {
			return
		}
		_ = conn.WriteJSON(message{Type: "connection_ack"})

		for i := 0; i < 2; i++ {
			var sub message
			if conn.ReadJSON(&sub) != nil || sub.Type != "subscribe" {
				return
			}
		}
		for _, f := range frames {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(f))
		}
		// hold the connection until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestClient_ReceivesBalancesAndNotifications(t *testing.T) {
	srv := fakePlatform(t, "tok", []string{
		`{"type":"ping"}`,
		`{"id":"balances","type":"next","payload":{"data":{"availableBalances":{"amount":0.5,"balance":{"amount":12.345,"currency":"BTC"}}}}}`,
		`{"id":"notifications","type":"next","payload":{"data":{"notifications":{"id":"n1","type":"deposit","data":{"message":"Deposit credited","amount":0.25}}}}}`,
	})
	defer srv.Close()

	c := New(Config{URL: "ws" + strings.TrimPrefix(srv.URL, "http"), Token: "tok"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, _, ok := c.Display()
		return ok && len(c.Recent()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	text, currency, _ := c.Display()
	assert.Equal(t, "12.345", text)
	assert.Equal(t, "btc", currency)
	active, ok := c.ActiveCurrency()
	assert.True(t, ok)
	assert.Equal(t, "btc", active)

	note := c.Recent()[0]
	assert.True(t, strings.HasPrefix(note, "deposit "))
	assert.Contains(t, note, "Deposit credited")
	assert.Contains(t, note, "0.25")

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestClient_EmptyBeforeFirstUpdate(t *testing.T) {
	c := New(Config{URL: "ws://127.0.0.1:1"}, nil)
	_, _, ok := c.Display()
	assert.False(t, ok)
	_, ok = c.ActiveCurrency()
	assert.False(t, ok)
	assert.Empty(t, c.Recent())
}

func TestRing_KeepsNewestFirst(t *testing.T) {
	r := newRing[int](3)
	for i := 1; i <= 5; i++ {
		r.pushFront(i)
	}
	assert.Equal(t, []int{5, 4, 3}, r.items())
}

func TestURLFor(t *testing.T) {
	assert.Equal(t, "wss://stake.com/_api/websockets", URLFor("https://stake.com"))
	assert.Equal(t, "ws://localhost:8080/_api/websockets", URLFor("http://localhost:8080/"))
	assert.Equal(t, "", URLFor("::bad"))
}
