package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// logsServer confirms one subscription per connection and pushes sigs.
func logsServer(t *testing.T, sigs []string, connections *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()
		if connections != nil {
			connections.Add(1)
		}

		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}
		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}
		assert.Equal(t, "logsSubscribe", req.Method)

		_ = c.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": 12345})

		for _, sig := range sigs {
			_ = c.WriteJSON(wsNotification{
				JSONRPC: "2.0",
				Method:  "logsNotification",
				Params: &wsNotificationParams{
					Subscription: 12345,
					Result: wsNotificationResult{
						Context: &wsContext{Slot: 100},
						Value:   wsLogsValue{Signature: sig, Logs: []string{"Program log: Instruction: Create Metadata Accounts v3"}},
					},
				},
			})
		}

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWSClient_SubscribeLogs(t *testing.T) {
	server := logsServer(t, []string{"sig1", "sig2"}, nil)
	defer server.Close()

	client := NewWSClient(wsURL(server), nil, nil)
	defer client.Close()

	ch, err := client.SubscribeLogs(context.Background(), LogsFilter{Mentions: []string{MetaplexProgramID}})
	require.NoError(t, err)

	for _, want := range []string{"sig1", "sig2"} {
		select {
		case notif := <-ch:
			assert.Equal(t, want, notif.Signature)
			assert.Equal(t, int64(100), notif.Slot)
			assert.Len(t, notif.Logs, 1)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for notification")
		}
	}
}

func TestWSClient_SubscribeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		var req wsRequest
		if err := c.ReadJSON(&req); err != nil {
			return
		}
		_ = c.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": -32602, "message": "Invalid params"},
		})
	}))
	defer server.Close()

	client := NewWSClient(wsURL(server), nil, nil)
	defer client.Close()

	_, err := client.SubscribeLogs(context.Background(), LogsFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid params")
}

func TestWSClient_DialError(t *testing.T) {
	client := NewWSClient("ws://127.0.0.1:1", nil, nil)
	defer client.Close()

	_, err := client.SubscribeLogs(context.Background(), LogsFilter{})
	assert.Error(t, err)
}

func TestWSClient_ContextCancelClosesChannel(t *testing.T) {
	server := logsServer(t, nil, nil)
	defer server.Close()

	client := NewWSClient(wsURL(server), nil, nil)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := client.SubscribeLogs(ctx, LogsFilter{})
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestWSClient_Reconnects(t *testing.T) {
	var connections atomic.Int32
	server := logsServer(t, []string{"sig"}, &connections)
	defer server.Close()

	cfg := DefaultWSConfig()
	cfg.ReconnectDelay = 10 * time.Millisecond
	cfg.ReadTimeout = 100 * time.Millisecond
	cfg.PingInterval = time.Hour
	client := NewWSClient(wsURL(server), &cfg, nil)
	defer client.Close()

	ch, err := client.SubscribeLogs(context.Background(), LogsFilter{})
	require.NoError(t, err)

	// The read deadline expires without pongs, forcing a reconnect that
	// delivers the signature again.
	received := 0
	deadline := time.After(3 * time.Second)
	for received < 2 {
		select {
		case <-ch:
			received++
		case <-deadline:
			t.Fatalf("received %d notifications, connections %d", received, connections.Load())
		}
	}
	assert.GreaterOrEqual(t, connections.Load(), int32(2))
}

func TestWSClient_CloseIdempotent(t *testing.T) {
	client := NewWSClient("ws://127.0.0.1:1", nil, nil)
	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	_, err := client.SubscribeLogs(context.Background(), LogsFilter{})
	assert.ErrorIs(t, err, errClientClosed)
}
