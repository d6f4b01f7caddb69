package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var errClientClosed = errors.New("client closed")

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SubscribeTimeout bounds the wait for a subscription confirmation.
	SubscribeTimeout time.Duration
	// Buffer is the notification channel capacity. Notifications arriving
	// while the buffer is full are dropped.
	Buffer int
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
		Buffer:            256,
	}
}

// WSClientImpl implements WSClient using gorilla/websocket. Each
// subscription owns its connection and reconnects on its own.
type WSClientImpl struct {
	endpoint string
	config   WSClientConfig
	logger   *zap.Logger

	requestID atomic.Uint64
	closed    atomic.Bool
	done      chan struct{}
	wg        sync.WaitGroup
}

var _ WSClient = (*WSClientImpl)(nil)

// NewWSClient creates a WebSocket client. No connection is made until
// SubscribeLogs is called.
func NewWSClient(endpoint string, config *WSClientConfig, logger *zap.Logger) *WSClientImpl {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSClientImpl{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// SubscribeLogs dials, subscribes and starts streaming notifications.
// The initial dial and subscription errors are returned directly; later
// disconnects are retried with exponential backoff.
func (c *WSClientImpl) SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error) {
	if c.closed.Load() {
		return nil, errClientClosed
	}

	conn, subID, err := c.dialAndSubscribe(ctx, filter)
	if err != nil {
		return nil, err
	}

	ch := make(chan LogNotification, c.config.Buffer)
	c.wg.Add(1)
	go c.stream(ctx, conn, subID, filter, ch)
	return ch, nil
}

// Close stops every subscription and waits for their goroutines.
func (c *WSClientImpl) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.done)
	c.wg.Wait()
	return nil
}

func (c *WSClientImpl) dialAndSubscribe(ctx context.Context, filter LogsFilter) (*websocket.Conn, int64, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("websocket dial: %w", err)
	}

	reqID := c.requestID.Add(1)
	mentions := map[string]interface{}{"all": nil}
	if len(filter.Mentions) > 0 {
		mentions = map[string]interface{}{"mentions": filter.Mentions}
	}
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "logsSubscribe",
		Params: []interface{}{
			mentions,
			map[string]string{"commitment": "confirmed"},
		},
	}

	_ = conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, 0, fmt.Errorf("write subscribe: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(c.config.SubscribeTimeout))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			return nil, 0, fmt.Errorf("await subscription: %w", err)
		}

		var resp wsResponse
		if err := json.Unmarshal(msg, &resp); err != nil || resp.ID != reqID {
			continue
		}
		if resp.Error != nil {
			conn.Close()
			return nil, 0, fmt.Errorf("logsSubscribe: %w", resp.Error)
		}
		var subID int64
		if err := json.Unmarshal(resp.Result, &subID); err != nil {
			conn.Close()
			return nil, 0, fmt.Errorf("parse subscription id: %w", err)
		}
		return conn, subID, nil
	}
}

// stream pumps notifications into ch, reconnecting until ctx is done or the
// client is closed.
func (c *WSClientImpl) stream(ctx context.Context, conn *websocket.Conn, subID int64, filter LogsFilter, ch chan<- LogNotification) {
	defer c.wg.Done()
	defer close(ch)

	for {
		err := c.read(ctx, conn, subID, ch)
		conn.Close()
		if ctx.Err() != nil || c.closed.Load() {
			return
		}

		delay := c.config.ReconnectDelay
		c.logger.Warn("log stream disconnected", zap.Error(err), zap.Duration("retry_in", delay))
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.done:
				return
			case <-time.After(delay):
			}

			conn, subID, err = c.dialAndSubscribe(ctx, filter)
			if err == nil {
				c.logger.Info("log stream reconnected", zap.Int64("subscription", subID))
				break
			}

			delay *= 2
			if delay > c.config.MaxReconnectDelay {
				delay = c.config.MaxReconnectDelay
			}
			c.logger.Warn("log stream reconnect failed", zap.Error(err), zap.Duration("retry_in", delay))
		}
	}
}

// read consumes one connection until it fails.
func (c *WSClientImpl) read(ctx context.Context, conn *websocket.Conn, subID int64, ch chan<- LogNotification) error {
	stop := make(chan struct{})
	defer close(stop)

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	})

	go func() {
		ticker := time.NewTicker(c.config.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-c.done:
				conn.Close()
				return
			case <-ticker.C:
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.config.WriteTimeout))
			}
		}
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		notif, ok := parseLogsNotification(msg, subID)
		if !ok {
			continue
		}
		select {
		case ch <- notif:
		default:
			c.logger.Debug("log stream buffer full, dropping", zap.String("signature", notif.Signature))
		}
	}
}

func parseLogsNotification(msg []byte, subID int64) (LogNotification, bool) {
	var notif wsNotification
	if err := json.Unmarshal(msg, &notif); err != nil || notif.Method != "logsNotification" || notif.Params == nil {
		return LogNotification{}, false
	}
	if notif.Params.Subscription != subID {
		return LogNotification{}, false
	}

	value := notif.Params.Result.Value
	out := LogNotification{
		Signature: value.Signature,
		Logs:      value.Logs,
		Err:       value.Err,
	}
	if notif.Params.Result.Context != nil {
		out.Slot = notif.Params.Result.Context.Slot
	}
	return out, true
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}
