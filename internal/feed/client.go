package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// RecentSize is how many notification texts are kept.
const RecentSize = 20

const (
	subprotocol = "graphql-transport-ws"

	subBalances      = "balances"
	subNotifications = "notifications"

	ackTimeout = 15 * time.Second
	readIdle   = 90 * time.Second
)

const balancesSubscription = `subscription AvailableBalances {
  availableBalances {
    amount
    balance { amount currency }
  }
}`

const notificationsSubscription = `subscription Notifications {
  notifications { id type data }
}`

// Config controls the live feed connection.
type Config struct {
	URL               string
	Token             string
	ProxyURL          string
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
}

// Client keeps a graphql-ws subscription to the platform open and exposes the
// latest balance display and recent notifications.
type Client struct {
	cfg    Config
	dialer websocket.Dialer
	log    *zap.Logger

	mu        sync.RWMutex
	text      string
	currency  string
	updatedAt time.Time
	recent    *ring[string]
}

// New builds a feed client. It does not connect until Run.
func New(cfg Config, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 2 * time.Second
	}
	if cfg.MaxReconnectDelay < cfg.ReconnectDelay {
		cfg.MaxReconnectDelay = time.Minute
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 30 * time.Second,
		Subprotocols:     []string{subprotocol},
		Proxy:            http.ProxyFromEnvironment,
	}
	if cfg.ProxyURL != "" {
		if u, err := url.Parse(cfg.ProxyURL); err != nil {
			log.Warn("invalid feed proxy url, connecting directly", zap.Error(err))
		} else {
			dialer.Proxy = http.ProxyURL(u)
		}
	}

	return &Client{cfg: cfg, dialer: dialer, log: log, recent: newRing[string](RecentSize)}
}

// URLFor derives the websocket endpoint from the platform base URL.
func URLFor(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return ""
	}
	scheme := "wss"
	if u.Scheme == "http" {
		scheme = "ws"
	}
	return scheme + "://" + u.Host + "/_api/websockets"
}

// Run connects and reconnects with backoff until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	delay := c.cfg.ReconnectDelay
	for {
		connected, err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			delay = c.cfg.ReconnectDelay
		}
		c.log.Warn("feed disconnected, reconnecting", zap.Error(err), zap.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > c.cfg.MaxReconnectDelay {
			delay = c.cfg.MaxReconnectDelay
		}
	}
}

type message struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// session runs one connection. connected reports whether the handshake completed.
func (c *Client) session(ctx context.Context) (connected bool, err error) {
	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set("x-access-token", c.cfg.Token)
	}
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return false, fmt.Errorf("dial feed: %w", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	initPayload, _ := json.Marshal(map[string]string{"accessToken": c.cfg.Token, "language": "en"})
	if err := conn.WriteJSON(message{Type: "connection_init", Payload: initPayload}); err != nil {
		return false, fmt.Errorf("send connection_init: %w", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(ackTimeout))
	var ack message
	if err := conn.ReadJSON(&ack); err != nil {
		return false, fmt.Errorf("await connection_ack: %w", err)
	}
	if ack.Type != "connection_ack" {
		return false, fmt.Errorf("unexpected handshake message %q", ack.Type)
	}

	for id, query := range map[string]string{
		subBalances:      balancesSubscription,
		subNotifications: notificationsSubscription,
	} {
		payload, _ := json.Marshal(map[string]string{"query": query})
		if err := conn.WriteJSON(message{ID: id, Type: "subscribe", Payload: payload}); err != nil {
			return true, fmt.Errorf("subscribe %s: %w", id, err)
		}
	}
	c.log.Info("feed connected", zap.String("url", c.cfg.URL))

	for {
		_ = conn.SetReadDeadline(time.Now().Add(readIdle))
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return true, fmt.Errorf("read feed: %w", err)
		}
		switch msg.Type {
		case "ping":
			if err := conn.WriteJSON(message{Type: "pong"}); err != nil {
				return true, fmt.Errorf("send pong: %w", err)
			}
		case "next":
			c.handleNext(msg)
		case "error":
			c.log.Warn("feed subscription error", zap.String("id", msg.ID), zap.ByteString("payload", msg.Payload))
		case "complete":
			return true, fmt.Errorf("subscription %s completed by server", msg.ID)
		}
	}
}

type balancesPayload struct {
	Data struct {
		AvailableBalances struct {
			Amount  json.Number `json:"amount"`
			Balance struct {
				Amount   json.Number `json:"amount"`
				Currency string      `json:"currency"`
			} `json:"balance"`
		} `json:"availableBalances"`
	} `json:"data"`
}

type notificationsPayload struct {
	Data struct {
		Notifications struct {
			ID   string          `json:"id"`
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		} `json:"notifications"`
	} `json:"data"`
}

func (c *Client) handleNext(msg message) {
	switch msg.ID {
	case subBalances:
		var p balancesPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.log.Debug("malformed balance update", zap.Error(err))
			return
		}
		b := p.Data.AvailableBalances.Balance
		if b.Currency == "" || b.Amount == "" {
			return
		}
		c.mu.Lock()
		c.text = b.Amount.String()
		c.currency = strings.ToLower(b.Currency)
		c.updatedAt = time.Now()
		c.mu.Unlock()
	case subNotifications:
		var p notificationsPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.log.Debug("malformed notification", zap.Error(err))
			return
		}
		n := p.Data.Notifications
		text := strings.TrimSpace(n.Type + " " + flatten(n.Data))
		if text == "" {
			return
		}
		c.mu.Lock()
		c.recent.pushFront(text)
		c.mu.Unlock()
	}
}

// flatten joins every scalar in a JSON document into one line of text.
func flatten(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	var parts []string
	var walk func(any)
	walk = func(v any) {
		switch t := v.(type) {
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				walk(t[k])
			}
		case []any:
			for _, x := range t {
				walk(x)
			}
		case string:
			parts = append(parts, t)
		case float64:
			parts = append(parts, strconv.FormatFloat(t, 'f', -1, 64))
		}
	}
	walk(v)
	return strings.Join(parts, " ")
}

// Display returns the latest balance text and its currency.
func (c *Client) Display() (string, string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.text, c.currency, !c.updatedAt.IsZero()
}

// ActiveCurrency is the denomination of the latest balance update.
func (c *Client) ActiveCurrency() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currency, c.currency != ""
}

// Recent returns the latest notification texts, newest first.
func (c *Client) Recent() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.recent.items()
}
