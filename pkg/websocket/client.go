package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	json "github.com/json-iterator/go"
	"github.com/workforce/tracker/pkg/logger"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	// MessageTypeAttendanceUpdate means the user's attendance changed on the
	// server. It carries no data; receivers re-read over REST.
	MessageTypeAttendanceUpdate MessageType = "attendance_update"
	MessageTypeNotification     MessageType = "notification"
	MessageTypeError            MessageType = "error"

	// MessageTypeAll subscribes to every message
	MessageTypeAll MessageType = ""
)

// Message represents a message from the server
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Config holds WebSocket client configuration
type Config struct {
	// URL is the scheme and host, e.g. ws://localhost:8000
	URL    string
	Path   string
	UserID string
	Token  string

	ConnectTimeout time.Duration
	ReconnectDelay time.Duration
	// PingInterval of zero disables keepalive pings
	PingInterval time.Duration

	Clock clockwork.Clock
}

// DefaultConfig returns a development configuration
func DefaultConfig() Config {
	return Config{
		URL:            "ws://localhost:8000",
		Path:           "/ws/attendance",
		ConnectTimeout: 15 * time.Second,
		ReconnectDelay: 3 * time.Second,
		PingInterval:   30 * time.Second,
	}
}

// ConnectionState represents the state of the WebSocket connection
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// ConnectionStats holds connection statistics
type ConnectionStats struct {
	MessagesReceived int64
	ConnectCount     int
	ReconnectCount   int
	LastError        string
	ConnectedAt      time.Time
	DisconnectedAt   time.Time
}

// Client keeps one push connection open for as long as Run's context
// lives, redialing after a fixed delay whenever it drops
type Client struct {
	config Config
	clock  clockwork.Clock
	dialer *websocket.Dialer

	state atomic.Value // ConnectionState

	listenersMu sync.RWMutex
	listeners   map[MessageType]map[int]func(Message)
	nextID      int

	statsLock sync.RWMutex
	stats     ConnectionStats
}

// NewClient creates a new WebSocket client
func NewClient(config Config) *Client {
	defaults := DefaultConfig()
	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = defaults.ReconnectDelay
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = defaults.ConnectTimeout
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}

	client := &Client{
		config:    config,
		clock:     config.Clock,
		dialer:    &websocket.Dialer{HandshakeTimeout: config.ConnectTimeout},
		listeners: make(map[MessageType]map[int]func(Message)),
	}
	client.state.Store(StateDisconnected)
	return client
}

// URL returns the endpoint for the configured user, token included
func (c *Client) URL() (string, error) {
	if c.config.UserID == "" {
		return "", errors.New("websocket: user id is required")
	}

	u, err := url.Parse(c.config.URL)
	if err != nil {
		return "", fmt.Errorf("websocket: invalid url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Trim(c.config.Path, "/") + "/" + url.PathEscape(c.config.UserID)
	if c.config.Token != "" {
		q := u.Query()
		q.Set("token", c.config.Token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// On subscribes to a message type. MessageTypeAll receives every message.
// Callbacks run on the read goroutine and must not block.
func (c *Client) On(msgType MessageType, callback func(Message)) func() {
	c.listenersMu.Lock()
	id := c.nextID
	c.nextID++
	if c.listeners[msgType] == nil {
		c.listeners[msgType] = make(map[int]func(Message))
	}
	c.listeners[msgType][id] = callback
	c.listenersMu.Unlock()

	return func() {
		c.listenersMu.Lock()
		defer c.listenersMu.Unlock()
		delete(c.listeners[msgType], id)
	}
}

// Run dials and reads until ctx is done. Dial and read failures are logged
// and followed by a redial after the reconnect delay, indefinitely.
func (c *Client) Run(ctx context.Context) error {
	endpoint, err := c.URL()
	if err != nil {
		return err
	}
	defer c.setState(StateDisconnected)

	for attempt := 0; ; attempt++ {
		if attempt == 0 {
			c.setState(StateConnecting)
		} else {
			c.setState(StateReconnecting)
			c.recordReconnect()
		}

		conn, _, err := c.dialer.DialContext(ctx, endpoint, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.recordError(err.Error())
			logger.Debug("WebSocket dial failed", "error", err)
		} else {
			c.setState(StateConnected)
			c.recordConnected()
			logger.Debug("WebSocket connected", "path", c.config.Path)

			err = c.serve(ctx, conn)
			c.recordDisconnected()
			if ctx.Err() != nil {
				return nil
			}
			c.recordError(err.Error())
			logger.Debug("WebSocket closed", "error", err)
		}

		logger.Debug("Reconnecting WebSocket", "attempt", attempt+1, "wait_ms", c.config.ReconnectDelay.Milliseconds())
		select {
		case <-ctx.Done():
			return nil
		case <-c.clock.After(c.config.ReconnectDelay):
		}
	}
}

// IsConnected returns true if the connection is established
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// State returns the current connection state
func (c *Client) State() ConnectionState {
	return c.state.Load().(ConnectionState)
}

// GetStats returns connection statistics
func (c *Client) GetStats() ConnectionStats {
	c.statsLock.RLock()
	defer c.statsLock.RUnlock()
	return c.stats
}

// serve reads from conn until it fails or ctx is done
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) error {
	stop := make(chan struct{})
	defer close(stop)
	defer conn.Close()

	go func() {
		select {
		case <-ctx.Done():
			deadline := time.Now().Add(time.Second)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			conn.Close()
		case <-stop:
		}
	}()

	if c.config.PingInterval > 0 {
		go c.pingLoop(conn, stop)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.dispatch(data)
	}
}

func (c *Client) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := c.clock.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			deadline := time.Now().Add(c.config.ConnectTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				logger.Debug("Failed to send ping", "error", err)
			}
		}
	}
}

func (c *Client) dispatch(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		logger.Debug("Ignoring malformed WebSocket message", "error", err)
		return
	}
	c.recordMessageReceived()

	c.listenersMu.RLock()
	callbacks := make([]func(Message), 0, len(c.listeners[msg.Type])+len(c.listeners[MessageTypeAll]))
	for _, cb := range c.listeners[msg.Type] {
		callbacks = append(callbacks, cb)
	}
	if msg.Type != MessageTypeAll {
		for _, cb := range c.listeners[MessageTypeAll] {
			callbacks = append(callbacks, cb)
		}
	}
	c.listenersMu.RUnlock()

	for _, cb := range callbacks {
		cb(msg)
	}
}

func (c *Client) setState(state ConnectionState) {
	c.state.Store(state)
}

func (c *Client) recordMessageReceived() {
	c.statsLock.Lock()
	c.stats.MessagesReceived++
	c.statsLock.Unlock()
}

func (c *Client) recordError(errMsg string) {
	c.statsLock.Lock()
	c.stats.LastError = errMsg
	c.statsLock.Unlock()
}

func (c *Client) recordReconnect() {
	c.statsLock.Lock()
	c.stats.ReconnectCount++
	c.statsLock.Unlock()
}

func (c *Client) recordConnected() {
	c.statsLock.Lock()
	c.stats.ConnectCount++
	c.stats.ConnectedAt = c.clock.Now()
	c.statsLock.Unlock()
}

func (c *Client) recordDisconnected() {
	c.statsLock.Lock()
	c.stats.DisconnectedAt = c.clock.Now()
	c.statsLock.Unlock()
}
