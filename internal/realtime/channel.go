// Package realtime maintains the push channel for one task: a websocket
// session with automatic reconnect and keepalive, degrading gracefully to
// polling when the server is unreachable.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
)

// State is the connection state of a channel.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

// String implements fmt.Stringer for log fields and indicators.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event discriminators carried by channel messages.
const (
	EventStatusChange = "status_change"
	EventStepComplete = "step_complete"
	EventLogAppend    = "log_append"
)

// Event is one structured payload received on the channel. Fields are a
// union across event kinds; the discriminator says which are meaningful.
type Event struct {
	Event       string  `json:"event"`
	TaskID      string  `json:"task_id,omitempty"`
	Status      string  `json:"status,omitempty"`
	Description string  `json:"description,omitempty"`
	Step        string  `json:"step,omitempty"`
	Success     bool    `json:"success,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
	Log         string  `json:"log,omitempty"`
}

// Conn is the subset of the websocket transport the channel needs.
// Injectable so the reconnect and keepalive logic is testable without a
// network.
type Conn interface {
	ReadText(ctx context.Context) (string, error)
	WriteText(ctx context.Context, text string) error
	Close() error
}

// DialFunc establishes a transport connection to the given URL.
type DialFunc func(ctx context.Context, url string) (Conn, error)

// Options configures a Channel. OnEvent and OnState are invoked from the
// channel's own goroutines; consumers bridge them onto their UI loop.
type Options struct {
	URL               string        // ws(s) URL for one task's channel
	ReconnectDelay    time.Duration // delay before redialing after a close (default 3s)
	KeepaliveInterval time.Duration // ping period while open (default 30s)
	OnEvent           func(Event)
	OnState           func(State)
	Dial              DialFunc // defaults to a coder/websocket dial
	Logger            zerolog.Logger
}

// Channel is one realtime session. Connect starts it; Disconnect tears it
// down permanently. A channel that loses its transport schedules a redial
// after a fixed delay unless it has been explicitly disconnected.
type Channel struct {
	opts Options

	mu           sync.Mutex
	state        State
	disconnected bool
	conn         Conn
	reconnect    *time.Timer
	cancelRead   context.CancelFunc
}

// New creates a channel in the idle state.
func New(opts Options) *Channel {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 3 * time.Second
	}
	if opts.KeepaliveInterval <= 0 {
		opts.KeepaliveInterval = 30 * time.Second
	}
	if opts.Dial == nil {
		opts.Dial = dialWebsocket
	}
	return &Channel{opts: opts, state: StateIdle}
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect starts the session. Calling Connect on a channel that is not
// idle is a no-op.
func (c *Channel) Connect() {
	c.mu.Lock()
	if c.disconnected || c.state != StateIdle {
		c.mu.Unlock()
		return
	}
	notify := c.setStateLocked(StateConnecting)
	c.mu.Unlock()
	notify()

	go c.dial()
}

// Disconnect cancels any pending reconnect and keepalive timers, tears
// down the transport, and leaves the channel idle permanently. It is safe
// to call multiple times or on an already-idle channel.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.disconnected = true
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	if c.cancelRead != nil {
		c.cancelRead()
		c.cancelRead = nil
	}
	conn := c.conn
	c.conn = nil
	notify := c.setStateLocked(StateIdle)
	c.mu.Unlock()
	notify()

	if conn != nil {
		_ = conn.Close()
	}
}

func (c *Channel) dial() {
	ctx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	if c.disconnected {
		c.mu.Unlock()
		cancel()
		return
	}
	c.cancelRead = cancel
	c.mu.Unlock()

	conn, err := c.opts.Dial(ctx, c.opts.URL)
	if err != nil {
		c.opts.Logger.Debug().Err(err).Str("url", c.opts.URL).Msg("channel dial failed")
		c.onClosed()
		return
	}

	c.mu.Lock()
	if c.disconnected {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	notify := c.setStateLocked(StateOpen)
	c.mu.Unlock()
	notify()

	go c.keepalive(ctx, conn)
	c.readLoop(ctx, conn)
}

// readLoop consumes messages until the transport fails or is closed.
func (c *Channel) readLoop(ctx context.Context, conn Conn) {
	for {
		text, err := conn.ReadText(ctx)
		if err != nil {
			c.onClosed()
			return
		}
		c.handleMessage(text)
	}
}

// handleMessage parses one frame. Keepalive tokens are discarded and
// anything that fails to parse as a structured payload is dropped; a
// malformed frame must never reach consumers or kill the channel.
func (c *Channel) handleMessage(text string) {
	switch strings.TrimSpace(text) {
	case "ping", "pong":
		return
	}

	var ev Event
	if err := json.Unmarshal([]byte(text), &ev); err != nil {
		c.opts.Logger.Debug().Str("frame", truncate(text, 120)).Msg("dropping unparseable channel frame")
		return
	}
	if ev.Event == "" {
		return
	}
	if c.opts.OnEvent != nil {
		c.opts.OnEvent(ev)
	}
}

// keepalive pings the server on a fixed period while the transport is up.
// The server's pong is handled (and discarded) by handleMessage.
func (c *Channel) keepalive(ctx context.Context, conn Conn) {
	ticker := time.NewTicker(c.opts.KeepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteText(ctx, "ping"); err != nil {
				return
			}
		}
	}
}

// onClosed records the transport loss and schedules a redial unless the
// channel was explicitly disconnected.
func (c *Channel) onClosed() {
	c.mu.Lock()
	if c.cancelRead != nil {
		c.cancelRead()
		c.cancelRead = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	if c.disconnected {
		c.mu.Unlock()
		return
	}

	notify := c.setStateLocked(StateClosed)
	c.reconnect = time.AfterFunc(c.opts.ReconnectDelay, c.redial)
	c.mu.Unlock()
	notify()
}

// redial fires when the reconnect timer elapses.
func (c *Channel) redial() {
	c.mu.Lock()
	if c.disconnected {
		c.mu.Unlock()
		return
	}
	notify := c.setStateLocked(StateConnecting)
	c.mu.Unlock()
	notify()

	c.dial()
}

// setStateLocked transitions the state and returns the notification to
// run once the lock is released. Callers hold c.mu.
func (c *Channel) setStateLocked(s State) func() {
	if c.state == s {
		return func() {}
	}
	c.state = s
	if c.opts.OnState == nil {
		return func() {}
	}
	fn := c.opts.OnState
	return func() { fn(s) }
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// dialWebsocket is the production DialFunc.
func dialWebsocket(ctx context.Context, url string) (Conn, error) {
	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &wsConn{ws: ws}, nil
}

type wsConn struct {
	ws *websocket.Conn
}

func (w *wsConn) ReadText(ctx context.Context) (string, error) {
	_, data, err := w.ws.Read(ctx)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (w *wsConn) WriteText(ctx context.Context, text string) error {
	return w.ws.Write(ctx, websocket.MessageText, []byte(text))
}

func (w *wsConn) Close() error {
	return w.ws.Close(websocket.StatusNormalClosure, "")
}
