package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is a scriptable transport. Frames pushed on the inbox are
// returned by ReadText; closing the conn fails the pending read.
type fakeConn struct {
	inbox chan string

	mu     sync.Mutex
	writes []string
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbox: make(chan string, 16)}
}

func (f *fakeConn) ReadText(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case text, ok := <-f.inbox:
		if !ok {
			return "", errors.New("connection closed")
		}
		return text, nil
	}
}

func (f *fakeConn) WriteText(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("connection closed")
	}
	f.writes = append(f.writes, text)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.inbox)
	}
	return nil
}

func (f *fakeConn) push(text string) { f.inbox <- text }

// collector records events and states delivered by the channel.
type collector struct {
	mu     sync.Mutex
	events []Event
	states []State
}

func (c *collector) onEvent(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *collector) onState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states = append(c.states, s)
}

func (c *collector) eventCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *collector) lastEvent() (Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return Event{}, false
	}
	return c.events[len(c.events)-1], true
}

func (c *collector) stateSeq() []State {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]State, len(c.states))
	copy(out, c.states)
	return out
}

func newTestChannel(t *testing.T, dial DialFunc, col *collector, reconnect time.Duration) *Channel {
	t.Helper()
	return New(Options{
		URL:               "ws://test/ws/tasks/t1",
		ReconnectDelay:    reconnect,
		KeepaliveInterval: time.Hour,
		OnEvent:           col.onEvent,
		OnState:           col.onState,
		Dial:              dial,
		Logger:            zerolog.Nop(),
	})
}

func TestChannel_Connect_delivers_events(t *testing.T) {
	conn := newFakeConn()
	col := &collector{}
	ch := newTestChannel(t, func(ctx context.Context, url string) (Conn, error) {
		return conn, nil
	}, col, time.Hour)
	defer ch.Disconnect()

	ch.Connect()
	require.Eventually(t, func() bool { return ch.State() == StateOpen }, time.Second, time.Millisecond)

	conn.push(`{"event":"status_change","task_id":"t1","status":"running"}`)
	require.Eventually(t, func() bool { return col.eventCount() == 1 }, time.Second, time.Millisecond)

	ev, ok := col.lastEvent()
	require.True(t, ok)
	assert.Equal(t, EventStatusChange, ev.Event)
	assert.Equal(t, "running", ev.Status)
}

func TestChannel_malformed_frames_are_dropped(t *testing.T) {
	conn := newFakeConn()
	col := &collector{}
	ch := newTestChannel(t, func(ctx context.Context, url string) (Conn, error) {
		return conn, nil
	}, col, time.Hour)
	defer ch.Disconnect()

	ch.Connect()
	require.Eventually(t, func() bool { return ch.State() == StateOpen }, time.Second, time.Millisecond)

	conn.push("{not json at all")
	conn.push(`{"no_event_field":true}`)
	conn.push(`{"event":"step_complete","step":"Lint","success":true,"duration":2.5}`)

	require.Eventually(t, func() bool { return col.eventCount() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, StateOpen, ch.State())

	ev, _ := col.lastEvent()
	assert.Equal(t, "Lint", ev.Step)
	assert.True(t, ev.Success)
}

func TestChannel_keepalive_tokens_are_discarded(t *testing.T) {
	conn := newFakeConn()
	col := &collector{}
	ch := newTestChannel(t, func(ctx context.Context, url string) (Conn, error) {
		return conn, nil
	}, col, time.Hour)
	defer ch.Disconnect()

	ch.Connect()
	require.Eventually(t, func() bool { return ch.State() == StateOpen }, time.Second, time.Millisecond)

	conn.push("ping")
	conn.push("pong")
	conn.push(`{"event":"log_append","log":"line\n"}`)

	require.Eventually(t, func() bool { return col.eventCount() == 1 }, time.Second, time.Millisecond)
	ev, _ := col.lastEvent()
	assert.Equal(t, EventLogAppend, ev.Event)
}

func TestChannel_reconnects_after_fixed_delay(t *testing.T) {
	var dials atomic.Int32
	conns := make(chan *fakeConn, 4)
	dial := func(ctx context.Context, url string) (Conn, error) {
		dials.Add(1)
		c := newFakeConn()
		conns <- c
		return c, nil
	}

	col := &collector{}
	delay := 50 * time.Millisecond
	ch := newTestChannel(t, dial, col, delay)
	defer ch.Disconnect()

	ch.Connect()
	first := <-conns
	require.Eventually(t, func() bool { return ch.State() == StateOpen }, time.Second, time.Millisecond)

	// Kill the transport and confirm the redial waits out the full delay.
	lost := time.Now()
	first.Close()
	require.Eventually(t, func() bool { return dials.Load() == 2 }, time.Second, time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(lost), delay)

	<-conns
	require.Eventually(t, func() bool { return ch.State() == StateOpen }, time.Second, time.Millisecond)

	seq := col.stateSeq()
	assert.Contains(t, seq, StateClosed)
	assert.Equal(t, StateOpen, seq[len(seq)-1])
}

func TestChannel_failed_dial_schedules_retry(t *testing.T) {
	var dials atomic.Int32
	dial := func(ctx context.Context, url string) (Conn, error) {
		if dials.Add(1) == 1 {
			return nil, errors.New("refused")
		}
		return newFakeConn(), nil
	}

	col := &collector{}
	ch := newTestChannel(t, dial, col, 20*time.Millisecond)
	defer ch.Disconnect()

	ch.Connect()
	require.Eventually(t, func() bool { return ch.State() == StateOpen }, time.Second, time.Millisecond)
	assert.Equal(t, int32(2), dials.Load())
}

func TestChannel_Disconnect_is_idempotent_and_final(t *testing.T) {
	var dials atomic.Int32
	conn := newFakeConn()
	dial := func(ctx context.Context, url string) (Conn, error) {
		dials.Add(1)
		return conn, nil
	}

	col := &collector{}
	ch := newTestChannel(t, dial, col, 10*time.Millisecond)

	ch.Connect()
	require.Eventually(t, func() bool { return ch.State() == StateOpen }, time.Second, time.Millisecond)

	ch.Disconnect()
	ch.Disconnect()
	assert.Equal(t, StateIdle, ch.State())

	// No redial fires after an explicit disconnect.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), dials.Load())

	// Connect after Disconnect stays idle; the session is over.
	ch.Connect()
	assert.Equal(t, StateIdle, ch.State())
}

func TestChannel_Disconnect_before_Connect_is_safe(t *testing.T) {
	col := &collector{}
	ch := newTestChannel(t, func(ctx context.Context, url string) (Conn, error) {
		t.Fatal("dial should not be called")
		return nil, nil
	}, col, time.Hour)

	ch.Disconnect()
	assert.Equal(t, StateIdle, ch.State())
}

func TestChannel_keepalive_writes_ping(t *testing.T) {
	conn := newFakeConn()
	col := &collector{}
	ch := New(Options{
		URL:               "ws://test/ws/tasks/t1",
		ReconnectDelay:    time.Hour,
		KeepaliveInterval: 10 * time.Millisecond,
		OnEvent:           col.onEvent,
		OnState:           col.onState,
		Dial: func(ctx context.Context, url string) (Conn, error) {
			return conn, nil
		},
		Logger: zerolog.Nop(),
	})
	defer ch.Disconnect()

	ch.Connect()
	require.Eventually(t, func() bool {
		conn.mu.Lock()
		defer conn.mu.Unlock()
		return len(conn.writes) >= 2
	}, time.Second, time.Millisecond)

	conn.mu.Lock()
	defer conn.mu.Unlock()
	for _, w := range conn.writes {
		assert.Equal(t, "ping", w)
	}
}
