// Package gamesock maintains the persistent websocket connection to the
// debate server: one logical channel across the session lifetime, with a
// bounded fixed-interval reconnect policy.
package gamesock

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// ErrNotOpen is returned by Send when the channel is not in the open
// state. Commands are never queued; the caller decides what to report.
var ErrNotOpen = errors.New("channel not open")

// ReadyState mirrors the coarse connection states a caller can gate on.
type ReadyState int

const (
	StateConnecting ReadyState = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s ReadyState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "closed"
	}
}

const (
	DefaultMaxAttempts = 10
	DefaultInterval    = 3 * time.Second

	dialTimeout = 10 * time.Second
)

// Options tunes the reconnect policy and wires the two callbacks.
type Options struct {
	// MaxAttempts bounds consecutive failed dials before the channel goes
	// permanently closed. A successful connect resets the count.
	MaxAttempts int
	// Interval is the fixed wait between reconnect attempts.
	Interval time.Duration
	// OnFrame receives each inbound text frame, synchronously and in
	// arrival order. The channel keeps no frame history.
	OnFrame func(data []byte)
	// OnState, if set, observes ready-state transitions.
	OnState func(ReadyState)
}

// Channel is the transport layer. It owns connect/reconnect/send/receive
// and nothing else; decoding happens upstream.
type Channel struct {
	ctx    context.Context
	cancel context.CancelFunc

	url         string
	maxAttempts int
	interval    time.Duration
	onFrame     func([]byte)
	onState     func(ReadyState)

	mu      sync.Mutex
	conn    *websocket.Conn
	state   ReadyState
	started bool

	done chan struct{}
}

func New(parent context.Context, url string, opts Options) *Channel {
	ctx, cancel := context.WithCancel(parent)
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Channel{
		ctx:         ctx,
		cancel:      cancel,
		url:         url,
		maxAttempts: opts.MaxAttempts,
		interval:    opts.Interval,
		onFrame:     opts.OnFrame,
		onState:     opts.OnState,
		state:       StateClosed,
		done:        make(chan struct{}),
	}
}

// Start begins connecting in the background.
func (c *Channel) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.state = StateConnecting
	c.mu.Unlock()
	c.notify(StateConnecting)
	go c.run()
}

// Close tears the channel down for good. It does not count against the
// reconnect budget.
func (c *Channel) Close() {
	c.setState(StateClosing)
	c.cancel()
	c.mu.Lock()
	started := c.started
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusNormalClosure, "bye")
	}
	c.mu.Unlock()
	if started {
		<-c.done
	}
	c.setState(StateClosed)
}

// State reports the current ready state.
func (c *Channel) State() ReadyState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Send transmits one text frame if and only if the channel is open.
func (c *Channel) Send(ctx context.Context, data []byte) error {
	c.mu.Lock()
	conn := c.conn
	open := c.state == StateOpen
	c.mu.Unlock()
	if !open || conn == nil {
		metricDroppedSends.Inc()
		return ErrNotOpen
	}
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, data)
}

func (c *Channel) run() {
	defer close(c.done)
	attempts := 0
	for {
		if c.ctx.Err() != nil {
			c.setState(StateClosed)
			return
		}
		opened, err := c.connectAndRead()
		if c.ctx.Err() != nil {
			c.setState(StateClosed)
			return
		}
		if opened {
			// A connection that actually opened resets the budget; only
			// consecutive failures count toward the cap.
			attempts = 0
		}
		if err == nil {
			// Clean read-loop exit still means the server went away;
			// treat it like any other closure.
			err = errors.New("connection closed")
		}
		attempts++
		metricReconnects.Inc()
		log.Printf("[gamesock] disconnected (attempt %d/%d): %v", attempts, c.maxAttempts, err)
		if attempts >= c.maxAttempts {
			log.Printf("[gamesock] reconnect budget exhausted; channel closed")
			c.setState(StateClosed)
			return
		}
		c.setState(StateConnecting)
		select {
		case <-c.ctx.Done():
			c.setState(StateClosed)
			return
		case <-time.After(c.interval):
		}
	}
}

// connectAndRead dials once and pumps inbound frames until the
// connection drops or the channel is closed. The first return reports
// whether the dial succeeded.
func (c *Channel) connectAndRead() (bool, error) {
	c.setState(StateConnecting)
	dctx, cancel := context.WithTimeout(c.ctx, dialTimeout)
	start := time.Now()
	conn, _, err := websocket.Dial(dctx, c.url, nil)
	cancel()
	if err != nil {
		return false, err
	}
	metricConnectMS.Observe(float64(time.Since(start).Milliseconds()))

	c.mu.Lock()
	c.conn = conn
	c.state = StateOpen
	c.mu.Unlock()
	c.notify(StateOpen)
	log.Printf("[gamesock] connected to %s in %dms", c.url, time.Since(start).Milliseconds())

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "done")
	}()

	for {
		typ, data, err := conn.Read(c.ctx)
		if err != nil {
			return true, err
		}
		if typ != websocket.MessageText {
			continue
		}
		metricFrames.Inc()
		if c.onFrame != nil {
			// Synchronous delivery: the next frame is not read until the
			// handler returns, so event order is exactly arrival order.
			c.onFrame(data)
		}
	}
}

func (c *Channel) setState(s ReadyState) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()
	if changed {
		c.notify(s)
	}
}

func (c *Channel) notify(s ReadyState) {
	if c.onState != nil {
		c.onState(s)
	}
}
