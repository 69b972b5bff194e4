// Package arena wires the transport channel, the protocol decoder and
// the dialogue machine around one session store, and translates user
// intents into outbound commands.
package arena

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"platformwar/arena/internal/dialogue"
	"platformwar/arena/internal/gamesock"
	"platformwar/arena/internal/protocol"
	"platformwar/arena/internal/session"
	"platformwar/arena/internal/types"
)

// Options configures the client.
type Options struct {
	// APIKey is the credential carried inside start commands.
	APIKey string
	// ReconnectAttempts and ReconnectInterval tune the channel policy;
	// zero values take the gamesock defaults.
	ReconnectAttempts int
	ReconnectInterval time.Duration
	// TurnTimeout, when positive, bounds how long a turn may stream with
	// no turn_end before a synthetic one is folded through the machine.
	// Zero disables the watchdog.
	TurnTimeout time.Duration
	// OnEvent, if set, observes every decoded event after the machine has
	// applied it. Presentation hook only; it must not mutate state.
	OnEvent func(protocol.ServerEvent)
	// OnState, if set, observes channel ready-state transitions.
	OnState func(gamesock.ReadyState)
}

// Client drives one debate session. It is the only component that feeds
// events to the machine, and it serializes them with its own mutex so
// the single-writer discipline holds even with the watchdog running.
type Client struct {
	store   *session.Store
	machine *dialogue.Machine
	ch      *gamesock.Channel

	apiKey      string
	turnTimeout time.Duration
	onEvent     func(protocol.ServerEvent)

	mu          sync.Mutex
	turnStarted time.Time

	cancel context.CancelFunc
}

func New(parent context.Context, wsURL string, store *session.Store, opts Options) *Client {
	ctx, cancel := context.WithCancel(parent)
	c := &Client{
		store:       store,
		machine:     dialogue.New(store),
		apiKey:      opts.APIKey,
		turnTimeout: opts.TurnTimeout,
		onEvent:     opts.OnEvent,
		cancel:      cancel,
	}
	c.ch = gamesock.New(ctx, wsURL, gamesock.Options{
		MaxAttempts: opts.ReconnectAttempts,
		Interval:    opts.ReconnectInterval,
		OnFrame:     c.handleFrame,
		OnState:     opts.OnState,
	})
	if c.turnTimeout > 0 {
		go c.watchdog(ctx)
	}
	return c
}

// Connect starts the channel's connect/reconnect loop.
func (c *Client) Connect() {
	c.ch.Start()
}

// Close shuts the client down. The session state is left as-is.
func (c *Client) Close() {
	c.cancel()
	c.ch.Close()
}

// Connected reports whether commands can currently be sent.
func (c *Client) Connected() bool {
	return c.ch.State() == gamesock.StateOpen
}

// Start sends the start command built from the store's current config
// and optimistically transitions the session to running. The transition
// does not wait for server acknowledgment; a later error event corrects
// it. A send failure is reported, never swallowed.
func (c *Client) Start(ctx context.Context) error {
	frame, err := protocol.EncodeStart(c.store.Config(c.apiKey))
	if err != nil {
		return err
	}
	if err := c.ch.Send(ctx, frame); err != nil {
		return fmt.Errorf("start command: %w", err)
	}
	c.store.SetGameState(types.StateRunning)
	return nil
}

// Stop sends the stop command and optimistically transitions to stopped.
func (c *Client) Stop(ctx context.Context) error {
	frame, err := protocol.EncodeStop()
	if err != nil {
		return err
	}
	if err := c.ch.Send(ctx, frame); err != nil {
		return fmt.Errorf("stop command: %w", err)
	}
	c.store.SetGameState(types.StateStopped)
	return nil
}

// Reset returns the session to idle with an empty transcript. This is a
// user action; no server event triggers it.
func (c *Client) Reset() {
	c.mu.Lock()
	c.machine.Reset()
	c.turnStarted = time.Time{}
	c.mu.Unlock()
	c.store.Reset()
}

// handleFrame runs on the channel's read goroutine, one frame at a time.
func (c *Client) handleFrame(data []byte) {
	ev, err := protocol.Decode(data)
	if err != nil {
		// One malformed frame is dropped; the channel and session are
		// unaffected.
		metricDecodeFailures.Inc()
		log.Printf("[arena] dropping frame: %v", err)
		return
	}
	c.mu.Lock()
	switch ev.Type {
	case protocol.EventTurnStart:
		c.turnStarted = time.Now()
	case protocol.EventTurnEnd:
		c.turnStarted = time.Time{}
	}
	c.machine.HandleEvent(ev)
	c.mu.Unlock()
	if c.onEvent != nil {
		c.onEvent(ev)
	}
}

// watchdog bounds stalled turns: a turn with no turn_end inside the
// configured timeout gets a synthetic one.
func (c *Client) watchdog(ctx context.Context) {
	interval := c.turnTimeout / 4
	if interval > time.Second {
		interval = time.Second
	}
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
		c.mu.Lock()
		stalled := c.machine.ActiveEntryID() != "" &&
			!c.turnStarted.IsZero() &&
			time.Since(c.turnStarted) > c.turnTimeout
		if stalled {
			log.Printf("[arena] turn stalled for %s; forcing turn end", c.turnTimeout)
			metricForcedTurnEnds.Inc()
			c.machine.HandleEvent(protocol.ServerEvent{Type: protocol.EventTurnEnd})
			c.turnStarted = time.Time{}
		}
		c.mu.Unlock()
	}
}
