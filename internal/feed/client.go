package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"brainzzz/internal/model"
)

const (
	// DefaultReconnectInterval is the fixed pause between reconnect attempts.
	DefaultReconnectInterval = 3 * time.Second
	// DefaultMaxAttempts bounds consecutive failed connection attempts.
	DefaultMaxAttempts = 10
)

var (
	// ErrNormalClosure reports that the server closed the stream cleanly.
	ErrNormalClosure = errors.New("feed closed by server")
	// ErrRetriesExhausted reports that the reconnect budget ran out.
	ErrRetriesExhausted = errors.New("feed reconnect attempts exhausted")
)

// State describes the feed connection for status displays.
type State string

const (
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
	StateStopped    State = "stopped"
)

// Conn is one established feed session. Receive blocks until a text frame
// arrives or the session ends.
type Conn interface {
	Receive() (string, error)
	Close() error
}

// Dialer opens one feed session. Tests swap in scripted dialers.
type Dialer func(ctx context.Context, url string) (Conn, error)

// Options configure a feed client.
type Options struct {
	// URL is the WebSocket endpoint, e.g. ws://127.0.0.1:8000/ws.
	URL string
	// Dial opens sessions. Defaults to the WebSocket dialer.
	Dial Dialer
	// ReconnectEvery is the fixed wait between attempts.
	ReconnectEvery time.Duration
	// MaxAttempts bounds consecutive failures before giving up.
	MaxAttempts int
	// OnEvent receives every decoded envelope, in arrival order.
	OnEvent func(model.Envelope)
	// OnStateChange observes connection state transitions.
	OnStateChange func(State)
}

// Client maintains one long-lived subscription to the event feed.
type Client struct {
	url      string
	dial     Dialer
	interval time.Duration
	maxTries int
	onEvent  func(model.Envelope)
	onState  func(State)
}

// NewClient validates opts and applies defaults.
func NewClient(opts Options) (*Client, error) {
	if opts.URL == "" {
		return nil, errors.New("feed: url is required")
	}
	if opts.OnEvent == nil {
		return nil, errors.New("feed: event handler is required")
	}
	c := &Client{
		url:      opts.URL,
		dial:     opts.Dial,
		interval: opts.ReconnectEvery,
		maxTries: opts.MaxAttempts,
		onEvent:  opts.OnEvent,
		onState:  opts.OnStateChange,
	}
	if c.dial == nil {
		c.dial = dialWebSocket
	}
	if c.interval <= 0 {
		c.interval = DefaultReconnectInterval
	}
	if c.maxTries <= 0 {
		c.maxTries = DefaultMaxAttempts
	}
	return c, nil
}

// Run connects and delivers envelopes until the context is cancelled, the
// server closes the stream, or the reconnect budget is exhausted. A session
// that delivered at least one frame resets the budget, so a long-lived
// connection that later drops gets the full number of attempts again.
func (c *Client) Run(ctx context.Context) error {
	attempts := 0
	for {
		c.notify(StateConnecting)
		frames, err := c.session(ctx)
		if ctx.Err() != nil {
			c.notify(StateStopped)
			return ctx.Err()
		}
		if errors.Is(err, ErrNormalClosure) {
			c.notify(StateStopped)
			return nil
		}
		if frames > 0 {
			attempts = 0
		}
		attempts++
		if attempts >= c.maxTries {
			c.notify(StateStopped)
			return fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, attempts, err)
		}
		log.Printf("feed: connection lost (%v), retrying in %s", err, c.interval)

		timer := time.NewTimer(c.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.notify(StateStopped)
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// session runs one connection to completion and reports how many frames it
// delivered. Undecodable frames are logged and skipped without ending the
// session.
func (c *Client) session(ctx context.Context) (int, error) {
	conn, err := c.dial(ctx, c.url)
	if err != nil {
		return 0, fmt.Errorf("dial %s: %w", c.url, err)
	}
	c.notify(StateConnected)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	frames := 0
	for {
		raw, err := conn.Receive()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return frames, ErrNormalClosure
			}
			return frames, err
		}
		frames++
		env, err := DecodeEnvelope([]byte(raw))
		if err != nil {
			log.Printf("feed: dropping frame: %v", err)
			continue
		}
		c.onEvent(env)
	}
}

func (c *Client) notify(s State) {
	if c.onState != nil {
		c.onState(s)
	}
}
