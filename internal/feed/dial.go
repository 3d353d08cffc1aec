package feed

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"golang.org/x/net/websocket"
)

const dialTimeout = 10 * time.Second

type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) Receive() (string, error) {
	var data string
	if err := websocket.Message.Receive(c.ws, &data); err != nil {
		return "", err
	}
	return data, nil
}

func (c *wsConn) Close() error { return c.ws.Close() }

// dialWebSocket opens a text-frame WebSocket session. The handshake itself
// has no context hook, so cancellation is handled by abandoning the dial and
// closing the connection if it lands late.
func dialWebSocket(ctx context.Context, rawURL string) (Conn, error) {
	origin, err := originFor(rawURL)
	if err != nil {
		return nil, err
	}
	cfg, err := websocket.NewConfig(rawURL, origin)
	if err != nil {
		return nil, fmt.Errorf("feed url %q: %w", rawURL, err)
	}
	cfg.Dialer = &net.Dialer{Timeout: dialTimeout}

	type result struct {
		ws  *websocket.Conn
		err error
	}
	ch := make(chan result, 1)
	go func() {
		ws, err := websocket.DialConfig(cfg)
		ch <- result{ws: ws, err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.ws != nil {
				r.ws.Close()
			}
		}()
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		return &wsConn{ws: r.ws}, nil
	}
}

// DeriveURL maps a backend HTTP base URL to its event socket URL.
// Returns "" when the base is not an absolute http(s) URL.
func DeriveURL(base string) string {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return ""
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return ""
	}
	u.Path = "/ws"
	u.RawQuery = ""
	return u.String()
}

// originFor derives the handshake origin from the feed URL.
func originFor(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("feed url %q: %w", rawURL, err)
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("feed url %q: scheme must be ws or wss", rawURL)
	}
	u.Path, u.RawQuery, u.Fragment = "/", "", ""
	return u.String(), nil
}
