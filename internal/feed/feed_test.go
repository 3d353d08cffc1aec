package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"brainzzz/internal/model"
)

func frame(eventType, data string) string {
	return fmt.Sprintf(`{"type":%q,"schema_version":"1.0.0","ts":"2026-08-22T10:00:00Z","data":%s}`, eventType, data)
}

type scriptConn struct {
	frames []string
	final  error
	next   int
}

func (c *scriptConn) Receive() (string, error) {
	if c.next < len(c.frames) {
		f := c.frames[c.next]
		c.next++
		return f, nil
	}
	return "", c.final
}

func (c *scriptConn) Close() error { return nil }

type blockingConn struct {
	closed chan struct{}
	once   sync.Once
}

func newBlockingConn() *blockingConn {
	return &blockingConn{closed: make(chan struct{})}
}

func (c *blockingConn) Receive() (string, error) {
	<-c.closed
	return "", errors.New("use of closed connection")
}

func (c *blockingConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

type scriptDialer struct {
	mu       sync.Mutex
	sessions []func() (Conn, error)
	dialed   int
}

func (d *scriptDialer) dial(ctx context.Context, url string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.dialed
	d.dialed++
	if i < len(d.sessions) {
		return d.sessions[i]()
	}
	return nil, errors.New("connection refused")
}

func (d *scriptDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dialed
}

func session(final error, frames ...string) func() (Conn, error) {
	return func() (Conn, error) {
		return &scriptConn{frames: frames, final: final}, nil
	}
}

func newTestClient(t *testing.T, d *scriptDialer, maxAttempts int, onEvent func(model.Envelope)) *Client {
	t.Helper()
	c, err := NewClient(Options{
		URL:            "ws://127.0.0.1:8000/ws",
		Dial:           d.dial,
		ReconnectEvery: time.Millisecond,
		MaxAttempts:    maxAttempts,
		OnEvent:        onEvent,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(frame(model.EventBrainUpdate, `{"id":7}`)))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Type != model.EventBrainUpdate {
		t.Fatalf("type = %q, want %q", env.Type, model.EventBrainUpdate)
	}
	if env.SchemaVersion != "1.0.0" {
		t.Fatalf("schema_version = %q, want 1.0.0", env.SchemaVersion)
	}
	if string(env.Data) != `{"id":7}` {
		t.Fatalf("data = %s", env.Data)
	}

	if _, err := DecodeEnvelope([]byte(`{"schema_version":"1.0.0","data":{}}`)); !errors.Is(err, ErrMalformedEvent) {
		t.Fatalf("missing type: err = %v, want ErrMalformedEvent", err)
	}
	if _, err := DecodeEnvelope([]byte(`{not json`)); !errors.Is(err, ErrMalformedEvent) {
		t.Fatalf("bad json: err = %v, want ErrMalformedEvent", err)
	}

	env, err = DecodeEnvelope([]byte(frame("telemetry_v2", `{}`)))
	if err != nil {
		t.Fatalf("unknown type should pass through, got %v", err)
	}
	if env.Type != "telemetry_v2" {
		t.Fatalf("type = %q", env.Type)
	}
}

func TestRunDeliversFramesAndStopsOnNormalClosure(t *testing.T) {
	d := &scriptDialer{sessions: []func() (Conn, error){
		session(io.EOF,
			frame(model.EventBrainUpdate, `{"id":7}`),
			"not even json",
			frame(model.EventTaskUpdate, `{"task":"xor"}`),
		),
	}}
	var got []string
	c := newTestClient(t, d, 5, func(env model.Envelope) {
		got = append(got, env.Type)
	})

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if d.count() != 1 {
		t.Fatalf("dials = %d, want 1 (no retry after normal closure)", d.count())
	}
	want := []string{model.EventBrainUpdate, model.EventTaskUpdate}
	if len(got) != len(want) {
		t.Fatalf("delivered %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRunExhaustsReconnectBudget(t *testing.T) {
	d := &scriptDialer{}
	c := newTestClient(t, d, 3, func(model.Envelope) {})

	err := c.Run(context.Background())
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("err = %v, want ErrRetriesExhausted", err)
	}
	if d.count() != 3 {
		t.Fatalf("dials = %d, want 3", d.count())
	}
}

func TestRunResetsBudgetAfterHealthySession(t *testing.T) {
	refused := errors.New("connection refused")
	dropped := errors.New("connection reset by peer")
	fail := func() (Conn, error) { return nil, refused }
	d := &scriptDialer{sessions: []func() (Conn, error){
		fail,
		fail,
		session(dropped,
			frame(model.EventEvolutionStep, `{"generation":4}`),
			frame(model.EventPopulationUpdate, `{}`),
		),
		fail,
		fail,
	}}
	events := 0
	c := newTestClient(t, d, 3, func(model.Envelope) { events++ })

	err := c.Run(context.Background())
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("err = %v, want ErrRetriesExhausted", err)
	}
	// Two failures, then a session that delivers frames; its drop plus two
	// more failures exhaust the refreshed budget.
	if d.count() != 5 {
		t.Fatalf("dials = %d, want 5", d.count())
	}
	if events != 2 {
		t.Fatalf("events = %d, want 2", events)
	}
}

func TestRunStopsWhenContextCancelledMidSession(t *testing.T) {
	conn := newBlockingConn()
	d := &scriptDialer{sessions: []func() (Conn, error){
		func() (Conn, error) { return conn, nil },
	}}
	states := make(chan State, 8)
	c, err := NewClient(Options{
		URL:            "ws://127.0.0.1:8000/ws",
		Dial:           d.dial,
		ReconnectEvery: time.Millisecond,
		MaxAttempts:    5,
		OnEvent:        func(model.Envelope) {},
		OnStateChange:  func(s State) { states <- s },
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	for s := range states {
		if s == StateConnected {
			break
		}
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
	if d.count() != 1 {
		t.Fatalf("dials = %d, want 1 (no retry after cancel)", d.count())
	}
}

func TestRunStopsWhenContextCancelledBetweenAttempts(t *testing.T) {
	dialed := make(chan struct{}, 1)
	dial := func(ctx context.Context, url string) (Conn, error) {
		select {
		case dialed <- struct{}{}:
		default:
		}
		return nil, errors.New("connection refused")
	}
	c, err := NewClient(Options{
		URL:            "ws://127.0.0.1:8000/ws",
		Dial:           dial,
		ReconnectEvery: time.Hour,
		MaxAttempts:    5,
		OnEvent:        func(model.Envelope) {},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	<-dialed
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop while waiting to reconnect")
	}
}

func TestNewClientValidates(t *testing.T) {
	if _, err := NewClient(Options{OnEvent: func(model.Envelope) {}}); err == nil {
		t.Fatal("missing url accepted")
	}
	if _, err := NewClient(Options{URL: "ws://x/ws"}); err == nil {
		t.Fatal("missing event handler accepted")
	}

	c, err := NewClient(Options{URL: "ws://x/ws", OnEvent: func(model.Envelope) {}})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if c.interval != DefaultReconnectInterval {
		t.Fatalf("interval = %s, want %s", c.interval, DefaultReconnectInterval)
	}
	if c.maxTries != DefaultMaxAttempts {
		t.Fatalf("max attempts = %d, want %d", c.maxTries, DefaultMaxAttempts)
	}
}

func TestOriginFor(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"ws://127.0.0.1:8000/ws", "http://127.0.0.1:8000/"},
		{"wss://brainzzz.example/ws?x=1", "https://brainzzz.example/"},
	}
	for _, tc := range cases {
		got, err := originFor(tc.in)
		if err != nil {
			t.Fatalf("originFor(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("originFor(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if _, err := originFor("http://127.0.0.1:8000/ws"); err == nil {
		t.Fatal("http scheme accepted")
	}
}

func TestDeriveURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"http://127.0.0.1:8000", "ws://127.0.0.1:8000/ws"},
		{"https://sim.example", "wss://sim.example/ws"},
		{"ftp://sim.example", ""},
		{"not a url", ""},
	}
	for _, tc := range cases {
		if got := DeriveURL(tc.in); got != tc.want {
			t.Fatalf("DeriveURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
