// Package dashboard serves the operator web UI: a REST facade over the
// simulation API, a server-side graph view, and a WebSocket hub relaying the
// simulation's event feed to connected browsers.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"brainzzz/internal/backend"
	"brainzzz/internal/feed"
	"brainzzz/internal/model"
	"brainzzz/internal/render"
	"brainzzz/internal/snapshot"
)

const (
	DefaultListen     = "127.0.0.1:8080"
	defaultViewWidth  = 960
	defaultViewHeight = 640
)

// Config carries the dashboard knobs. Zero values get working defaults.
type Config struct {
	// Listen is the TCP address the dashboard binds.
	Listen string
	// BackendURL is the simulation REST API base.
	BackendURL string
	// FeedURL is the simulation WebSocket endpoint. Empty derives ws://.../ws
	// from BackendURL.
	FeedURL string
	// ViewWidth and ViewHeight size the server-side drawing surface.
	ViewWidth  int
	ViewHeight int
	// Client overrides the backend client, for tests.
	Client *backend.Client
}

// Server is the dashboard process. New builds it, Start binds and serves,
// Stop shuts it down.
type Server struct {
	cfg    Config
	app    *fiber.App
	client *backend.Client
	loader *snapshot.Loader
	tasks  *taskRegistry
	hub    *hub
	views  *viewHost

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	ln      net.Listener
	done    chan error
}

func New(cfg Config) (*Server, error) {
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.ViewWidth <= 0 {
		cfg.ViewWidth = defaultViewWidth
	}
	if cfg.ViewHeight <= 0 {
		cfg.ViewHeight = defaultViewHeight
	}

	client := cfg.Client
	if client == nil {
		var err error
		client, err = backend.New(backend.Options{BaseURL: cfg.BackendURL})
		if err != nil {
			return nil, fmt.Errorf("backend client: %w", err)
		}
	}
	loader, err := snapshot.NewLoader(client)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:    cfg,
		client: client,
		loader: loader,
		tasks:  newTaskRegistry(),
		hub:    newHub(),
		views:  newViewHost(loader, render.Surface{Width: cfg.ViewWidth, Height: cfg.ViewHeight}),
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "Brainzzz Dashboard",
		DisableStartupMessage: true,
	})
	s.app.Use(logger.New())
	s.app.Use(cors.New())
	s.routes()
	return s, nil
}

// Start binds the listener and launches the hub and the feed pump. It
// returns once the address is bound; serving continues in the background
// until Stop or until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("dashboard already started")
	}

	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Listen, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.ln = ln
	s.done = make(chan error, 1)

	go s.hub.run(runCtx)
	if err := s.startFeed(runCtx); err != nil {
		cancel()
		ln.Close()
		return err
	}
	go func() { s.done <- s.app.Listener(ln) }()

	s.started = true
	log.Printf("dashboard: listening at http://%s (backend %s)", ln.Addr(), s.client.BaseURL())
	return nil
}

func (s *Server) startFeed(ctx context.Context) error {
	feedURL := s.cfg.FeedURL
	if feedURL == "" {
		feedURL = feed.DeriveURL(s.client.BaseURL())
	}
	if feedURL == "" {
		log.Printf("dashboard: no feed url, live events disabled")
		return nil
	}

	client, err := feed.NewClient(feed.Options{
		URL:     feedURL,
		OnEvent: s.handleEvent,
		OnStateChange: func(st feed.State) {
			s.hub.sendEnvelope(controlEnvelope("feed "+string(st), nil))
		},
	})
	if err != nil {
		return fmt.Errorf("feed client: %w", err)
	}
	go func() {
		if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("dashboard: feed stopped: %v", err)
		}
	}()
	return nil
}

// Stop shuts the server down: HTTP drained, view destroyed, feed and hub
// cancelled. Safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.cancel()
	s.views.close()
	s.loader.Invalidate()
	err := s.app.ShutdownWithContext(ctx)
	s.started = false
	return err
}

// Run serves until ctx is cancelled or the listener fails. Cancellation is a
// normal exit.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(stopCtx)
	case err := <-s.done:
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Stop(stopCtx)
		if err != nil {
			return fmt.Errorf("dashboard listener: %w", err)
		}
		return nil
	}
}

// Addr reports the bound address, useful with a :0 listen config.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return s.cfg.Listen
	}
	return s.ln.Addr().String()
}

// handleEvent relays one feed envelope to the browsers and reacts to the
// types that invalidate dashboard state.
func (s *Server) handleEvent(env model.Envelope) {
	s.hub.sendEnvelope(env)

	switch env.Type {
	case model.EventPopulationUpdate, model.EventEvolutionStep:
		s.loader.Invalidate()
	case model.EventBrainUpdate:
		var payload struct {
			ID int `json:"id"`
		}
		if err := json.Unmarshal(env.Data, &payload); err != nil || payload.ID == 0 {
			return
		}
		if snap, ok := s.loader.Current(); ok && snap.ID == payload.ID {
			s.loader.Invalidate()
		}
	case model.EventTaskUpdate:
		if err := s.tasks.ApplyEvent(env.Data); err != nil {
			log.Printf("dashboard: task update: %v", err)
		}
	}
}

// handleSocket serves one browser WebSocket connection: greet, then hold the
// read side open until the client goes away. All pushes flow through the hub.
func (s *Server) handleSocket(c *websocket.Conn) {
	id := s.hub.register(c)
	defer func() {
		s.hub.unregister(c)
		c.Close()
	}()

	hello := controlEnvelope("connected", map[string]any{"client_id": id})
	if data, err := json.Marshal(hello); err == nil {
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}
