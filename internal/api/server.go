package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// ServerOptions are the optional parts of a Server
type ServerOptions struct {
	Renderer          FrameRenderer
	RateLimit         RateLimitConfig // Zero budgets use DefaultRateLimitConfig
	MaxClients        int             // WebSocket cap, zero uses MaxWSConnectionsTotal
	BroadcastInterval time.Duration   // Zero uses DefaultBroadcastInterval
	DisableLogging    bool
}

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with WebSocket hub for real-time updates.
type Server struct {
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
	interval    time.Duration
	workersOnce sync.Once
}

// NewServer creates a new API server.
//
// Background workers do NOT start until Start() or StartWorkers() is called,
// so tests can construct the server and use Router() directly.
func NewServer(engine EngineInterface, opts ServerOptions) *Server {
	s := &Server{
		wsHub:       NewWebSocketHub(engine, opts.MaxClients),
		rateLimiter: NewIPRateLimiter(opts.RateLimit),
		interval:    opts.BroadcastInterval,
	}

	s.router = NewRouter(RouterConfig{
		Engine:         engine,
		Renderer:       opts.Renderer,
		RateLimiter:    s.rateLimiter,
		DisableLogging: opts.DisableLogging,
	})

	// WebSocket route needs the hub instance, so it is not part of NewRouter
	s.router.Get("/ws", s.wsHub.HandleWebSocket)

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// StartWorkers starts the hub and the snapshot broadcast loop once
func (s *Server) StartWorkers() {
	s.workersOnce.Do(func() {
		go s.wsHub.Run()
		s.wsHub.StartBroadcastLoop(s.interval)
	})
}

// Start begins the HTTP server AND starts background workers.
// It blocks until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.StartWorkers()

	s.httpServer.Addr = addr
	log.Printf("🌐 API server starting on %s", addr)
	log.Printf("🎮 Frame: http://localhost%s/api/frame.png", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones and stops
// the background workers
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.Stop()
	return err
}

// Router returns the HTTP handler for use with httptest.
//
//	server := api.NewServer(engine, api.ServerOptions{})
//	ts := httptest.NewServer(server.Router())
//	defer ts.Close()
func (s *Server) Router() http.Handler {
	return s.router
}

// Stop performs shutdown of background workers.
func (s *Server) Stop() {
	s.rateLimiter.Stop()
	s.wsHub.Stop()
}
