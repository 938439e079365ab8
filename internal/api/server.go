// Package api exposes the ledger engine over HTTP: the three required
// endpoints (submit block, get balance, rollback) plus a supplemental
// websocket feed of engine events.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/klingon-exchange/ledger-indexer/internal/ledger"
	"github.com/klingon-exchange/ledger-indexer/pkg/logging"
)

// Server is the HTTP transport for the ledger engine.
type Server struct {
	engine *ledger.Engine
	log    *logging.Logger
	wsHub  *WSHub

	httpServer *http.Server
	listener   net.Listener
}

// NewServer constructs a Server over engine. engine may be nil at
// construction time and set later with SetEngine — the websocket hub
// must exist before the engine so it can be registered as the engine's
// event sink.
func NewServer(engine *ledger.Engine, log *logging.Logger) *Server {
	return &Server{
		engine: engine,
		log:    log,
		wsHub:  NewWSHub(log),
	}
}

// SetEngine attaches the engine the server dispatches requests to.
func (s *Server) SetEngine(engine *ledger.Engine) {
	s.engine = engine
}

// Handler builds the routed http.Handler, wrapped in CORS middleware.
// Exposed separately from Start so tests can drive it with httptest
// without binding a real socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /blocks", s.handleSubmitBlock)
	// {address...} (rather than a single {address} segment) also matches
	// "/balance/" with an empty remainder, so a missing address reaches
	// the handler's own VALIDATION_ERROR check instead of the mux's 404.
	mux.HandleFunc("GET /balance/{address...}", s.handleGetBalance)
	mux.HandleFunc("POST /rollback", s.handleRollback)
	mux.HandleFunc("GET /ws", s.handleWS)
	return corsMiddleware(mux)
}

// Start binds addr and begins serving. The websocket hub's event loop
// starts in its own goroutine alongside the HTTP server.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	go s.wsHub.Run()

	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("HTTP server error", "error", err)
		}
	}()

	s.log.Info("HTTP server started", "addr", addr)
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// WSHub returns the websocket event hub so it can be registered as the
// engine's ledger.EventSink.
func (s *Server) WSHub() *WSHub {
	return s.wsHub
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
