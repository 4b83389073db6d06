package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocket upgrader for the log stream
var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ControlServer exposes a small HTTP surface over a running batch: a
// health check, a live log stream, and a stop switch that cancels the
// run context.
type ControlServer struct {
	logger  *zap.Logger
	hub     *LogHub
	stop    func()
	started time.Time

	srv *http.Server
}

func NewControlServer(logger *zap.Logger, hub *LogHub, stop func()) *ControlServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if stop == nil {
		stop = func() {}
	}
	return &ControlServer{logger: logger, hub: hub, stop: stop, started: time.Now()}
}

// Handler builds the route mux. Split out so tests can serve it directly.
func (s *ControlServer) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// JSON stats endpoint
	mux.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"start_time": s.started,
			"uptime":     time.Since(s.started).Round(time.Second).String(),
			"goroutines": runtime.NumGoroutine(),
			"go_version": runtime.Version(),
		})
	})

	// Stop switch: cancels the run context so workers wind down at the
	// next checkpoint instead of being killed mid-click.
	mux.HandleFunc("/stop", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.logger.Info("Stop requested via control server")
		s.stop()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"stopping": true})
	})

	// WebSocket endpoint for the live log stream
	mux.HandleFunc("/logs", func(w http.ResponseWriter, req *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, req, nil)
		if err != nil {
			s.logger.Error("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		lines, cancel := s.hub.Subscribe()
		defer cancel()

		// Drain reads so close frames are processed
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					cancel()
					return
				}
			}
		}()

		for line := range lines {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				return // Client disconnected
			}
		}
	})

	return mux
}

// Start begins serving on the given port in a background goroutine.
func (s *ControlServer) Start(port int) {
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Handler(),
	}

	go func() {
		s.logger.Info("Control server listening", zap.Int("port", port))
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("control server error", zap.Error(err))
		}
	}()
}

// Shutdown stops the HTTP server, waiting up to the given timeout for
// in-flight requests.
func (s *ControlServer) Shutdown(timeout time.Duration) {
	if s.srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("control server shutdown", zap.Error(err))
	}
}
