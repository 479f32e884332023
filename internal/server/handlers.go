package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// WebSocketHandler upgrades the request and hands the connection to the
// interpreter on a tracked goroutine.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Info("WebSocket upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}

	conn := newWSConn(ws, r.RemoteAddr, s.cfg, s.log)
	if !s.track(conn) {
		s.log.Info("Rejecting connection during shutdown", zap.String("remote_addr", r.RemoteAddr))
		_ = conn.Close()
		conn.Wait(writeWait)
		return
	}
	go func() {
		defer s.workers.Done()
		defer s.untrack(conn)
		s.serveConn(conn)
	}()
}

func (s *Server) serveConn(conn *wsConn) {
	err := s.interpreter.Serve(conn)
	switch {
	case err == nil:
	case errors.Is(err, ErrDuplicateUsername), errors.Is(err, ErrInvalidUsername), errors.Is(err, ErrRegistryClosed):
		s.log.Info("Connection rejected", zap.String("remote_addr", conn.RemoteAddr()), zap.Error(err))
	default:
		s.log.Debug("Connection ended", zap.String("remote_addr", conn.RemoteAddr()), zap.Error(err))
	}

	_ = conn.Close()
	conn.Wait(writeWait)
}

// HealthHandler reports that the server is up.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "relaychat server is running!")
}

// Stats is the body served by StatsHandler.
type Stats struct {
	Sessions  int      `json:"sessions"`
	Usernames []string `json:"usernames"`
}

// StatsHandler serves the current membership as JSON.
func (s *Server) StatsHandler(w http.ResponseWriter, _ *http.Request) {
	usernames := s.registry.Usernames()
	if usernames == nil {
		usernames = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(Stats{Sessions: len(usernames), Usernames: usernames}); err != nil {
		s.log.Warn("Error writing stats response", zap.Error(err))
	}
}
