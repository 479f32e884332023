package server

import "net/http"

// Routes returns a ServeMux with the health, stats and WebSocket endpoints.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/stats", s.StatsHandler)
	mux.HandleFunc("/ws", s.WebSocketHandler)
	return mux
}
