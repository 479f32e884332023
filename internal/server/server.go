package server

import (
	"sync"

	"github.com/Tyrowin/relaychat/internal/filter"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server ties the registry, router and interpreter to the HTTP surface.
type Server struct {
	cfg         Config
	log         *zap.Logger
	registry    *Registry
	router      *Router
	interpreter *Interpreter
	upgrader    websocket.Upgrader

	workers sync.WaitGroup
	connMu  sync.Mutex
	conns   map[*wsConn]struct{}
	closing bool
}

// New builds a Server. The filter is constructed once by the caller and shared
// by every broadcast.
func New(cfg Config, f filter.Filter, log *zap.Logger, opts ...InterpreterOption) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	cfg = cfg.Sanitize()

	registry := NewRegistry(log)
	router := NewRouter(registry, f, log)
	opts = append([]InterpreterOption{WithRateLimit(cfg.RateLimit)}, opts...)
	origins := newOriginPolicy(cfg.AllowedOrigins, log)

	return &Server{
		cfg:         cfg,
		log:         log,
		registry:    registry,
		router:      router,
		interpreter: NewInterpreter(registry, router, log, opts...),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.check,
		},
		conns: make(map[*wsConn]struct{}),
	}
}

// Config returns the sanitized configuration in use.
func (s *Server) Config() Config { return s.cfg }

// Registry exposes the session registry.
func (s *Server) Registry() *Registry { return s.registry }

// Router exposes the message router.
func (s *Server) Router() *Router { return s.router }

// track registers c and its worker. It reports false once Close has started.
func (s *Server) track(c *wsConn) bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.closing {
		return false
	}
	s.conns[c] = struct{}{}
	s.workers.Add(1)
	return true
}

func (s *Server) untrack(c *wsConn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	delete(s.conns, c)
}

// closeConns stops accepting connections and closes those that never
// finished the handshake.
func (s *Server) closeConns() {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	s.closing = true
	for c := range s.conns {
		_ = c.Close()
	}
}
