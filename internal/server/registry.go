package server

import (
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Registry is the authoritative set of active sessions. It owns username
// uniqueness and id assignment; the Router routes through the same lock.
type Registry struct {
	mu       sync.RWMutex
	sessions []*Session // admission order
	byName   map[string]*Session
	nextID   int64
	closed   bool
	log      *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		byName: make(map[string]*Session),
		log:    log,
	}
}

// Admit inserts s unless an active session already uses its username, in which
// case ErrDuplicateUsername is returned and s is never stored. After CloseAll
// every admission fails with ErrRegistryClosed.
func (r *Registry) Admit(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}

	if _, taken := r.byName[s.Username]; taken {
		r.log.Info("User rejected (duplicate name)",
			zap.String("username", s.Username),
			zap.String("conn_id", s.ConnID))
		return ErrDuplicateUsername
	}

	s.ID = r.nextID
	r.nextID++
	s.setState(StateActive)
	r.sessions = append(r.sessions, s)
	r.byName[s.Username] = s

	r.log.Info("Session admitted",
		zap.Int64("session_id", s.ID),
		zap.String("username", s.Username),
		zap.String("conn_id", s.ConnID),
		zap.Int("sessions", len(r.sessions)))
	return nil
}

// Remove drops the session with the given id and closes its outbound handle.
// It reports whether anything was removed.
func (r *Registry) Remove(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.removeLocked(id)
	return ok
}

// removeLocked must be called with r.mu held for writing.
func (r *Registry) removeLocked(id int64) (*Session, bool) {
	s, idx, found := lo.FindIndexOf(r.sessions, func(s *Session) bool { return s.ID == id })
	if !found {
		return nil, false
	}

	s.setState(StateClosing)
	r.sessions = append(r.sessions[:idx], r.sessions[idx+1:]...)
	delete(r.byName, s.Username)
	_ = s.Close()

	r.log.Info("Session removed",
		zap.Int64("session_id", s.ID),
		zap.String("username", s.Username),
		zap.Int("sessions", len(r.sessions)))
	return s, true
}

// Snapshot returns the active sessions in admission order.
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]*Session(nil), r.sessions...)
}

// Usernames returns the active usernames in admission order.
func (r *Registry) Usernames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Map(r.sessions, func(s *Session, _ int) string { return s.Username })
}

// Lookup finds an active session by username.
func (r *Registry) Lookup(username string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byName[username]
	return s, ok
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}

// CloseAll removes every session, closes their outbound handles and stops
// further admissions. It returns how many sessions were closed.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true

	closed := len(r.sessions)
	for _, s := range r.sessions {
		s.setState(StateClosing)
		_ = s.Close()
	}
	r.sessions = nil
	r.byName = make(map[string]*Session)

	r.log.Info("Closed all sessions", zap.Int("sessions", closed))
	return closed
}
