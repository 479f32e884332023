package server

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// State is a session's position in its lifecycle.
type State int32

const (
	StateConnecting State = iota
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Session is one connected participant. ID is assigned by the Registry on
// admission; Username never changes.
type Session struct {
	ID         int64
	Username   string
	ConnID     string
	RemoteAddr string

	out   Outbound
	state atomic.Int32
}

// NewSession creates a session in the Connecting state.
func NewSession(username, remoteAddr string, out Outbound) *Session {
	s := &Session{
		ID:         -1,
		Username:   username,
		ConnID:     uuid.NewString(),
		RemoteAddr: remoteAddr,
		out:        out,
	}
	s.state.Store(int32(StateConnecting))
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// Send queues text on the session's outbound handle.
func (s *Session) Send(text string) error {
	if s.State() == StateClosed {
		return ErrSessionClosed
	}
	return s.out.Send(text)
}

// Close closes the outbound handle. Calling it more than once is harmless.
func (s *Session) Close() error {
	if State(s.state.Swap(int32(StateClosed))) == StateClosed {
		return nil
	}
	return s.out.Close()
}
