//go:generate go run go.uber.org/mock/mockgen -source=conn.go -destination=../mocks/mock_conn.go -package=mocks

package server

import (
	"errors"

	"github.com/Tyrowin/relaychat/internal/chat"
)

var (
	ErrDuplicateUsername = errors.New("username already taken")
	ErrInvalidUsername   = errors.New("invalid username")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrSessionClosed     = errors.New("session closed")
	ErrRegistryClosed    = errors.New("registry closed")
	ErrOutboundFull      = errors.New("outbound buffer full")
)

// Outbound is the write half of a session's transport.
// Close must be idempotent and safe to call from any goroutine.
type Outbound interface {
	Send(text string) error
	Close() error
}

// Conn is the bidirectional channel the interpreter drives for one session.
// ReadUsername is called exactly once, before any Receive.
type Conn interface {
	Outbound
	ReadUsername() (string, error)
	Receive() (chat.Message, error)
	RemoteAddr() string
}
