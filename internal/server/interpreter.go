package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Tyrowin/relaychat/internal/chat"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const rateLimitedNotice = "You are sending messages too quickly; message discarded."

// Interpreter runs the admission handshake and the steady-state command loop
// for one connection at a time. A single Interpreter serves every connection.
type Interpreter struct {
	registry  *Registry
	router    *Router
	log       *zap.Logger
	now       func() time.Time
	rateLimit *RateLimitConfig
}

// InterpreterOption customises an Interpreter.
type InterpreterOption func(*Interpreter)

// WithClock overrides the clock used for chat timestamps.
func WithClock(now func() time.Time) InterpreterOption {
	return func(in *Interpreter) { in.now = now }
}

// WithRateLimit throttles each session's inbound messages.
func WithRateLimit(cfg RateLimitConfig) InterpreterOption {
	return func(in *Interpreter) { in.rateLimit = &cfg }
}

// NewInterpreter wires an interpreter to its registry and router.
func NewInterpreter(registry *Registry, router *Router, log *zap.Logger, opts ...InterpreterOption) *Interpreter {
	if log == nil {
		log = zap.NewNop()
	}
	in := &Interpreter{
		registry: registry,
		router:   router,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Serve admits the peer on conn and interprets its messages until logout,
// transport failure or server-side removal. It returns nil after a logout.
func (in *Interpreter) Serve(conn Conn) error {
	sess, err := in.admit(conn)
	if err != nil {
		return err
	}

	var limiter *rateLimiter
	if in.rateLimit != nil {
		limiter = newRateLimiter(*in.rateLimit, in.now)
	}

	for {
		msg, err := conn.Receive()
		if err != nil {
			if errors.Is(err, chat.ErrMalformedMessage) {
				in.log.Debug("Malformed message",
					zap.Int64("session_id", sess.ID),
					zap.Error(err))
				in.reply(sess, chat.Notice("Could not understand that message."))
				continue
			}
			in.dropped(sess, err)
			return err
		}

		if !isLogout(msg) && !limiter.allow() {
			in.log.Info("Rate limit exceeded; discarding message",
				zap.Int64("session_id", sess.ID),
				zap.String("username", sess.Username))
			in.reply(sess, chat.Notice(rateLimitedNotice))
			continue
		}

		if done := in.handle(sess, msg); done {
			return nil
		}
	}
}

// isLogout reports whether msg asks to end the session. Logouts bypass the
// rate limiter.
func isLogout(msg chat.Message) bool {
	return msg.Kind == chat.KindCommand && strings.TrimSpace(msg.Body) == string(chat.CommandLogout)
}

func (in *Interpreter) admit(conn Conn) (*Session, error) {
	username, err := conn.ReadUsername()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read username: %w", err)
	}

	username = strings.TrimSpace(username)
	if username == "" {
		_ = conn.Close()
		return nil, ErrInvalidUsername
	}

	sess := NewSession(username, conn.RemoteAddr(), conn)
	if err := in.registry.Admit(sess); err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			_ = sess.Send(chat.DuplicateSentinel)
		}
		_ = sess.Close()
		return nil, err
	}

	in.router.Broadcast(chat.JoinedLine(username))
	return sess, nil
}

// handle interprets one inbound message and reports whether the session ended.
func (in *Interpreter) handle(sess *Session, msg chat.Message) bool {
	switch {
	case msg.Kind == chat.KindCommand:
		return in.command(sess, msg.Body)
	case msg.IsChat():
		in.router.Broadcast(chat.ChatLine(in.now(), sess.Username, msg.Body))
	default:
		in.log.Debug("Ignoring message",
			zap.Int64("session_id", sess.ID),
			zap.String("kind", string(msg.Kind)))
	}
	return false
}

func (in *Interpreter) command(sess *Session, body string) bool {
	cmd, err := chat.ParseCommand(body)
	if err != nil {
		var cmdErr *chat.CommandError
		if errors.As(err, &cmdErr) {
			in.reply(sess, chat.Notice(cmdErr.Error()))
		}
		return false
	}

	switch cmd.Name {
	case chat.CommandLogout:
		if !in.registry.Remove(sess.ID) {
			in.log.Debug("Logout after session was already removed",
				zap.String("username", sess.Username),
				zap.Int64("session_id", sess.ID))
			return true
		}
		in.log.Info("User logged out", zap.String("username", sess.Username), zap.Int64("session_id", sess.ID))
		in.router.Broadcast(chat.LogoutLine(sess.Username))
		return true

	case chat.CommandMsg:
		if cmd.Target == sess.Username {
			in.log.Debug("Suppressed private message to self", zap.String("username", sess.Username))
			return false
		}
		line := chat.DirectLine(in.now(), sess.Username, cmd.Target, cmd.Text)
		if err := in.router.Direct(line, sess.Username, cmd.Target); errors.Is(err, ErrRecipientNotFound) {
			in.reply(sess, chat.UnknownRecipientLine(cmd.Target))
		}

	case chat.CommandList:
		others := lo.Filter(in.registry.Snapshot(), func(s *Session, _ int) bool { return s.ID != sess.ID })
		for _, other := range others {
			in.reply(sess, chat.ListEntry(other.Username))
		}

	default:
		in.log.Debug("Ignoring unknown command",
			zap.Int64("session_id", sess.ID),
			zap.String("command", cmd.Raw))
	}
	return false
}

// reply sends unfiltered text to one session. A failed send removes it.
func (in *Interpreter) reply(sess *Session, text string) {
	if err := sess.Send(text); err != nil {
		in.log.Warn("Reply failed; removing session",
			zap.Int64("session_id", sess.ID),
			zap.Error(err))
		in.registry.Remove(sess.ID)
	}
}

// dropped cleans up after a transport failure. The departure notice is only
// sent when this call is the one that removed the session.
func (in *Interpreter) dropped(sess *Session, err error) {
	if !in.registry.Remove(sess.ID) {
		in.log.Debug("Session already removed",
			zap.Int64("session_id", sess.ID),
			zap.Error(err))
		return
	}
	in.log.Info("User force closed and disconnected",
		zap.String("username", sess.Username),
		zap.Int64("session_id", sess.ID),
		zap.Error(err))
	in.router.Broadcast(chat.DroppedLine(sess.Username))
}
