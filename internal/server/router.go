package server

import (
	"github.com/Tyrowin/relaychat/internal/filter"
	"go.uber.org/zap"
)

// Router delivers filtered text to sessions held by a Registry. Every call
// holds the registry lock for its whole delivery pass, so no delivery ever
// observes a session halfway through removal.
type Router struct {
	registry *Registry
	filter   filter.Filter
	log      *zap.Logger
}

// NewRouter creates a router over registry. A nil filter delivers text as is.
func NewRouter(registry *Registry, f filter.Filter, log *zap.Logger) *Router {
	if f == nil {
		f = filter.Nop
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{registry: registry, filter: f, log: log}
}

// Broadcast filters text once and delivers it to every active session.
// Sessions whose delivery fails are removed; the failure is not returned.
func (rt *Router) Broadcast(text string) {
	filtered := rt.filter.Filter(text)

	rt.registry.mu.Lock()
	defer rt.registry.mu.Unlock()

	recipients := len(rt.registry.sessions)
	var failed []*Session
	for _, s := range rt.registry.sessions {
		if !rt.deliver(s, filtered) {
			failed = append(failed, s)
		}
	}
	rt.removeFailedLocked(failed)

	rt.log.Info("Broadcast",
		zap.String("text", filtered),
		zap.Int("recipients", recipients),
		zap.Int("failed", len(failed)))
}

// Direct filters text once and delivers it to recipient, echoing a copy to
// sender. It returns ErrRecipientNotFound, and delivers nothing, when no
// active session is named recipient.
func (rt *Router) Direct(text, sender, recipient string) error {
	filtered := rt.filter.Filter(text)

	rt.registry.mu.Lock()
	defer rt.registry.mu.Unlock()

	to, ok := rt.registry.byName[recipient]
	if !ok {
		rt.log.Debug("Direct message recipient not found",
			zap.String("sender", sender),
			zap.String("recipient", recipient))
		return ErrRecipientNotFound
	}

	var failed []*Session
	if !rt.deliver(to, filtered) {
		failed = append(failed, to)
	}
	if from, ok := rt.registry.byName[sender]; ok && from != to {
		if !rt.deliver(from, filtered) {
			failed = append(failed, from)
		}
	}
	rt.removeFailedLocked(failed)

	rt.log.Debug("Direct message delivered",
		zap.String("sender", sender),
		zap.String("recipient", recipient))
	return nil
}

func (rt *Router) deliver(s *Session, text string) bool {
	if err := s.Send(text); err != nil {
		rt.log.Warn("Delivery failed",
			zap.Int64("session_id", s.ID),
			zap.String("username", s.Username),
			zap.Error(err))
		return false
	}
	return true
}

func (rt *Router) removeFailedLocked(failed []*Session) {
	for _, s := range failed {
		rt.registry.removeLocked(s.ID)
	}
}
