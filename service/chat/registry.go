package chat

import (
	"time"

	"PPLink/logger"

	"go.uber.org/zap"
)

// Registry maps a principal to its single live connection (last connect wins).
// Not safe for concurrent use; only the hub loop touches it.
type Registry struct {
	sessions  map[string]Conn
	observers []SessionObserver
	now       func() time.Time
}

func NewRegistry(observers ...SessionObserver) *Registry {
	return &Registry{
		sessions:  make(map[string]Conn),
		observers: observers,
		now:       time.Now,
	}
}

func (r *Registry) Observe(o SessionObserver) {
	if o != nil {
		r.observers = append(r.observers, o)
	}
}

// Register stores c as the handle for principalID, replacing any previous one,
// and notifies observers.
func (r *Registry) Register(principalID string, c Conn) {
	if principalID == "" || c == nil {
		return
	}
	if old, ok := r.sessions[principalID]; ok && old.ID() != c.ID() {
		logger.Debug("session replaced",
			zap.String("user", principalID), zap.String("old", old.ID()), zap.String("new", c.ID()))
	}
	r.sessions[principalID] = c
	at := r.now()
	for _, o := range r.observers {
		o.SessionOnline(principalID, c, at)
	}
}

// Unregister removes the entry for principalID. Absent principal: no-op, no broadcast.
func (r *Registry) Unregister(principalID string) bool {
	c, ok := r.sessions[principalID]
	if !ok {
		return false
	}
	delete(r.sessions, principalID)
	at := r.now()
	for _, o := range r.observers {
		o.SessionOffline(principalID, c, at)
	}
	return true
}

// UnregisterConn removes c only while it is still the current handle for its principal.
// A connection replaced by a newer login leaves the newer entry untouched.
func (r *Registry) UnregisterConn(c Conn) bool {
	if c == nil {
		return false
	}
	id := c.Principal().ID
	cur, ok := r.sessions[id]
	if !ok || cur.ID() != c.ID() {
		return false
	}
	return r.Unregister(id)
}

func (r *Registry) IsOnline(principalID string) bool {
	_, ok := r.sessions[principalID]
	return ok
}

func (r *Registry) HandleFor(principalID string) (Conn, bool) {
	c, ok := r.sessions[principalID]
	return c, ok
}

// Send delivers one event to the principal's current connection.
// Returns false when the principal is offline or the frame could not be queued.
func (r *Registry) Send(principalID, event string, payload any) bool {
	c, ok := r.sessions[principalID]
	if !ok {
		return false
	}
	frame, err := Encode(event, payload)
	if err != nil {
		logger.Error("encode frame", zap.String("event", event), zap.Error(err))
		return false
	}
	if err := c.Send(frame); err != nil {
		logger.Warn("send frame", zap.String("user", principalID), zap.String("event", event), zap.Error(err))
		return false
	}
	return true
}

// Broadcast sends to every session except the one owned by except. Returns deliveries.
func (r *Registry) Broadcast(event string, payload any, except string) int {
	frame, err := Encode(event, payload)
	if err != nil {
		logger.Error("encode frame", zap.String("event", event), zap.Error(err))
		return 0
	}
	n := 0
	for id, c := range r.sessions {
		if id == except {
			continue
		}
		if err := c.Send(frame); err != nil {
			logger.Debug("broadcast skip", zap.String("user", id), zap.Error(err))
			continue
		}
		n++
	}
	return n
}

func (r *Registry) Len() int { return len(r.sessions) }

