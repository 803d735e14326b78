package chat

import (
	"context"
	"encoding/json"
	"time"

	"PPLink/logger"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// presenceEnvelope is what travels on the cluster bus.
type presenceEnvelope struct {
	Origin  string          `json:"origin"`
	Event   string          `json:"event"`
	UserID  string          `json:"userId"`
	Payload json.RawMessage `json:"payload"`
}

// Presence fans global presence events out to every other session on this node
// and, when a bus is configured, to the other nodes.
type Presence struct {
	registry *Registry
	bus      Bus
	nodeID   string
	effects  *Effects
}

func NewPresence(registry *Registry, bus Bus, nodeID string, effects *Effects) *Presence {
	return &Presence{registry: registry, bus: bus, nodeID: nodeID, effects: effects}
}

func (p *Presence) SessionOnline(principalID string, _ Conn, _ time.Time) {
	p.announce(EventUserOnline, principalID, PresencePayload{UserID: principalID})
}

func (p *Presence) SessionOffline(principalID string, _ Conn, at time.Time) {
	p.announce(EventUserOffline, principalID, PresencePayload{UserID: principalID, LastActive: &at})
}

// AnnounceProfileUpdate sends fields as given. Callers strip private fields first.
func (p *Presence) AnnounceProfileUpdate(principalID string, fields map[string]any) int {
	return p.announce(EventProfileUpdated, principalID, ProfileUpdatePayload{UserID: principalID, Fields: fields})
}

func (p *Presence) announce(event, principalID string, payload any) int {
	n := p.registry.Broadcast(event, payload, principalID)
	p.publish(event, principalID, payload)
	return n
}

func (p *Presence) publish(event, principalID string, payload any) {
	if p.bus == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Error("presence marshal", zap.String("event", event), zap.Error(err))
		return
	}
	data, err := json.Marshal(presenceEnvelope{Origin: p.nodeID, Event: event, UserID: principalID, Payload: raw})
	if err != nil {
		logger.Error("presence envelope", zap.String("event", event), zap.Error(err))
		return
	}
	p.effects.Go("presence.publish", func(ctx context.Context) error {
		return errors.Wrap(p.bus.Publish(ctx, data), event)
	})
}

// HandleRemote fans out an event published by another node. Own events are ignored.
func (p *Presence) HandleRemote(data []byte) int {
	var env presenceEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		logger.Warn("presence envelope decode", zap.Error(err))
		return 0
	}
	if env.Origin == p.nodeID {
		return 0
	}
	switch env.Event {
	case EventUserOnline, EventUserOffline, EventProfileUpdated:
	default:
		logger.Warn("presence envelope unknown event", zap.String("event", env.Event), zap.String("origin", env.Origin))
		return 0
	}
	return p.registry.Broadcast(env.Event, env.Payload, env.UserID)
}
