package chat

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// PresenceRecorder persists session transitions to the profile store and the
// presence mirror. Both are optional; every write is best effort.
type PresenceRecorder struct {
	profiles ProfileStore
	mirror   PresenceMirror
	effects  *Effects
}

func NewPresenceRecorder(profiles ProfileStore, mirror PresenceMirror, effects *Effects) *PresenceRecorder {
	return &PresenceRecorder{profiles: profiles, mirror: mirror, effects: effects}
}

func (p *PresenceRecorder) SessionOnline(principalID string, c Conn, at time.Time) {
	p.record(principalID, c.ID(), true, at)
}

func (p *PresenceRecorder) SessionOffline(principalID string, c Conn, at time.Time) {
	p.record(principalID, c.ID(), false, at)
}

// Touch refreshes last_active for an already online principal.
func (p *PresenceRecorder) Touch(principalID string, c Conn, at time.Time) {
	p.record(principalID, c.ID(), true, at)
}

// record queues writes per principal so an offline never lands before the
// online it follows.
func (p *PresenceRecorder) record(principalID, socketID string, online bool, at time.Time) {
	if p.profiles != nil {
		p.effects.GoOrdered("profile:"+principalID, "profile.presence", func(ctx context.Context) error {
			return errors.Wrapf(p.profiles.SetPresence(ctx, principalID, socketID, online, at),
				"user=%s online=%v", principalID, online)
		})
	}
	if p.mirror == nil {
		return
	}
	if online {
		p.effects.GoOrdered("mirror:"+principalID, "mirror.online", func(ctx context.Context) error {
			return p.mirror.PresenceOnline(ctx, principalID, socketID, at)
		})
		return
	}
	p.effects.GoOrdered("mirror:"+principalID, "mirror.offline", func(ctx context.Context) error {
		_, err := p.mirror.PresenceOffline(ctx, principalID, socketID)
		return err
	})
}
