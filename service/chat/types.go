package chat

import (
	"context"
	"time"
)

// Principal is the authenticated identity behind one socket.
type Principal struct {
	ID   string
	Name string
}

// Conn is a transport connection handle. Send must be safe to call from any goroutine
// and must not block; it only enqueues.
type Conn interface {
	ID() string
	Principal() Principal
	Send(frame []byte) error
	Close(code int, reason string) error
}

type Handler interface {
	Event() string
	Handle(*Context, Event) error
}

// Context is what a handler sees. Handlers run on the hub loop, so they may touch
// Registry/Rooms directly but must push blocking work through Hub.Go.
type Context struct {
	Hub  *Hub
	Conn Conn
}

func (c *Context) Principal() Principal { return c.Conn.Principal() }

// SessionObserver is told about registry transitions. Calls happen on the hub loop.
type SessionObserver interface {
	SessionOnline(principalID string, c Conn, at time.Time)
	SessionOffline(principalID string, c Conn, at time.Time)
}

// Bus carries presence events between processes.
type Bus interface {
	Publish(ctx context.Context, data []byte) error
	Subscribe(fn func(data []byte)) (unsubscribe func(), err error)
}

// ProfileStore persists the last known socket against the user's profile.
type ProfileStore interface {
	SetPresence(ctx context.Context, userID, socketID string, online bool, at time.Time) error
}

// PresenceMirror is the cross-process presence cache (Redis).
type PresenceMirror interface {
	PresenceOnline(ctx context.Context, user, socketID string, at time.Time) error
	PresenceOffline(ctx context.Context, user, socketID string) (bool, error)
}

// UnreadSource counts unread messages addressed to userID, keyed by conversation id.
type UnreadSource interface {
	CountUnread(ctx context.Context, userID string) (map[string]int64, error)
}

// RoomGuard decides whether a principal may join a conversation room.
type RoomGuard interface {
	CanJoin(ctx context.Context, principalID, roomID string) (bool, error)
}

// RoomGuardFunc lets a plain function act as a RoomGuard.
type RoomGuardFunc func(ctx context.Context, principalID, roomID string) (bool, error)

func (f RoomGuardFunc) CanJoin(ctx context.Context, principalID, roomID string) (bool, error) {
	return f(ctx, principalID, roomID)
}

// ReadMarker persists read receipts sent over the socket.
type ReadMarker interface {
	MarkRead(ctx context.Context, connectionID, readerID string, messageIDs []string, at time.Time) (int64, error)
}
