package chat

import (
	"context"
	"sync"
	"time"

	"PPLink/logger"
	"PPLink/tools/errs"
	"PPLink/tools/safe"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var ErrHubStopped = errors.New("hub stopped")

// Protocol error code for failures that are not the client's fault.
const CodeInternal = "internal"

type HubOptions struct {
	NodeID        string
	InboxSize     int
	EffectTimeout time.Duration

	Profiles ProfileStore
	Mirror   PresenceMirror
	Bus      Bus
	Unread   UnreadSource
	Guard    RoomGuard
	Reads    ReadMarker

	Dispatcher *Dispatcher
}

type Stats struct {
	Online      int       `json:"online"`
	Connections int       `json:"connections"`
	Rooms       RoomStats `json:"rooms"`
}

// Hub owns all realtime state. Every mutation runs on the goroutine started by Run,
// in submission order; nothing else reads or writes the registry or rooms.
type Hub struct {
	inbox    chan func()
	done     chan struct{}
	doneOnce sync.Once

	conns    map[string]Conn
	registry *Registry
	rooms    *Rooms
	presence *Presence
	recorder *PresenceRecorder
	unread   *UnreadCounter
	effects  *Effects
	disp     *Dispatcher
	guard    RoomGuard
	reads    ReadMarker
	bus      Bus
	now      func() time.Time
}

func NewHub(opts HubOptions) *Hub {
	if opts.InboxSize <= 0 {
		opts.InboxSize = 1024
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = NewDispatcher()
	}
	effects := NewEffects(opts.EffectTimeout)
	registry := NewRegistry()
	presence := NewPresence(registry, opts.Bus, opts.NodeID, effects)
	recorder := NewPresenceRecorder(opts.Profiles, opts.Mirror, effects)
	registry.Observe(presence)
	registry.Observe(recorder)

	return &Hub{
		inbox:    make(chan func(), opts.InboxSize),
		done:     make(chan struct{}),
		conns:    make(map[string]Conn),
		registry: registry,
		rooms:    NewRooms(),
		presence: presence,
		recorder: recorder,
		unread:   NewUnreadCounter(opts.Unread),
		effects:  effects,
		disp:     opts.Dispatcher,
		guard:    opts.Guard,
		reads:    opts.Reads,
		bus:      opts.Bus,
		now:      time.Now,
	}
}

// Run processes the inbox until ctx is cancelled, then closes every connection.
func (h *Hub) Run(ctx context.Context) error {
	if h.bus != nil {
		unsub, err := h.bus.Subscribe(func(data []byte) {
			h.Submit(func() { h.presence.HandleRemote(data) })
		})
		if err != nil {
			logger.Warn("presence bus subscribe failed, running node-local", zap.Error(err))
		} else {
			defer unsub()
		}
	}

	logger.Info("hub started")
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return nil
		case fn := <-h.inbox:
			h.exec(fn)
		}
	}
}

func (h *Hub) exec(fn func()) {
	defer safe.Recover("hub")
	fn()
}

func (h *Hub) shutdown() {
	h.doneOnce.Do(func() { close(h.done) })
	for _, c := range h.conns {
		_ = c.Close(websocket.CloseGoingAway, "server shutting down")
	}
	logger.Info("hub stopped", zap.Int("connections", len(h.conns)))
	h.effects.Wait()
}

// Submit queues fn for the loop. Returns false once the hub has stopped.
func (h *Hub) Submit(fn func()) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.inbox <- fn:
		return true
	case <-h.done:
		return false
	}
}

// Call runs fn on the loop and waits for it to finish.
func (h *Hub) Call(ctx context.Context, fn func()) error {
	fin := make(chan struct{})
	if !h.Submit(func() {
		defer close(fin)
		fn()
	}) {
		return ErrHubStopped
	}
	select {
	case <-fin:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubStopped
	}
}

// ===== transport entry points (any goroutine) =====

func (h *Hub) Connect(c Conn) bool {
	return h.Submit(func() {
		h.conns[c.ID()] = c
		h.registry.Register(c.Principal().ID, c)
		logger.Debug("conn attached", zap.String("conn", c.ID()), zap.String("user", c.Principal().ID))
	})
}

func (h *Hub) Disconnect(c Conn) bool {
	return h.Submit(func() { h.detach(c) })
}

func (h *Hub) detach(c Conn) {
	if _, ok := h.conns[c.ID()]; !ok {
		return
	}
	delete(h.conns, c.ID())
	left := h.rooms.LeaveAll(c)
	if h.registry.UnregisterConn(c) {
		h.rooms.ClearActive(c.Principal().ID)
	}
	logger.Debug("conn detached", zap.String("conn", c.ID()), zap.String("user", c.Principal().ID), zap.Int("rooms", left))
}

func (h *Hub) Dispatch(c Conn, ev Event) bool {
	return h.Submit(func() {
		if !h.Connected(c) {
			return
		}
		if err := h.disp.Dispatch(&Context{Hub: h, Conn: c}, ev); err != nil {
			h.ReplyError(c, ev.EventName(), err)
		}
	})
}

// ===== service entry points (any goroutine) =====

// Notify pushes one event to a principal if online. Fire and forget.
func (h *Hub) Notify(principalID, event string, payload any) {
	h.Submit(func() { h.registry.Send(principalID, event, payload) })
}

// Send is Notify with the delivery result.
func (h *Hub) Send(ctx context.Context, principalID, event string, payload any) (bool, error) {
	var ok bool
	err := h.Call(ctx, func() { ok = h.registry.Send(principalID, event, payload) })
	return ok, err
}

// RelayRoom relays to every member of roomID, used for HTTP-originated events.
func (h *Hub) RelayRoom(roomID, event string, payload any) {
	h.Submit(func() { h.rooms.Relay(roomID, event, payload, nil) })
}

func (h *Hub) AnnounceProfileUpdate(principalID string, fields map[string]any) {
	h.Submit(func() { h.presence.AnnounceProfileUpdate(principalID, fields) })
}

func (h *Hub) IsOnline(ctx context.Context, principalID string) (bool, error) {
	var ok bool
	err := h.Call(ctx, func() { ok = h.registry.IsOnline(principalID) })
	return ok, err
}

func (h *Hub) OnlineSet(ctx context.Context, ids []string) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))
	err := h.Call(ctx, func() {
		for _, id := range ids {
			out[id] = h.registry.IsOnline(id)
		}
	})
	return out, err
}

func (h *Hub) ActiveRoomOf(ctx context.Context, principalID string) (string, error) {
	var room string
	err := h.Call(ctx, func() { room, _ = h.rooms.ActiveRoom(principalID) })
	return room, err
}

func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := h.Call(ctx, func() {
		s = Stats{Online: h.registry.Len(), Connections: len(h.conns), Rooms: h.rooms.Stats()}
	})
	return s, err
}

// ===== loop-side helpers for handlers =====

func (h *Hub) Registry() *Registry         { return h.registry }
func (h *Hub) Rooms() *Rooms               { return h.rooms }
func (h *Hub) Presence() *Presence         { return h.presence }
func (h *Hub) Recorder() *PresenceRecorder { return h.recorder }
func (h *Hub) Unread() *UnreadCounter      { return h.unread }
func (h *Hub) Guard() RoomGuard            { return h.guard }
func (h *Hub) Reads() ReadMarker           { return h.reads }
func (h *Hub) Effects() *Effects           { return h.effects }
func (h *Hub) Now() time.Time              { return h.now() }
func (h *Hub) Dispatcher() *Dispatcher     { return h.disp }

func (h *Hub) Connected(c Conn) bool {
	cur, ok := h.conns[c.ID()]
	return ok && cur == c
}

// Go runs blocking work off the loop. See Effects.Go.
func (h *Hub) Go(op string, fn func(ctx context.Context) error) <-chan BestEffort {
	return h.effects.Go(op, fn)
}

// ReplyError sends an "error" event to c. Only loop code and transport code call it.
func (h *Hub) ReplyError(c Conn, event string, err error) {
	payload := toProtocolError(event, err)
	frame, encErr := Encode(EventError, payload)
	if encErr != nil {
		return
	}
	if sendErr := c.Send(frame); sendErr != nil {
		logger.Debug("reply error dropped", zap.String("conn", c.ID()), zap.Error(sendErr))
	}
}

func toProtocolError(event string, err error) *ProtocolError {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe
	}
	if ce, ok := errs.As(err); ok {
		code := CodeInternal
		switch ce.Code {
		case errs.ArgsError, errs.ProtocolEventError:
			code = CodeBadPayload
		case errs.NoPermissionError, errs.RelationshipError:
			code = CodeForbidden
		case errs.ServiceUnavailable:
			code = CodeUnavailable
		}
		return protoErr(code, event, ce.Msg)
	}
	logger.Error("handler failed", zap.String("event", event), zap.Error(err))
	return protoErr(CodeInternal, event, "internal error")
}
