package handlers

import (
	"context"

	"PPLink/service/chat"

	"github.com/pkg/errors"
)

var errJoinDenied = errors.New("join denied")

type JoinHandler struct{}

func (h *JoinHandler) Event() string { return chat.EventJoinConnection }

func (h *JoinHandler) Handle(ctx *chat.Context, ev chat.Event) error {
	e := ev.(chat.JoinConnectionEvent)
	hub, conn := ctx.Hub, ctx.Conn

	guard := hub.Guard()
	if guard == nil {
		hub.Rooms().Join(conn, e.ConnectionID)
		return nil
	}

	// the join stays pending until the guard answers; a leave in between cancels it
	principalID := ctx.Principal().ID
	ticket := hub.Rooms().BeginJoin(conn, e.ConnectionID)
	hub.Go("room.guard", func(c context.Context) error {
		ok, err := guard.CanJoin(c, principalID, e.ConnectionID)
		hub.Submit(func() {
			if !hub.Connected(conn) {
				return
			}
			switch {
			case err != nil:
				hub.Rooms().AbortJoin(conn, e.ConnectionID, ticket)
				hub.ReplyError(conn, e.EventName(), &chat.ProtocolError{
					Code: chat.CodeUnavailable, Event: e.EventName(), Message: "could not verify connection"})
			case !ok:
				hub.Rooms().AbortJoin(conn, e.ConnectionID, ticket)
				hub.ReplyError(conn, e.EventName(), &chat.ProtocolError{
					Code: chat.CodeForbidden, Event: e.EventName(), Message: "not a participant of this connection"})
			default:
				hub.Rooms().CommitJoin(conn, e.ConnectionID, ticket)
			}
		})
		if err == nil && !ok {
			return errors.Wrapf(errJoinDenied, "user=%s room=%s", principalID, e.ConnectionID)
		}
		return err
	})
	return nil
}

type LeaveHandler struct{}

func (h *LeaveHandler) Event() string { return chat.EventLeaveConnection }

func (h *LeaveHandler) Handle(ctx *chat.Context, ev chat.Event) error {
	e := ev.(chat.LeaveConnectionEvent)
	ctx.Hub.Rooms().Leave(ctx.Conn, e.ConnectionID)
	return nil
}
