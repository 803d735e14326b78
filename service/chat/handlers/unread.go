package handlers

import (
	"context"

	"PPLink/service/chat"
)

// UnreadHandler computes the caller's unread summary off the loop and replies to the caller only.
type UnreadHandler struct{}

func (h *UnreadHandler) Event() string { return chat.EventGetUnreadCounts }

func (h *UnreadHandler) Handle(ctx *chat.Context, ev chat.Event) error {
	hub, conn := ctx.Hub, ctx.Conn
	counter := hub.Unread()
	if !counter.Enabled() {
		return &chat.ProtocolError{Code: chat.CodeUnavailable, Event: ev.EventName(), Message: "unread counts unavailable"}
	}

	principalID := ctx.Principal().ID
	hub.Go("unread.summary", func(c context.Context) error {
		summary, err := counter.Summary(c, principalID)
		hub.Submit(func() {
			if !hub.Connected(conn) {
				return
			}
			if err != nil {
				hub.ReplyError(conn, ev.EventName(), &chat.ProtocolError{
					Code: chat.CodeUnavailable, Event: ev.EventName(), Message: "unread counts unavailable"})
				return
			}
			frame, encErr := chat.Encode(chat.EventUnreadCounts, summary)
			if encErr == nil {
				_ = conn.Send(frame)
			}
		})
		return err
	})
	return nil
}
