package handlers

import (
	"context"

	"PPLink/service/chat"

	"github.com/pkg/errors"
)

type TypingHandler struct{}

func (h *TypingHandler) Event() string { return chat.EventTyping }

func (h *TypingHandler) Handle(ctx *chat.Context, ev chat.Event) error {
	e := ev.(chat.TypingEvent)
	return relayTyping(ctx, e.EventName(), chat.EventUserTyping, e.ConnectionID)
}

type StopTypingHandler struct{}

func (h *StopTypingHandler) Event() string { return chat.EventStopTyping }

func (h *StopTypingHandler) Handle(ctx *chat.Context, ev chat.Event) error {
	e := ev.(chat.StopTypingEvent)
	return relayTyping(ctx, e.EventName(), chat.EventUserStoppedTyping, e.ConnectionID)
}

// requireMember refuses room events from a connection that has not joined the room.
func requireMember(ctx *chat.Context, event, room string) bool {
	if ctx.Hub.Rooms().IsMember(ctx.Conn, room) {
		return true
	}
	ctx.Hub.ReplyError(ctx.Conn, event, &chat.ProtocolError{
		Code: chat.CodeForbidden, Event: event, Message: "join the connection first"})
	return false
}

func relayTyping(ctx *chat.Context, inbound, event, room string) error {
	if !requireMember(ctx, inbound, room) {
		return nil
	}
	p := ctx.Principal()
	ctx.Hub.Rooms().Relay(room, event, chat.TypingPayload{
		ConnectionID: room,
		UserID:       p.ID,
		UserName:     p.Name,
	}, ctx.Conn)
	return nil
}

// SendMessageHandler relays to the whole room, sender included, so the sender's
// other devices stay in sync. Persistence happens over REST before the emit.
type SendMessageHandler struct{}

func (h *SendMessageHandler) Event() string { return chat.EventSendMessage }

func (h *SendMessageHandler) Handle(ctx *chat.Context, ev chat.Event) error {
	e := ev.(chat.SendMessageEvent)
	if !requireMember(ctx, e.EventName(), e.ConnectionID) {
		return nil
	}
	ctx.Hub.Rooms().Relay(e.ConnectionID, chat.EventNewMessage, chat.NewMessagePayload{
		ConnectionID: e.ConnectionID,
		SenderID:     ctx.Principal().ID,
		Message:      e.Message,
	}, nil)
	return nil
}

// MessageReadHandler relays the receipt to the other room members and, when a
// ReadMarker is configured, records it best effort.
type MessageReadHandler struct{}

func (h *MessageReadHandler) Event() string { return chat.EventMessageRead }

func (h *MessageReadHandler) Handle(ctx *chat.Context, ev chat.Event) error {
	e := ev.(chat.MessageReadEvent)
	if !requireMember(ctx, e.EventName(), e.ConnectionID) {
		return nil
	}
	hub := ctx.Hub
	reader := ctx.Principal().ID
	at := hub.Now()

	hub.Rooms().Relay(e.ConnectionID, chat.EventMessageRead, chat.MessageReadPayload{
		ConnectionID: e.ConnectionID,
		ReaderID:     reader,
		MessageIDs:   e.MessageIDs,
		ReadAt:       at,
	}, ctx.Conn)

	if marker := hub.Reads(); marker != nil {
		hub.Go("messages.mark-read", func(c context.Context) error {
			_, err := marker.MarkRead(c, e.ConnectionID, reader, e.MessageIDs, at)
			return errors.Wrapf(err, "room=%s reader=%s", e.ConnectionID, reader)
		})
	}
	return nil
}
