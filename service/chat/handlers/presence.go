package handlers

import "PPLink/service/chat"

// OnlineHandler handles an explicit "user:online": re-announce and refresh last_active.
type OnlineHandler struct{}

func (h *OnlineHandler) Event() string { return chat.EventUserOnline }

func (h *OnlineHandler) Handle(ctx *chat.Context, _ chat.Event) error {
	hub := ctx.Hub
	p := ctx.Principal()
	cur, ok := hub.Registry().HandleFor(p.ID)
	if !ok || cur.ID() != ctx.Conn.ID() {
		// A replaced connection does not get to speak for the principal.
		return nil
	}
	hub.Presence().SessionOnline(p.ID, ctx.Conn, hub.Now())
	hub.Recorder().Touch(p.ID, ctx.Conn, hub.Now())
	return nil
}
