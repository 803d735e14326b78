// Package handlers implements the inbound socket events. Every Handle runs on
// the hub loop; blocking work goes through Hub.Go and posts back with Submit.
package handlers

import "PPLink/service/chat"

// All returns one handler per inbound event.
func All() []chat.Handler {
	return []chat.Handler{
		&OnlineHandler{},
		&JoinHandler{},
		&LeaveHandler{},
		&TypingHandler{},
		&StopTypingHandler{},
		&SendMessageHandler{},
		&MessageReadHandler{},
		&UnreadHandler{},
	}
}

// Register installs All on d.
func Register(d *chat.Dispatcher) {
	d.Register(All()...)
}
