package chat

import (
	"encoding/json"
	"strings"
	"time"

	"PPLink/tools/decode"

	"github.com/pkg/errors"
)

// Inbound events (client -> server).
const (
	EventAuth            = "auth"
	EventUserOnline      = "user:online"
	EventJoinConnection  = "join-connection"
	EventLeaveConnection = "leave-connection"
	EventTyping          = "typing"
	EventStopTyping      = "stop-typing"
	EventSendMessage     = "send-message"
	EventMessageRead     = "message-read"
	EventGetUnreadCounts = "get-unread-counts"
)

// Outbound events (server -> client).
const (
	EventUserOffline       = "user:offline"
	EventProfileUpdated    = "user:profile-updated"
	EventUserTyping        = "user-typing"
	EventUserStoppedTyping = "user-stopped-typing"
	EventNewMessage        = "new-message"
	EventUnreadCounts      = "unread-counts"
	EventError             = "error"
	EventNotification      = "notification"
)

const (
	maxRoomIDLen      = 128
	maxReadMessageIDs = 500
)

// Protocol error codes carried in the "error" event.
const (
	CodeBadFrame      = "bad_frame"
	CodeUnknownEvent  = "unknown_event"
	CodeBadPayload    = "bad_payload"
	CodeForbidden     = "forbidden"
	CodeUnavailable   = "unavailable"
	CodeAuthFailed    = "auth_failed"
	CodeAlreadyAuthed = "already_authenticated"
)

// Close code sent when the handshake credential is missing, invalid or expired.
const CloseAuthFailed = 4001

type inFrame struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

type outFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Event is one validated inbound message. The set of implementations is closed.
type Event interface {
	EventName() string
}

type AuthEvent struct {
	Token string `json:"token"`
}

type UserOnlineEvent struct{}

type JoinConnectionEvent struct {
	ConnectionID string `json:"connectionId"`
}

type LeaveConnectionEvent struct {
	ConnectionID string `json:"connectionId"`
}

type TypingEvent struct {
	ConnectionID string `json:"connectionId"`
}

type StopTypingEvent struct {
	ConnectionID string `json:"connectionId"`
}

type SendMessageEvent struct {
	ConnectionID string         `json:"connectionId"`
	Message      map[string]any `json:"message"`
}

type MessageReadEvent struct {
	ConnectionID string   `json:"connectionId"`
	MessageIDs   []string `json:"messageIds"`
}

type GetUnreadCountsEvent struct{}

func (AuthEvent) EventName() string            { return EventAuth }
func (UserOnlineEvent) EventName() string      { return EventUserOnline }
func (JoinConnectionEvent) EventName() string  { return EventJoinConnection }
func (LeaveConnectionEvent) EventName() string { return EventLeaveConnection }
func (TypingEvent) EventName() string          { return EventTyping }
func (StopTypingEvent) EventName() string      { return EventStopTyping }
func (SendMessageEvent) EventName() string     { return EventSendMessage }
func (MessageReadEvent) EventName() string     { return EventMessageRead }
func (GetUnreadCountsEvent) EventName() string { return EventGetUnreadCounts }

// ProtocolError is reported back to the offending connection as an "error" event.
type ProtocolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}

func (e *ProtocolError) Error() string {
	if e.Event == "" {
		return e.Code + ": " + e.Message
	}
	return e.Code + ": " + e.Event + ": " + e.Message
}

func protoErr(code, event, msg string) *ProtocolError {
	return &ProtocolError{Code: code, Event: event, Message: msg}
}

// ParseFrame decodes and validates one inbound frame.
func ParseFrame(raw []byte) (Event, error) {
	var f inFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, protoErr(CodeBadFrame, "", "frame is not a JSON object")
	}
	f.Event = strings.TrimSpace(f.Event)
	if f.Event == "" {
		return nil, protoErr(CodeBadFrame, "", "missing event name")
	}

	switch f.Event {
	case EventAuth:
		ev, err := decodeEvent[AuthEvent](f)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(ev.Token) == "" {
			return nil, protoErr(CodeBadPayload, f.Event, "token is required")
		}
		return *ev, nil
	case EventUserOnline:
		return UserOnlineEvent{}, nil
	case EventGetUnreadCounts:
		return GetUnreadCountsEvent{}, nil
	case EventJoinConnection:
		ev, err := decodeEvent[JoinConnectionEvent](f)
		if err != nil {
			return nil, err
		}
		if err := checkRoomID(f.Event, &ev.ConnectionID); err != nil {
			return nil, err
		}
		return *ev, nil
	case EventLeaveConnection:
		ev, err := decodeEvent[LeaveConnectionEvent](f)
		if err != nil {
			return nil, err
		}
		if err := checkRoomID(f.Event, &ev.ConnectionID); err != nil {
			return nil, err
		}
		return *ev, nil
	case EventTyping:
		ev, err := decodeEvent[TypingEvent](f)
		if err != nil {
			return nil, err
		}
		if err := checkRoomID(f.Event, &ev.ConnectionID); err != nil {
			return nil, err
		}
		return *ev, nil
	case EventStopTyping:
		ev, err := decodeEvent[StopTypingEvent](f)
		if err != nil {
			return nil, err
		}
		if err := checkRoomID(f.Event, &ev.ConnectionID); err != nil {
			return nil, err
		}
		return *ev, nil
	case EventSendMessage:
		ev, err := decodeEvent[SendMessageEvent](f)
		if err != nil {
			return nil, err
		}
		if err := checkRoomID(f.Event, &ev.ConnectionID); err != nil {
			return nil, err
		}
		if len(ev.Message) == 0 {
			return nil, protoErr(CodeBadPayload, f.Event, "message is required")
		}
		return *ev, nil
	case EventMessageRead:
		ev, err := decodeEvent[MessageReadEvent](f)
		if err != nil {
			return nil, err
		}
		if err := checkRoomID(f.Event, &ev.ConnectionID); err != nil {
			return nil, err
		}
		if len(ev.MessageIDs) == 0 {
			return nil, protoErr(CodeBadPayload, f.Event, "messageIds is required")
		}
		if len(ev.MessageIDs) > maxReadMessageIDs {
			return nil, protoErr(CodeBadPayload, f.Event, "too many messageIds")
		}
		for _, id := range ev.MessageIDs {
			if strings.TrimSpace(id) == "" {
				return nil, protoErr(CodeBadPayload, f.Event, "empty message id")
			}
		}
		return *ev, nil
	default:
		return nil, protoErr(CodeUnknownEvent, f.Event, "unknown event")
	}
}

func decodeEvent[T any](f inFrame) (*T, error) {
	ev, err := decode.Map[T](f.Data, decode.Options{WeaklyTypedInput: false})
	if err != nil {
		return nil, protoErr(CodeBadPayload, f.Event, errors.Cause(err).Error())
	}
	return ev, nil
}

// checkRoomID trims *id in place so " r" and "r" name the same room.
func checkRoomID(event string, id *string) error {
	*id = strings.TrimSpace(*id)
	if *id == "" {
		return protoErr(CodeBadPayload, event, "connectionId is required")
	}
	if len(*id) > maxRoomIDLen {
		return protoErr(CodeBadPayload, event, "connectionId too long")
	}
	return nil
}

// Encode builds one outbound frame.
func Encode(event string, payload any) ([]byte, error) {
	b, err := json.Marshal(outFrame{Event: event, Data: payload})
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s", event)
	}
	return b, nil
}

// ===== outbound payloads =====

type PresencePayload struct {
	UserID     string     `json:"userId"`
	LastActive *time.Time `json:"lastActive,omitempty"`
}

type ProfileUpdatePayload struct {
	UserID string         `json:"userId"`
	Fields map[string]any `json:"fields"`
}

type TypingPayload struct {
	ConnectionID string `json:"connectionId"`
	UserID       string `json:"userId"`
	UserName     string `json:"userName,omitempty"`
}

type NewMessagePayload struct {
	ConnectionID string         `json:"connectionId"`
	SenderID     string         `json:"senderId"`
	Message      map[string]any `json:"message"`
}

type MessageReadPayload struct {
	ConnectionID string    `json:"connectionId"`
	ReaderID     string    `json:"readerId"`
	MessageIDs   []string  `json:"messageIds"`
	ReadAt       time.Time `json:"readAt"`
}

type NotificationPayload struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}
