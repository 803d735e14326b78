package service

import (
	"context"
	"strings"
	"time"

	connmodel "PPLink/module/connection/model"
	msgmodel "PPLink/module/message/model"
	"PPLink/service/chat"
	"PPLink/tools"
	"PPLink/tools/errs"
	"PPLink/tools/ids"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
	maxReadBatch    = 500

	NotifyNewMessage = "message.new"
)

type Store interface {
	Insert(ctx context.Context, m *msgmodel.Message) error
	List(ctx context.Context, connectionID string, limit int64, before time.Time) ([]*msgmodel.Message, error)
	MarkRead(ctx context.Context, connectionID, readerID string, messageIDs []string, at time.Time) (int64, error)
}

// Connections resolves an accepted connection the caller takes part in.
type Connections interface {
	Accepted(ctx context.Context, userID, connectionID string) (*connmodel.Connection, error)
}

// Realtime is the slice of the hub this service pushes through.
type Realtime interface {
	RelayRoom(roomID, event string, payload any)
	Notify(principalID, event string, payload any)
	ActiveRoomOf(ctx context.Context, principalID string) (string, error)
}

type Service struct {
	store  Store
	conns  Connections
	rt     Realtime
	unread *chat.UnreadCounter
	now    func() time.Time
}

func NewService(store Store, conns Connections, rt Realtime, unread *chat.UnreadCounter) *Service {
	return &Service{store: store, conns: conns, rt: rt, unread: unread, now: time.Now}
}

type ListReq struct {
	Limit  int64     `form:"limit"`
	Before time.Time `form:"before" time_format:"2006-01-02T15:04:05Z07:00"`
}

func (s *Service) List(ctx context.Context, userID, connectionID string, req ListReq) ([]*msgmodel.Message, error) {
	if _, err := s.conns.Accepted(ctx, userID, connectionID); err != nil {
		return nil, err
	}
	limit := tools.ClampInt64(req.Limit, defaultPageSize, 1, maxPageSize)
	return s.store.List(ctx, connectionID, limit, req.Before)
}

type PostReq struct {
	Text string `json:"text"`
}

// Post persists a message, relays new-message to the room and, when the recipient is
// not looking at this conversation, pushes a notification with a preview.
func (s *Service) Post(ctx context.Context, userID, connectionID string, req PostReq) (*msgmodel.Message, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, errs.ErrArgs.WrapMsg("text is required")
	}
	if len([]rune(text)) > msgmodel.MaxTextLen {
		return nil, errs.ErrArgs.WrapMsg("text too long")
	}
	conn, err := s.conns.Accepted(ctx, userID, connectionID)
	if err != nil {
		return nil, err
	}

	m := &msgmodel.Message{
		MessageID:    ids.GenerateString(),
		ConnectionID: connectionID,
		SenderID:     userID,
		RecipientID:  conn.Peer(userID),
		Text:         text,
		CreateTime:   s.now(),
	}
	if err := s.store.Insert(ctx, m); err != nil {
		return nil, err
	}

	s.rt.RelayRoom(connectionID, chat.EventNewMessage, chat.NewMessagePayload{
		ConnectionID: connectionID,
		SenderID:     userID,
		Message:      m.Payload(),
	})
	if room, err := s.rt.ActiveRoomOf(ctx, m.RecipientID); err == nil && room != connectionID {
		s.rt.Notify(m.RecipientID, chat.EventNotification, chat.NotificationPayload{
			Type: NotifyNewMessage,
			Data: map[string]any{
				"connectionId": connectionID,
				"messageId":    m.MessageID,
				"senderId":     userID,
				"preview":      tools.TrimPreview(text),
			},
		})
	}
	return m, nil
}

type ReadReq struct {
	MessageIDs []string `json:"messageIds"`
}

type ReadResult struct {
	Updated int64     `json:"updated"`
	ReadAt  time.Time `json:"readAt"`
}

// Read marks messages addressed to the caller as read and relays message-read to the room.
func (s *Service) Read(ctx context.Context, userID, connectionID string, req ReadReq) (ReadResult, error) {
	if len(req.MessageIDs) == 0 || len(req.MessageIDs) > maxReadBatch {
		return ReadResult{}, errs.ErrArgs.WrapMsg("messageIds must hold 1..500 ids")
	}
	if _, err := s.conns.Accepted(ctx, userID, connectionID); err != nil {
		return ReadResult{}, err
	}
	at := s.now()
	n, err := s.store.MarkRead(ctx, connectionID, userID, req.MessageIDs, at)
	if err != nil {
		return ReadResult{}, err
	}
	if n > 0 {
		s.rt.RelayRoom(connectionID, chat.EventMessageRead, chat.MessageReadPayload{
			ConnectionID: connectionID,
			ReaderID:     userID,
			MessageIDs:   req.MessageIDs,
			ReadAt:       at,
		})
	}
	return ReadResult{Updated: n, ReadAt: at}, nil
}

func (s *Service) Unread(ctx context.Context, userID string) (chat.UnreadSummary, error) {
	if !s.unread.Enabled() {
		return chat.UnreadSummary{}, errs.ErrUnavailable.WrapMsg("unread counter not configured")
	}
	return s.unread.Summary(ctx, userID)
}
