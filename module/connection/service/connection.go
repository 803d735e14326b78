package service

import (
	"context"
	"strings"
	"time"

	connmodel "PPLink/module/connection/model"
	usermodel "PPLink/module/user/model"
	"PPLink/service/chat"
	"PPLink/tools/errs"
	"PPLink/tools/ids"
)

const maxNoteLen = 500

// Notification types pushed with the "notification" socket event.
const (
	NotifyRequest  = "connection.request"
	NotifyAccepted = "connection.accepted"
	NotifyRejected = "connection.rejected"
)

type Store interface {
	Create(ctx context.Context, c *connmodel.Connection) error
	FindByID(ctx context.Context, connectionID string) (*connmodel.Connection, error)
	FindActiveByPair(ctx context.Context, pairKey string) (*connmodel.Connection, error)
	Transition(ctx context.Context, connectionID string, from, to connmodel.Status, at time.Time) (*connmodel.Connection, error)
	ListForUser(ctx context.Context, userID string, status connmodel.Status) ([]*connmodel.Connection, error)
}

type Users interface {
	FindByID(ctx context.Context, userID string) (*usermodel.User, error)
}

// Notifier pushes a server-originated event to one user; offline users are skipped.
type Notifier interface {
	Notify(userID, event string, payload any)
}

type Service struct {
	store    Store
	users    Users
	notifier Notifier
	now      func() time.Time
}

func NewService(store Store, users Users, notifier Notifier) *Service {
	return &Service{store: store, users: users, notifier: notifier, now: time.Now}
}

type CreateReq struct {
	RecipientID string `json:"recipientId"`
	Note        string `json:"note"`
}

func (s *Service) Create(ctx context.Context, requesterID string, req CreateReq) (*connmodel.Connection, error) {
	recipientID := strings.TrimSpace(req.RecipientID)
	note := strings.TrimSpace(req.Note)
	switch {
	case recipientID == "":
		return nil, errs.ErrArgs.WrapMsg("recipientId is required")
	case recipientID == requesterID:
		return nil, errs.ErrArgs.WrapMsg("cannot connect to yourself")
	case len(note) > maxNoteLen:
		return nil, errs.ErrArgs.WrapMsg("note too long")
	}
	if _, err := s.users.FindByID(ctx, recipientID); err != nil {
		return nil, err
	}

	pair := connmodel.PairKey(requesterID, recipientID)
	if existing, err := s.store.FindActiveByPair(ctx, pair); err == nil {
		return nil, errs.ErrRecordIsExist.WrapMsg("connection already exists", "id", existing.ConnectionID, "status", existing.Status)
	} else if !errs.ErrRecordNotFound.Is(err) {
		return nil, err
	}

	now := s.now()
	c := &connmodel.Connection{
		ConnectionID: ids.GenerateString(),
		RequesterID:  requesterID,
		RecipientID:  recipientID,
		PairKey:      pair,
		Status:       connmodel.StatusPending,
		Note:         note,
		CreateTime:   now,
		UpdateTime:   now,
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}
	s.notify(recipientID, NotifyRequest, c)
	return c, nil
}

func (s *Service) Accept(ctx context.Context, userID, connectionID string) (*connmodel.Connection, error) {
	c, err := s.respond(ctx, userID, connectionID, connmodel.StatusAccepted)
	if err != nil {
		return nil, err
	}
	s.notify(c.RequesterID, NotifyAccepted, c)
	return c, nil
}

func (s *Service) Reject(ctx context.Context, userID, connectionID string) (*connmodel.Connection, error) {
	c, err := s.respond(ctx, userID, connectionID, connmodel.StatusRejected)
	if err != nil {
		return nil, err
	}
	s.notify(c.RequesterID, NotifyRejected, c)
	return c, nil
}

// respond: only the recipient may accept or reject, and only while pending.
func (s *Service) respond(ctx context.Context, userID, connectionID string, to connmodel.Status) (*connmodel.Connection, error) {
	c, err := s.store.FindByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if c.RecipientID != userID {
		return nil, errs.ErrNoPermission.WrapMsg("only the recipient can respond", "id", connectionID)
	}
	if c.Status != connmodel.StatusPending {
		return nil, errs.ErrRelationship.WrapMsg("connection is not pending", "status", c.Status)
	}
	return s.store.Transition(ctx, connectionID, connmodel.StatusPending, to, s.now())
}

func (s *Service) List(ctx context.Context, userID string, status connmodel.Status) ([]*connmodel.Connection, error) {
	if status != "" && !status.Valid() {
		return nil, errs.ErrArgs.WrapMsg("unknown status", "status", status)
	}
	return s.store.ListForUser(ctx, userID, status)
}

// Get returns a connection the caller participates in.
func (s *Service) Get(ctx context.Context, userID, connectionID string) (*connmodel.Connection, error) {
	c, err := s.store.FindByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if !c.Involves(userID) {
		return nil, errs.ErrNoPermission.WrapMsg("not a participant", "id", connectionID)
	}
	return c, nil
}

// Accepted returns an accepted connection the caller participates in. Messaging goes through here.
func (s *Service) Accepted(ctx context.Context, userID, connectionID string) (*connmodel.Connection, error) {
	c, err := s.Get(ctx, userID, connectionID)
	if err != nil {
		return nil, err
	}
	if c.Status != connmodel.StatusAccepted {
		return nil, errs.ErrRelationship.WrapMsg("connection is not accepted", "status", c.Status)
	}
	return c, nil
}

// ConnectedPeers lists every user the caller has a pending or accepted connection with.
func (s *Service) ConnectedPeers(ctx context.Context, userID string) ([]string, error) {
	all, err := s.store.ListForUser(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(all))
	for _, c := range all {
		if c.Status == connmodel.StatusRejected {
			continue
		}
		out = append(out, c.Peer(userID))
	}
	return out, nil
}

// CanJoin gates socket room joins: the room must be an accepted connection of the principal.
func (s *Service) CanJoin(ctx context.Context, principalID, roomID string) (bool, error) {
	_, err := s.Accepted(ctx, principalID, roomID)
	switch {
	case err == nil:
		return true, nil
	case errs.ErrRecordNotFound.Is(err), errs.ErrNoPermission.Is(err), errs.ErrRelationship.Is(err):
		return false, nil
	default:
		return false, err
	}
}

func (s *Service) notify(userID, kind string, c *connmodel.Connection) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(userID, chat.EventNotification, chat.NotificationPayload{Type: kind, Data: c})
}
