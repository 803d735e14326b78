package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	usermodel "PPLink/module/user/model"
	"PPLink/tools/errs"
	"PPLink/tools/ids"
	jwtlib "PPLink/tools/security"

	"go.mongodb.org/mongo-driver/bson"
)

const maxNameLen = 80

type Store interface {
	Create(ctx context.Context, u *usermodel.User) error
	FindByID(ctx context.Context, userID string) (*usermodel.User, error)
	FindByEmail(ctx context.Context, email string) (*usermodel.User, error)
	UpdateProfile(ctx context.Context, userID string, set bson.M, at time.Time) (*usermodel.User, error)
}

// Presence is the slice of the realtime hub the account API needs.
type Presence interface {
	IsOnline(ctx context.Context, userID string) (bool, error)
	AnnounceProfileUpdate(userID string, fields map[string]any)
}

// ClusterLookup answers for users connected to another node (Redis presence mirror).
type ClusterLookup interface {
	IsOnlineAnywhere(ctx context.Context, userID string) (bool, error)
}

type Service struct {
	store    Store
	presence Presence
	cluster  ClusterLookup
	jwt      jwtlib.Options
	now      func() time.Time
}

func NewService(store Store, presence Presence, jwt jwtlib.Options) *Service {
	return &Service{store: store, presence: presence, jwt: jwt, now: time.Now}
}

func (s *Service) WithCluster(c ClusterLookup) *Service {
	s.cluster = c
	return s
}

// RegisterReq 注册入参
type RegisterReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResult struct {
	Token    string          `json:"token"`
	ExpireAt time.Time       `json:"expireAt"`
	User     *usermodel.User `json:"user"`
}

func normalizeEmail(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", errs.ErrArgs.WrapMsg("invalid email", "email", s)
	}
	return s, nil
}

func (s *Service) Register(ctx context.Context, req RegisterReq) (*AuthResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > maxNameLen {
		return nil, errs.ErrArgs.WrapMsg("name must be 1-80 characters")
	}
	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return nil, errs.ErrRecordIsExist.WrapMsg("email already registered", "email", email)
	} else if !errs.ErrRecordNotFound.Is(err) {
		return nil, err
	}
	hash, err := jwtlib.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	u := &usermodel.User{
		UserID:       ids.GenerateString(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		LastActive:   now,
		CreateTime:   now,
		UpdateTime:   now,
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	return s.issue(u)
}

func (s *Service) Login(ctx context.Context, req LoginReq) (*AuthResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	u, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errs.ErrRecordNotFound.Is(err) {
			// 不暴露账号是否存在
			return nil, errs.ErrPassword.WrapMsg("invalid email or password")
		}
		return nil, err
	}
	if err := jwtlib.CheckPassword(u.PasswordHash, req.Password); err != nil {
		return nil, errs.ErrPassword.WrapMsg("invalid email or password")
	}
	return s.issue(u)
}

func (s *Service) issue(u *usermodel.User) (*AuthResult, error) {
	token, exp, err := jwtlib.Generate(s.jwt, u.UserID, u.Name)
	if err != nil {
		return nil, errs.WrapMsg(err, "issue token", "user", u.UserID)
	}
	return &AuthResult{Token: token, ExpireAt: exp, User: u}, nil
}

func (s *Service) Me(ctx context.Context, userID string) (*usermodel.User, error) {
	return s.store.FindByID(ctx, userID)
}

// UpdateProfile saves the changed fields and announces them to other online users.
func (s *Service) UpdateProfile(ctx context.Context, userID string, p usermodel.ProfileUpdate) (*usermodel.User, error) {
	if p.Empty() {
		return nil, errs.ErrArgs.WrapMsg("nothing to update")
	}
	cur, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.Apply(cur)
	if cur.Name == "" || len(cur.Name) > maxNameLen {
		return nil, errs.ErrArgs.WrapMsg("name must be 1-80 characters")
	}

	updated, err := s.store.UpdateProfile(ctx, userID, p.SetDoc(cur), s.now())
	if err != nil {
		return nil, err
	}
	if s.presence != nil {
		s.presence.AnnounceProfileUpdate(userID, p.PublicFields(updated))
	}
	return updated, nil
}

// Profile is the public view of another user, with live presence from the hub.
func (s *Service) Profile(ctx context.Context, userID string) (*usermodel.PublicProfile, error) {
	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := u.Public()
	if s.presence != nil {
		if online, err := s.presence.IsOnline(ctx, userID); err == nil {
			view.Online = online
		}
	}
	if !view.Online && s.cluster != nil {
		if online, err := s.cluster.IsOnlineAnywhere(ctx, userID); err == nil {
			view.Online = online
		}
	}
	return &view, nil
}
