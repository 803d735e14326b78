package service

import (
	"context"
	"fmt"
	"strings"

	usermodel "PPLink/module/user/model"
	"PPLink/service/llm"
	"PPLink/tools/errs"
)

const (
	maxHistory    = 20
	maxMessageLen = 4000
)

type Users interface {
	FindByID(ctx context.Context, userID string) (*usermodel.User, error)
}

type Service struct {
	users Users
	llm   llm.Completer
}

// NewService: a nil completer makes every Chat call answer ErrUnavailable.
func NewService(users Users, completer llm.Completer) *Service {
	return &Service{users: users, llm: completer}
}

type ChatReq struct {
	Message string        `json:"message"`
	History []llm.Message `json:"history"`
}

type ChatResp struct {
	Reply string `json:"reply"`
}

func (s *Service) Chat(ctx context.Context, userID string, req ChatReq) (ChatResp, error) {
	if s.llm == nil {
		return ChatResp{}, errs.ErrUnavailable.WrapMsg("assistant is not configured")
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return ChatResp{}, errs.ErrArgs.WrapMsg("message is required")
	}
	if len([]rune(msg)) > maxMessageLen {
		return ChatResp{}, errs.ErrArgs.WrapMsg("message too long")
	}
	me, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return ChatResp{}, err
	}

	history := sanitizeHistory(req.History)
	history = append(history, llm.Message{Role: llm.RoleUser, Content: msg})
	reply, err := s.llm.Complete(ctx, systemPrompt(me), history)
	if err != nil {
		return ChatResp{}, errs.ErrUnavailable.WrapMsg("assistant failed: " + err.Error())
	}
	return ChatResp{Reply: reply}, nil
}

// sanitizeHistory keeps the last maxHistory user/assistant turns; anything else
// (system turns, empty content) is dropped so clients cannot override the prompt.
func sanitizeHistory(in []llm.Message) []llm.Message {
	out := make([]llm.Message, 0, len(in)+1)
	for _, m := range in {
		c := strings.TrimSpace(m.Content)
		if c == "" || (m.Role != llm.RoleUser && m.Role != llm.RoleAssistant) {
			continue
		}
		out = append(out, llm.Message{Role: m.Role, Content: c})
	}
	if len(out) > maxHistory {
		out = out[len(out)-maxHistory:]
	}
	return out
}

func systemPrompt(u *usermodel.User) string {
	p := u.Public()
	return fmt.Sprintf("You are PPLink's networking assistant. Help the user grow their professional network, "+
		"write connection notes and plan conversations. Be concise.\n"+
		"User profile: name=%q headline=%q location=%q skills=%v interests=%v bio=%q",
		p.Name, p.Headline, p.Location, p.Skills, p.Interests, p.Bio)
}
