package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"PPLink/logger"
	matchmodel "PPLink/module/match/model"
	usermodel "PPLink/module/user/model"
	"PPLink/service/chat"
	"PPLink/service/llm"
	"PPLink/tools"
	"PPLink/tools/errs"

	"go.uber.org/zap"
)

const (
	defaultLimit   = 10
	maxLimit       = 50
	candidatePool  = 200
	llmRankTop     = 20
	NotifyMatches  = "match.suggestions"
	rankSystemText = "You rank professional networking matches. Reply with a JSON array only, " +
		`each item {"userId": string, "reason": string}, best match first, reasons under 20 words.`
)

type Users interface {
	FindByID(ctx context.Context, userID string) (*usermodel.User, error)
	ListCandidates(ctx context.Context, exclude []string, limit int64) ([]*usermodel.User, error)
}

// Peers lists users the caller already has a pending or accepted connection with.
type Peers interface {
	ConnectedPeers(ctx context.Context, userID string) ([]string, error)
}

type Realtime interface {
	Notify(principalID, event string, payload any)
	OnlineSet(ctx context.Context, ids []string) (map[string]bool, error)
}

type Service struct {
	users Users
	peers Peers
	rt    Realtime
	llm   llm.Completer // nil: heuristic only
}

func NewService(users Users, peers Peers, rt Realtime, completer llm.Completer) *Service {
	return &Service{users: users, peers: peers, rt: rt, llm: completer}
}

type Result struct {
	Suggestions []matchmodel.Suggestion `json:"suggestions"`
	RankedBy    string                  `json:"rankedBy"` // heuristic | llm
}

func (s *Service) Suggest(ctx context.Context, userID string, limit int64) (Result, error) {
	me, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	peers, err := s.peers.ConnectedPeers(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	cands, err := s.users.ListCandidates(ctx, append(peers, userID), candidatePool)
	if err != nil {
		return Result{}, err
	}

	list := make([]matchmodel.Suggestion, 0, len(cands))
	for _, c := range cands {
		list = append(list, matchmodel.Score(me, c))
	}
	matchmodel.Rank(list)

	res := Result{RankedBy: "heuristic"}
	if s.llm != nil && len(list) > 1 {
		top := list
		if len(top) > llmRankTop {
			top = top[:llmRankTop]
		}
		ranked, err := s.rankWithLLM(ctx, me, top)
		if err != nil {
			logger.Warn("llm ranking failed, using heuristic", zap.String("userID", userID), zap.Error(err))
		} else {
			list = append(ranked, list[len(top):]...)
			res.RankedBy = "llm"
		}
	}

	n := tools.ClampInt64(limit, defaultLimit, 1, maxLimit)
	if int64(len(list)) > n {
		list = list[:n]
	}
	s.markOnline(ctx, list)
	res.Suggestions = list

	if s.rt != nil && len(list) > 0 {
		s.rt.Notify(userID, chat.EventNotification, chat.NotificationPayload{
			Type: NotifyMatches,
			Data: map[string]any{"count": len(list), "rankedBy": res.RankedBy},
		})
	}
	return res, nil
}

func (s *Service) markOnline(ctx context.Context, list []matchmodel.Suggestion) {
	if s.rt == nil || len(list) == 0 {
		return
	}
	idList := make([]string, len(list))
	for i, sg := range list {
		idList[i] = sg.User.UserID
	}
	online, err := s.rt.OnlineSet(ctx, idList)
	if err != nil {
		return
	}
	for i := range list {
		list[i].User.Online = online[list[i].User.UserID]
	}
}

type llmRank struct {
	UserID string `json:"userId"`
	Reason string `json:"reason"`
}

// rankWithLLM reorders top by the model's answer. Ids the model drops keep their
// heuristic order after the ranked ones; unknown ids are ignored.
func (s *Service) rankWithLLM(ctx context.Context, me *usermodel.User, top []matchmodel.Suggestion) ([]matchmodel.Suggestion, error) {
	reply, err := s.llm.Complete(ctx, rankSystemText, []llm.Message{{Role: llm.RoleUser, Content: rankPrompt(me, top)}})
	if err != nil {
		return nil, err
	}
	ranks, err := parseRanks(reply)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]int, len(top))
	for i, sg := range top {
		byID[sg.User.UserID] = i
	}
	used := make([]bool, len(top))
	out := make([]matchmodel.Suggestion, 0, len(top))
	for _, r := range ranks {
		i, ok := byID[r.UserID]
		if !ok || used[i] {
			continue
		}
		used[i] = true
		sg := top[i]
		sg.Reason = strings.TrimSpace(r.Reason)
		out = append(out, sg)
	}
	if len(out) == 0 {
		return nil, errs.New("llm ranking matched no candidates")
	}
	for i, sg := range top {
		if !used[i] {
			out = append(out, sg)
		}
	}
	return out, nil
}

func rankPrompt(me *usermodel.User, top []matchmodel.Suggestion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Me: %s\n\nCandidates:\n", describe(me.Public()))
	for _, sg := range top {
		fmt.Fprintf(&b, "- userId=%s %s\n", sg.User.UserID, describe(sg.User))
	}
	return b.String()
}

func describe(p usermodel.PublicProfile) string {
	return fmt.Sprintf("name=%q headline=%q location=%q skills=%v interests=%v",
		p.Name, p.Headline, p.Location, p.Skills, p.Interests)
}

// parseRanks accepts the bare array or one wrapped in prose / a code fence.
func parseRanks(reply string) ([]llmRank, error) {
	start, end := strings.Index(reply, "["), strings.LastIndex(reply, "]")
	if start < 0 || end <= start {
		return nil, errs.New("llm reply has no json array", "reply", tools.TrimPreview(reply))
	}
	var out []llmRank
	if err := json.Unmarshal([]byte(reply[start:end+1]), &out); err != nil {
		return nil, errs.WrapMsg(err, "decode llm ranking")
	}
	return out, nil
}
