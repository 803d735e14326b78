package chat

import (
	"context"
	"sort"

	"github.com/pkg/errors"
)

type UnreadCount struct {
	ConnectionID string `json:"connectionId"`
	Count        int64  `json:"count"`
}

type UnreadSummary struct {
	Conversations []UnreadCount `json:"conversations"`
	Total         int64         `json:"total"`
}

// UnreadCounter reads counts straight from the message store on every call.
type UnreadCounter struct {
	src UnreadSource
}

func NewUnreadCounter(src UnreadSource) *UnreadCounter {
	return &UnreadCounter{src: src}
}

func (u *UnreadCounter) Enabled() bool { return u != nil && u.src != nil }

// Summary drops zero counts, orders by count desc then id, and totals the rest.
func (u *UnreadCounter) Summary(ctx context.Context, principalID string) (UnreadSummary, error) {
	out := UnreadSummary{Conversations: []UnreadCount{}}
	if !u.Enabled() {
		return out, errors.New("unread source not configured")
	}
	counts, err := u.src.CountUnread(ctx, principalID)
	if err != nil {
		return out, errors.Wrapf(err, "count unread user=%s", principalID)
	}
	for id, n := range counts {
		if n <= 0 {
			continue
		}
		out.Conversations = append(out.Conversations, UnreadCount{ConnectionID: id, Count: n})
		out.Total += n
	}
	sort.Slice(out.Conversations, func(i, j int) bool {
		a, b := out.Conversations[i], out.Conversations[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.ConnectionID < b.ConnectionID
	})
	return out, nil
}
