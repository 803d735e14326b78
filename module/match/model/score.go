package model

import (
	"sort"
	"strings"

	usermodel "PPLink/module/user/model"
)

// 打分权重
const (
	WeightSkill    = 3.0
	WeightInterest = 2.0
	WeightLocation = 1.5
)

type Suggestion struct {
	User            usermodel.PublicProfile `json:"user"`
	Score           float64                 `json:"score"`
	SharedSkills    []string                `json:"sharedSkills,omitempty"`
	SharedInterests []string                `json:"sharedInterests,omitempty"`
	SameLocation    bool                    `json:"sameLocation,omitempty"`
	Reason          string                  `json:"reason,omitempty"`
}

// Score compares two profiles on shared skills, shared interests and location.
// Tag comparison is case-insensitive; the candidate's spelling is kept.
func Score(me, other *usermodel.User) Suggestion {
	s := Suggestion{User: other.Public()}
	s.SharedSkills = intersect(me.Skills, other.Skills)
	s.SharedInterests = intersect(me.Interests, other.Interests)
	s.SameLocation = me.Location != "" && strings.EqualFold(strings.TrimSpace(me.Location), strings.TrimSpace(other.Location))

	s.Score = WeightSkill*float64(len(s.SharedSkills)) + WeightInterest*float64(len(s.SharedInterests))
	if s.SameLocation {
		s.Score += WeightLocation
	}
	return s
}

// Rank orders by score desc, then most recently active, then user id.
func Rank(list []Suggestion) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.User.LastActive.Equal(b.User.LastActive) {
			return a.User.LastActive.After(b.User.LastActive)
		}
		return a.User.UserID < b.User.UserID
	})
}

func intersect(mine, theirs []string) []string {
	if len(mine) == 0 || len(theirs) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(mine))
	for _, t := range mine {
		set[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	var out []string
	for _, t := range theirs {
		k := strings.ToLower(strings.TrimSpace(t))
		if _, ok := set[k]; ok {
			out = append(out, t)
			delete(set, k)
		}
	}
	return out
}
