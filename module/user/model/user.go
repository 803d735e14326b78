package model

import (
	"strings"
	"time"

	"PPLink/service/mgo"
	"PPLink/tools/safe"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// User 用户主档。在线状态字段只做展示，允许与实时 registry 轻微不一致。
type User struct {
	UserID       string `bson:"user_id" json:"userId"`
	Email        string `bson:"email" json:"email"`
	PasswordHash string `bson:"password_hash" json:"-"`

	Name      string   `bson:"name" json:"name"`
	Headline  string   `bson:"headline,omitempty" json:"headline,omitempty"`
	Bio       string   `bson:"bio,omitempty" json:"bio,omitempty"`
	Location  string   `bson:"location,omitempty" json:"location,omitempty"`
	Skills    []string `bson:"skills,omitempty" json:"skills,omitempty"`
	Interests []string `bson:"interests,omitempty" json:"interests,omitempty"`

	// —— 活跃度/在线状态 ——
	SocketID   string    `bson:"socket_id,omitempty" json:"-"`
	IsOnline   bool      `bson:"is_online" json:"isOnline"`
	LastActive time.Time `bson:"last_active,omitempty" json:"lastActive,omitempty"`

	CreateTime time.Time `bson:"create_time" json:"createTime"`
	UpdateTime time.Time `bson:"update_time" json:"updateTime"`
}

func (u *User) GetTableName() string {
	return "user"
}

// Indexes: unique user_id and email.
func Indexes() mgo.IndexSet {
	return mgo.IndexSet{
		Collection: (&User{}).GetTableName(),
		Models: []mongo.IndexModel{
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
}

// PublicProfile is what other users may see.
type PublicProfile struct {
	UserID     string    `json:"userId"`
	Name       string    `json:"name"`
	Headline   string    `json:"headline,omitempty"`
	Bio        string    `json:"bio,omitempty"`
	Location   string    `json:"location,omitempty"`
	Skills     []string  `json:"skills,omitempty"`
	Interests  []string  `json:"interests,omitempty"`
	Online     bool      `json:"online"`
	LastActive time.Time `json:"lastActive,omitempty"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{
		UserID:     u.UserID,
		Name:       u.Name,
		Headline:   u.Headline,
		Bio:        u.Bio,
		Location:   u.Location,
		Skills:     u.Skills,
		Interests:  u.Interests,
		Online:     u.IsOnline,
		LastActive: u.LastActive,
	}
}

// ProfileUpdate is a partial update; nil fields are left alone.
type ProfileUpdate struct {
	Name      *string   `json:"name"`
	Headline  *string   `json:"headline"`
	Bio       *string   `json:"bio"`
	Location  *string   `json:"location"`
	Skills    *[]string `json:"skills"`
	Interests *[]string `json:"interests"`
}

func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.Headline == nil && p.Bio == nil && p.Location == nil &&
		p.Skills == nil && p.Interests == nil
}

// Apply copies the set fields onto u, trimming strings and normalising lists.
func (p ProfileUpdate) Apply(u *User) {
	u.Name = strings.TrimSpace(safe.DefaultString(p.Name, u.Name))
	u.Headline = strings.TrimSpace(safe.DefaultString(p.Headline, u.Headline))
	u.Bio = strings.TrimSpace(safe.DefaultString(p.Bio, u.Bio))
	u.Location = strings.TrimSpace(safe.DefaultString(p.Location, u.Location))
	if p.Skills != nil {
		u.Skills = NormalizeTags(*p.Skills)
	}
	if p.Interests != nil {
		u.Interests = NormalizeTags(*p.Interests)
	}
}

// SetDoc is the $set document for the fields present in p, read back from u after Apply.
func (p ProfileUpdate) SetDoc(u *User) bson.M {
	set := bson.M{}
	for k, v := range p.PublicFields(u) {
		set[k] = v
	}
	return set
}

// PublicFields is the changed public field set broadcast to other sessions.
// Keys match both the json and bson names.
func (p ProfileUpdate) PublicFields(u *User) map[string]any {
	out := map[string]any{}
	if p.Name != nil {
		out["name"] = u.Name
	}
	if p.Headline != nil {
		out["headline"] = u.Headline
	}
	if p.Bio != nil {
		out["bio"] = u.Bio
	}
	if p.Location != nil {
		out["location"] = u.Location
	}
	if p.Skills != nil {
		out["skills"] = u.Skills
	}
	if p.Interests != nil {
		out["interests"] = u.Interests
	}
	return out
}

// NormalizeTags trims, drops empties and dedupes case-insensitively, keeping first spelling.
func NormalizeTags(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		k := strings.ToLower(s)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}
