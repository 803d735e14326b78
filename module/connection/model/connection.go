package model

import (
	"time"

	"PPLink/service/mgo"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// Connection 一次连接申请的完整生命周期（申请 -> 同意/拒绝）。
// 同意后的 ConnectionID 即为聊天房间 ID。
type Connection struct {
	ConnectionID string `bson:"connection_id" json:"connectionId"`
	RequesterID  string `bson:"requester_id" json:"requesterId"` // 发起方
	RecipientID  string `bson:"recipient_id" json:"recipientId"` // 接收方
	PairKey      string `bson:"pair_key" json:"-"`               // 两个用户ID排序后拼接，查重用
	Status       Status `bson:"status" json:"status"`
	Note         string `bson:"note,omitempty" json:"note,omitempty"` // 申请附言

	CreateTime time.Time  `bson:"create_time" json:"createTime"`
	UpdateTime time.Time  `bson:"update_time" json:"updateTime"`
	HandleTime *time.Time `bson:"handle_time,omitempty" json:"handleTime,omitempty"`
}

func (c *Connection) GetTableName() string {
	return "connection"
}

func Indexes() mgo.IndexSet {
	return mgo.IndexSet{
		Collection: (&Connection{}).GetTableName(),
		Models: []mongo.IndexModel{
			{Keys: bson.D{{Key: "connection_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "pair_key", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "requester_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "status", Value: 1}}},
		},
	}
}

// PairKey is order independent: PairKey(a, b) == PairKey(b, a).
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

func (c *Connection) Involves(userID string) bool {
	return c.RequesterID == userID || c.RecipientID == userID
}

// Peer returns the other participant.
func (c *Connection) Peer(userID string) string {
	if c.RequesterID == userID {
		return c.RecipientID
	}
	return c.RequesterID
}
