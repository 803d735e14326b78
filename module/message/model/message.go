package model

import (
	"time"

	"PPLink/service/mgo"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const MaxTextLen = 4000

// Message 单聊消息。ConnectionID 即房间 ID，RecipientID 为对端（用于未读统计）。
type Message struct {
	MessageID    string     `bson:"message_id" json:"messageId"`
	ConnectionID string     `bson:"connection_id" json:"connectionId"`
	SenderID     string     `bson:"sender_id" json:"senderId"`
	RecipientID  string     `bson:"recipient_id" json:"recipientId"`
	Text         string     `bson:"text" json:"text"`
	Read         bool       `bson:"read" json:"read"`
	ReadAt       *time.Time `bson:"read_at,omitempty" json:"readAt,omitempty"`
	CreateTime   time.Time  `bson:"create_time" json:"createTime"`
}

func (m *Message) GetTableName() string {
	return "message"
}

func Indexes() mgo.IndexSet {
	return mgo.IndexSet{
		Collection: (&Message{}).GetTableName(),
		Models: []mongo.IndexModel{
			{Keys: bson.D{{Key: "message_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "connection_id", Value: 1}, {Key: "create_time", Value: -1}}},
			// 未读统计：recipient_id + read 过滤后按 connection_id 分组
			{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "read", Value: 1}, {Key: "connection_id", Value: 1}}},
		},
	}
}

// Payload is the client-facing shape relayed inside new-message frames.
func (m *Message) Payload() map[string]any {
	p := map[string]any{
		"messageId":    m.MessageID,
		"connectionId": m.ConnectionID,
		"senderId":     m.SenderID,
		"recipientId":  m.RecipientID,
		"text":         m.Text,
		"read":         m.Read,
		"createTime":   m.CreateTime,
	}
	if m.ReadAt != nil {
		p["readAt"] = *m.ReadAt
	}
	return p
}
