package store

import (
	"context"
	"time"

	msgmodel "PPLink/module/message/model"
	"PPLink/service/mgo"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	coll *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{coll: mgo.Collection(db, &msgmodel.Message{})}
}

func (s *Store) Insert(ctx context.Context, m *msgmodel.Message) error {
	_, err := s.coll.InsertOne(ctx, m)
	return errors.Wrapf(err, "insert message %s", m.MessageID)
}

// List returns up to limit messages of a connection created before `before` (zero = now),
// oldest first so the newest message is last.
func (s *Store) List(ctx context.Context, connectionID string, limit int64, before time.Time) ([]*msgmodel.Message, error) {
	filter := bson.M{"connection_id": connectionID}
	if !before.IsZero() {
		filter["create_time"] = bson.M{"$lt": before}
	}
	cur, err := s.coll.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "create_time", Value: -1}, {Key: "message_id", Value: -1}}).
		SetLimit(limit))
	if err != nil {
		return nil, errors.Wrapf(err, "list messages conn=%s", connectionID)
	}
	defer func(cur *mongo.Cursor, ctx context.Context) {
		_ = cur.Close(ctx)
	}(cur, ctx)

	out := []*msgmodel.Message{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "decode messages")
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// MarkRead flags the given messages of a connection as read by readerID. Only messages
// addressed to the reader are touched; already-read ones are skipped.
func (s *Store) MarkRead(ctx context.Context, connectionID, readerID string, messageIDs []string, at time.Time) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	res, err := s.coll.UpdateMany(ctx, bson.M{
		"connection_id": connectionID,
		"recipient_id":  readerID,
		"message_id":    bson.M{"$in": messageIDs},
		"read":          false,
	}, bson.M{"$set": bson.M{"read": true, "read_at": at}})
	if err != nil {
		return 0, errors.Wrapf(err, "mark read conn=%s reader=%s", connectionID, readerID)
	}
	return res.ModifiedCount, nil
}

type unreadRow struct {
	ConnectionID string `bson:"_id"`
	Count        int64  `bson:"count"`
}

// CountUnread groups the user's unread messages by connection.
func (s *Store) CountUnread(ctx context.Context, userID string) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"recipient_id": userID, "read": false}}},
		{{Key: "$group", Value: bson.M{"_id": "$connection_id", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrapf(err, "count unread user=%s", userID)
	}
	defer func(cur *mongo.Cursor, ctx context.Context) {
		_ = cur.Close(ctx)
	}(cur, ctx)

	var rows []unreadRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, errors.Wrap(err, "decode unread counts")
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.ConnectionID] = r.Count
	}
	return out, nil
}
