package store

import (
	"context"
	"time"

	connmodel "PPLink/module/connection/model"
	"PPLink/service/mgo"
	"PPLink/tools/errs"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	coll *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{coll: mgo.Collection(db, &connmodel.Connection{})}
}

func (s *Store) Create(ctx context.Context, c *connmodel.Connection) error {
	_, err := s.coll.InsertOne(ctx, c)
	return errors.Wrapf(err, "insert connection %s", c.ConnectionID)
}

func (s *Store) FindByID(ctx context.Context, connectionID string) (*connmodel.Connection, error) {
	var c connmodel.Connection
	if err := s.coll.FindOne(ctx, bson.M{"connection_id": connectionID}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.ErrRecordNotFound.WrapMsg("connection not found", "id", connectionID)
		}
		return nil, errors.Wrapf(err, "find connection %s", connectionID)
	}
	return &c, nil
}

// FindActiveByPair returns the pending or accepted connection between two users, if any.
func (s *Store) FindActiveByPair(ctx context.Context, pairKey string) (*connmodel.Connection, error) {
	var c connmodel.Connection
	err := s.coll.FindOne(ctx, bson.M{
		"pair_key": pairKey,
		"status":   bson.M{"$in": []connmodel.Status{connmodel.StatusPending, connmodel.StatusAccepted}},
	}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.ErrRecordNotFound.WrapMsg("no active connection")
		}
		return nil, errors.Wrapf(err, "find pair %s", pairKey)
	}
	return &c, nil
}

// Transition moves a connection from one status to another. Losing a race (status no
// longer matches) is reported as RelationshipError.
func (s *Store) Transition(ctx context.Context, connectionID string, from, to connmodel.Status, at time.Time) (*connmodel.Connection, error) {
	var c connmodel.Connection
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"connection_id": connectionID, "status": from},
		bson.M{"$set": bson.M{"status": to, "update_time": at, "handle_time": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.ErrRelationship.WrapMsg("connection is not "+string(from), "id", connectionID)
		}
		return nil, errors.Wrapf(err, "transition connection %s", connectionID)
	}
	return &c, nil
}

// ListForUser returns connections where userID is either side, newest first. Empty status means all.
func (s *Store) ListForUser(ctx context.Context, userID string, status connmodel.Status) ([]*connmodel.Connection, error) {
	filter := bson.M{"$or": bson.A{bson.M{"requester_id": userID}, bson.M{"recipient_id": userID}}}
	if status != "" {
		filter["status"] = status
	}
	cur, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "update_time", Value: -1}}))
	if err != nil {
		return nil, errors.Wrapf(err, "list connections user=%s", userID)
	}
	defer func(cur *mongo.Cursor, ctx context.Context) {
		_ = cur.Close(ctx)
	}(cur, ctx)

	out := []*connmodel.Connection{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "decode connections")
	}
	return out, nil
}
