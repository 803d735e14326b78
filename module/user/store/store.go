package store

import (
	"context"
	"time"

	usermodel "PPLink/module/user/model"
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
	return &Store{coll: mgo.Collection(db, &usermodel.User{})}
}

func (s *Store) Create(ctx context.Context, u *usermodel.User) error {
	_, err := s.coll.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return errs.ErrRecordIsExist.WrapMsg("email already registered", "email", u.Email)
	}
	return errors.Wrapf(err, "insert user email=%s", u.Email)
}

func (s *Store) FindByID(ctx context.Context, userID string) (*usermodel.User, error) {
	return s.findOne(ctx, bson.M{"user_id": userID})
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*usermodel.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*usermodel.User, error) {
	var u usermodel.User
	if err := s.coll.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.ErrRecordNotFound.WrapMsg("user not found")
		}
		return nil, errors.Wrapf(err, "find user %v", filter)
	}
	return &u, nil
}

func (s *Store) FindByIDs(ctx context.Context, userIDs []string) ([]*usermodel.User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"user_id": bson.M{"$in": userIDs}}, options.Find())
}

// ListCandidates returns users not in exclude, most recently active first.
func (s *Store) ListCandidates(ctx context.Context, exclude []string, limit int64) ([]*usermodel.User, error) {
	filter := bson.M{}
	if len(exclude) > 0 {
		filter["user_id"] = bson.M{"$nin": exclude}
	}
	opts := options.Find().SetSort(bson.D{{Key: "last_active", Value: -1}}).SetLimit(limit)
	return s.find(ctx, filter, opts)
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*usermodel.User, error) {
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find users")
	}
	defer func(cur *mongo.Cursor, ctx context.Context) {
		_ = cur.Close(ctx)
	}(cur, ctx)

	var out []*usermodel.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "decode users")
	}
	return out, nil
}

// UpdateProfile applies set and returns the document after the update.
func (s *Store) UpdateProfile(ctx context.Context, userID string, set bson.M, at time.Time) (*usermodel.User, error) {
	doc := bson.M{"update_time": at}
	for k, v := range set {
		doc[k] = v
	}
	var u usermodel.User
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": doc},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.ErrRecordNotFound.WrapMsg("user not found")
		}
		return nil, errors.Wrapf(err, "update profile user=%s", userID)
	}
	return &u, nil
}

// SetPresence records the last known socket. Going offline only applies while socketID
// is still the recorded one, so a late offline from a replaced socket cannot clobber a newer login.
func (s *Store) SetPresence(ctx context.Context, userID, socketID string, online bool, at time.Time) error {
	filter := bson.M{"user_id": userID}
	set := bson.M{"is_online": online, "last_active": at}
	if online {
		set["socket_id"] = socketID
	} else {
		filter["socket_id"] = socketID
	}
	_, err := s.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	return errors.Wrapf(err, "set presence user=%s online=%v", userID, online)
}
