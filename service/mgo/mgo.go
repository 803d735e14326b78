package mgo

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"PPLink/data/database"
	"PPLink/data/database/mgo/mongoutil"
	"PPLink/logger"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MongoManager owns the process-wide Mongo client. One is built in main and passed to the stores.
type MongoManager struct {
	mu     sync.RWMutex
	client *mongoutil.Client
}

func NewManager() *MongoManager {
	return &MongoManager{}
}

// Connect blocks until Mongo answers a ping or ctx is done, backing off with jitter between attempts.
func (m *MongoManager) Connect(ctx context.Context, cfg *mongoutil.Config) error {
	const (
		baseBackoff = 200 * time.Millisecond
		maxBackoff  = 5 * time.Second
	)

	attempt := 0
	for {
		cli, err := mongoutil.NewMongoDB(ctx, cfg)
		if err == nil {
			m.mu.Lock()
			m.client = cli
			m.mu.Unlock()
			logger.Info("[Mongo] connected", zap.String("database", cfg.Database))
			return nil
		}
		logger.Warn("[Mongo] connect failed", zap.Int("attempt", attempt), zap.Error(err))

		// 退避 + 抖动
		backoff := baseBackoff << attempt
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
		jitter := time.Duration(rand.Int63n(int64(backoff/5) + 1))
		timer := time.NewTimer(backoff - jitter/2)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Wrap(ctx.Err(), "mongo connect")
		case <-timer.C:
		}
		if attempt < 6 {
			attempt++
		}
	}
}

func (m *MongoManager) GetDB() *mongo.Database {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.client == nil {
		panic("Mongo not ready: call Connect first")
	}
	return m.client.GetDB()
}

func (m *MongoManager) Ping(ctx context.Context) error {
	m.mu.RLock()
	c := m.client
	m.mu.RUnlock()
	if c == nil {
		return errors.New("mongo not connected")
	}
	return c.Ping(ctx)
}

func (m *MongoManager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return nil
	}
	err := m.client.Disconnect(ctx)
	m.client = nil
	return err
}

// IndexSet lists the indexes a collection needs.
type IndexSet struct {
	Collection string
	Models     []mongo.IndexModel
}

// EnsureIndexes creates missing indexes; existing identical ones are a no-op on the server.
func (m *MongoManager) EnsureIndexes(ctx context.Context, sets ...IndexSet) error {
	db := m.GetDB()
	for _, s := range sets {
		if len(s.Models) == 0 {
			continue
		}
		if _, err := db.Collection(s.Collection).Indexes().CreateMany(ctx, s.Models); err != nil {
			return errors.Wrapf(err, "ensure indexes on %s", s.Collection)
		}
	}
	return nil
}

// Collection resolves the collection a model is stored in.
func Collection(db *mongo.Database, t database.Table) *mongo.Collection {
	return db.Collection(t.GetTableName())
}
