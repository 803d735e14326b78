package storage

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// presence key: im:presence:<user>
// Value: "<nodeID>|<socketID>|<sinceUnixMs>", TTL bounds how long a crashed node leaves a stale entry.
func presenceKey(user string) string { return "im:presence:" + user }

// 仅当 value 仍属于本连接时才删除（新连接已覆盖则保留）
// KEYS[1] = presence key
// ARGV[1] = expected value prefix "<node>|<socket>|"
// 返回：1 删除；0 未删除
const luaOfflineIfOwner = `
local v = redis.call("GET", KEYS[1])
if not v then
  return 0
end
if string.sub(v, 1, string.len(ARGV[1])) == ARGV[1] then
  redis.call("DEL", KEYS[1])
  return 1
end
return 0
`

// PresenceEntry is one user's mirrored session.
type PresenceEntry struct {
	NodeID   string
	SocketID string
	Since    time.Time
}

// PresenceStore mirrors the in-process session registry into Redis so other nodes and
// restarts can see who is online. It is bookkeeping only; the registry stays authoritative.
type PresenceStore struct {
	rdb       *redis.Client
	nodeID    string
	ttl       time.Duration
	luaDelete *redis.Script
}

func NewPresenceStore(rdb *redis.Client, nodeID string, ttl time.Duration) *PresenceStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &PresenceStore{
		rdb:       rdb,
		nodeID:    nodeID,
		ttl:       ttl,
		luaDelete: redis.NewScript(luaOfflineIfOwner),
	}
}

// PresenceOnline sets the user as online on this node and renews the TTL.
func (p *PresenceStore) PresenceOnline(ctx context.Context, user, socketID string, at time.Time) error {
	v := encodePresence(PresenceEntry{NodeID: p.nodeID, SocketID: socketID, Since: at})
	return errors.Wrap(p.rdb.Set(ctx, presenceKey(user), v, p.ttl).Err(), "presence online")
}

// PresenceOffline deletes the key unless a newer socket already replaced it.
func (p *PresenceStore) PresenceOffline(ctx context.Context, user, socketID string) (bool, error) {
	prefix := p.nodeID + "|" + socketID + "|"
	n, err := p.luaDelete.Run(ctx, p.rdb, []string{presenceKey(user)}, prefix).Int()
	if err != nil {
		return false, errors.Wrap(err, "presence offline")
	}
	return n == 1, nil
}

// PresenceLookup checks whether the user is online anywhere in the cluster.
func (p *PresenceStore) PresenceLookup(ctx context.Context, user string) (PresenceEntry, bool, error) {
	val, err := p.rdb.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return PresenceEntry{}, false, nil
	}
	if err != nil {
		return PresenceEntry{}, false, errors.Wrap(err, "presence lookup")
	}
	e, ok := decodePresence(val)
	return e, ok, nil
}

func (p *PresenceStore) IsOnlineAnywhere(ctx context.Context, user string) (bool, error) {
	_, ok, err := p.PresenceLookup(ctx, user)
	return ok, err
}

func encodePresence(e PresenceEntry) string {
	return e.NodeID + "|" + e.SocketID + "|" + strconv.FormatInt(e.Since.UnixMilli(), 10)
}

func decodePresence(v string) (PresenceEntry, bool) {
	parts := strings.Split(v, "|")
	if len(parts) != 3 {
		return PresenceEntry{}, false
	}
	ms, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return PresenceEntry{}, false
	}
	return PresenceEntry{NodeID: parts[0], SocketID: parts[1], Since: time.UnixMilli(ms)}, true
}
