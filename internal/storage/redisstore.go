// internal/storage/redisstore.go
//
// Redis 後端：整份快照以 JSON 字串存放於單一 key。
// SET 為單一指令，天然具備整份覆寫語意。
package storage

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey 為未指定 key 時使用的快照 key。
const DefaultRedisKey = "finsystem:ledger:snapshot"

// RedisStore 將快照保存於 Redis。
type RedisStore struct {
	rdb redis.UniversalClient
	key string
}

// NewRedisStore 建立 RedisStore；key 為空時使用 DefaultRedisKey。
func NewRedisStore(rdb redis.UniversalClient, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{rdb: rdb, key: key}
}

// Name implements Store.
func (s *RedisStore) Name() string { return "redis_snapshot" }

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context) (Snapshot, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, errors.Wrapf(err, "redis get %s", s.key)
	}
	return decode(data)
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, snap Snapshot) error {
	stamp(&snap, s.Name())
	data, err := encode(snap, false)
	if err != nil {
		return errors.Wrapf(ErrPersistenceWrite, "encode: %v", err)
	}
	if err := s.rdb.Set(ctx, s.key, data, 0).Err(); err != nil {
		return errors.Wrapf(ErrPersistenceWrite, "redis set %s: %v", s.key, err)
	}
	return nil
}
