package events

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel 為 Redis pub/sub 頻道名稱。
const DefaultChannel = "ledger_events"

// RedisPublisher 以 Redis PUBLISH 發布事件。
type RedisPublisher struct {
	rdb     redis.UniversalClient
	channel string
}

// NewRedisPublisher 建立 RedisPublisher；channel 為空時使用 DefaultChannel。
func NewRedisPublisher(rdb redis.UniversalClient, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{rdb: rdb, channel: channel}
}

// Publish implements Publisher.
func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return errors.Wrapf(err, "publish to %s", p.channel)
	}
	return nil
}

// Close 不關閉共用的 redis client，由建立者負責。
func (p *RedisPublisher) Close() error { return nil }
