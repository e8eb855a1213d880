package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultDedupTTL = 72 * time.Hour

// EventDeduplicator marks inbound event ids with SETNX so each one is
// applied once within the TTL.
type EventDeduplicator struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
}

func NewEventDeduplicator(rdb redis.Cmdable, ttl time.Duration) *EventDeduplicator {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &EventDeduplicator{rdb: rdb, ttl: ttl, prefix: "payment:event"}
}

func (d *EventDeduplicator) key(eventID string) string {
	return fmt.Sprintf("%s:%s", d.prefix, eventID)
}

func (d *EventDeduplicator) Seen(ctx context.Context, eventID string) (bool, error) {
	ok, err := d.rdb.SetNX(ctx, d.key(eventID), "1", d.ttl).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func (d *EventDeduplicator) Forget(ctx context.Context, eventID string) error {
	return d.rdb.Del(ctx, d.key(eventID)).Err()
}

// Connect opens a client and pings it.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}
