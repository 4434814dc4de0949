package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const presenceKey = "presence:online"

// RedisPresenceMirror keeps an observational copy of liveness in a single
// ZSET scored by last check-in time. The in-process registry stays the
// source of truth; this survives restarts and backs "last seen" reads.
type RedisPresenceMirror struct {
	rdb *redis.Client
}

func NewRedisPresenceMirror(rdb *redis.Client) *RedisPresenceMirror {
	return &RedisPresenceMirror{
		rdb: rdb,
	}
}

// MarkOnline adds/updates the user in the ZSet with the current timestamp.
func (p *RedisPresenceMirror) MarkOnline(
	ctx context.Context,
	userID string,
	ttl time.Duration, // inactivity threshold
) error {
	now := time.Now().Unix()
	err := p.rdb.ZAdd(ctx, presenceKey, redis.Z{
		Score:  float64(now),
		Member: userID,
	}).Err()
	if err != nil {
		return err
	}
	// Expire the whole ZSet so it doesn't leak memory when the service
	// goes quiet.
	return p.rdb.Expire(ctx, presenceKey, ttl*2).Err()
}

// MarkOffline drops the user from the mirror immediately.
func (p *RedisPresenceMirror) MarkOffline(ctx context.Context, userID string) error {
	return p.rdb.ZRem(ctx, presenceKey, userID).Err()
}

// OnlineUsers returns users who checked in within the last 45 seconds.
func (p *RedisPresenceMirror) OnlineUsers(ctx context.Context) ([]string, error) {
	threshold := time.Now().Add(-45 * time.Second).Unix()

	// Remove stale members first (self-cleaning)
	p.rdb.ZRemRangeByScore(ctx, presenceKey, "-inf", strconv.FormatInt(threshold, 10))

	return p.rdb.ZRange(ctx, presenceKey, 0, -1).Result()
}
