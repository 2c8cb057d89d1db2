package limiter

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "login"

// incrWindow increments the failure counter and arms its TTL in one step.
// A counter left without a TTL is re-armed on the next failure.
const incrWindow = `
local n = redis.call("INCR", KEYS[1])
if n == 1 or redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`

type redisClient interface {
	TTL(ctx context.Context, key string) *redis.DurationCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Redis counts failures in a fixed window and sets a block key once maxFails is reached.
type Redis struct {
	client   redisClient
	window   time.Duration
	maxFails int
	blockFor time.Duration
}

// NewRedis constructs a Redis-backed limiter.
func NewRedis(client redisClient, window time.Duration, maxFails int, blockFor time.Duration) *Redis {
	if maxFails <= 0 {
		maxFails = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	if blockFor <= 0 {
		blockFor = 15 * time.Minute
	}
	return &Redis{client: client, window: window, maxFails: maxFails, blockFor: blockFor}
}

func keys(username string, ipHash []byte) (fail, block string) {
	suffix := username + ":" + hex.EncodeToString(ipHash)
	return keyPrefix + ":fail:" + suffix, keyPrefix + ":block:" + suffix
}

// Allow checks the block key. Missing keys report a non-positive TTL.
func (l *Redis) Allow(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	_, blockKey := keys(username, ipHash)
	ttl, err := l.client.TTL(ctx, blockKey).Result()
	if err != nil {
		return true, 0, err
	}
	if ttl > 0 {
		return false, ttl, nil
	}
	return true, 0, nil
}

// Success resets counters for (username, ip).
func (l *Redis) Success(ctx context.Context, username string, ipHash []byte) error {
	failKey, blockKey := keys(username, ipHash)
	return l.client.Del(ctx, failKey, blockKey).Err()
}

// Failure increments the counter; the first failure starts the window.
func (l *Redis) Failure(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	failKey, blockKey := keys(username, ipHash)
	fails, err := l.client.Eval(ctx, incrWindow, []string{failKey}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, 0, err
	}
	if fails < int64(l.maxFails) {
		return false, 0, nil
	}
	if err := l.client.Set(ctx, blockKey, 1, l.blockFor).Err(); err != nil {
		return false, 0, err
	}
	if err := l.client.Del(ctx, failKey).Err(); err != nil {
		return true, l.blockFor, err
	}
	return true, l.blockFor, nil
}
