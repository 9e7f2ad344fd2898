package lockout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/common"
	"github.com/redis/go-redis/v9"
)

// counterTTL bounds how long a sub-threshold counter survives in Redis.
const counterTTL = 24 * time.Hour

const recordFailureScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local threshold = tonumber(ARGV[2])
local duration = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local until_ms = tonumber(redis.call("HGET", key, "until") or "0")
if until_ms > now then
  return until_ms - now
end
if until_ms > 0 then
  redis.call("DEL", key)
end

local attempts = redis.call("HINCRBY", key, "attempts", 1)
if attempts >= threshold then
  redis.call("HSET", key, "attempts", threshold, "until", now + duration)
  redis.call("PEXPIRE", key, duration)
  return duration
end
redis.call("PEXPIRE", key, ttl)
return 0
`

const resetScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])

local until_ms = tonumber(redis.call("HGET", key, "until") or "0")
if until_ms > now then
  return 0
end
return redis.call("DEL", key)
`

var (
	recordFailureLua = redis.NewScript(recordFailureScript)
	resetLua         = redis.NewScript(resetScript)
)

// RedisTracker shares lockout state between server instances. Each address
// is a hash {attempts, until} updated atomically by Lua scripts.
type RedisTracker struct {
	redis  redis.UniversalClient
	prefix string
	policy Policy
	now    func() time.Time
}

// NewRedisTracker builds a tracker storing keys under prefix. now may be nil.
func NewRedisTracker(client redis.UniversalClient, prefix string, policy Policy, now func() time.Time) *RedisTracker {
	if now == nil {
		now = time.Now
	}
	return &RedisTracker{redis: client, prefix: prefix, policy: policy, now: now}
}

func (t *RedisTracker) key(email string) string {
	return t.prefix + ":lockout:" + common.NormalizeEmail(email)
}

func (t *RedisTracker) IsLockedOut(ctx context.Context, email string) (time.Duration, error) {
	raw, err := t.redis.HGet(ctx, t.key(email), "until").Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lockout redis: %w", err)
	}

	until, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("lockout redis: bad until %q: %w", raw, err)
	}
	remaining := time.UnixMilli(until).Sub(t.now())
	if remaining <= 0 {
		return 0, nil
	}
	return remaining, nil
}

func (t *RedisTracker) RecordFailure(ctx context.Context, email string) (time.Duration, error) {
	ms, err := recordFailureLua.Run(ctx, t.redis, []string{t.key(email)},
		t.now().UnixMilli(), t.policy.Threshold, t.policy.Duration.Milliseconds(), counterTTL.Milliseconds(),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("lockout redis: %w", err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func (t *RedisTracker) Reset(ctx context.Context, email string) error {
	if err := resetLua.Run(ctx, t.redis, []string{t.key(email)}, t.now().UnixMilli()).Err(); err != nil {
		return fmt.Errorf("lockout redis: %w", err)
	}
	return nil
}
