package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultPrefix = "dashboard:rl:"

	redisTimeout = 2 * time.Second
)

// The window start lives in the hash so TimeUntilReset can be answered
// without a second key. Timestamps are milliseconds supplied by the caller.
var attemptScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
local start = redis.call("HGET", KEYS[1], "start")
if (not start) or (now - tonumber(start) > window) then
  redis.call("HSET", KEYS[1], "count", 1, "start", ARGV[1])
  redis.call("PEXPIRE", KEYS[1], window + 1000)
  return 1
end
local count = tonumber(redis.call("HGET", KEYS[1], "count") or "0")
if count >= max then
  return 0
end
redis.call("HINCRBY", KEYS[1], "count", 1)
return 1
`)

// RedisStore shares attempt counters between gateway replicas. Any redis
// failure falls back to the in-process Limiter.
type RedisStore struct {
	Client   *redis.Client
	Prefix   string
	Fallback *Limiter

	opts   Options
	logger *zap.Logger
}

func NewRedis(client *redis.Client, opts Options, logger *zap.Logger) *RedisStore {
	opts = opts.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		Client:   client,
		Prefix:   DefaultPrefix,
		Fallback: New(opts),
		opts:     opts,
		logger:   logger.Named("ratelimit"),
	}
}

func (s *RedisStore) Allow(key string) bool {
	if s.Client == nil {
		return s.Fallback.Allow(key)
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	now := s.opts.Now().UnixMilli()
	res, err := attemptScript.Run(ctx, s.Client, []string{s.Prefix + key},
		now, s.opts.Window.Milliseconds(), s.opts.MaxAttempts).Int64()
	if err != nil {
		s.logger.Warn("redis attempt script failed, using local counter", zap.Error(err))
		return s.Fallback.Allow(key)
	}
	return res == 1
}

func (s *RedisStore) TimeUntilReset(key string) time.Duration {
	if s.Client == nil {
		return s.Fallback.TimeUntilReset(key)
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	raw, err := s.Client.HGet(ctx, s.Prefix+key, "start").Result()
	if errors.Is(err, redis.Nil) {
		return 0
	}
	if err != nil {
		s.logger.Warn("redis window lookup failed, using local counter", zap.Error(err))
		return s.Fallback.TimeUntilReset(key)
	}
	startMs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	elapsed := time.Duration(s.opts.Now().UnixMilli()-startMs) * time.Millisecond
	remaining := s.opts.Window - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (s *RedisStore) Reset(key string) {
	s.Fallback.Reset(key)
	if s.Client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := s.Client.Del(ctx, s.Prefix+key).Err(); err != nil {
		s.logger.Warn("redis reset failed", zap.Error(err))
	}
}
