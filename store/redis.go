package store

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jassus213/ratelimiter-service/ratelimiter"
)

// RedisStore implements ratelimiter.Store on top of Redis, the
// networked backend multiple service instances share for distributed
// rate limiting. Every check-and-update sequence is compiled once via
// redis.NewScript and executed as a single EVAL, so concurrent callers
// across processes never race on a read-then-write.
type RedisStore struct {
	client *redis.Client

	slidingWindowLogScript     *redis.Script
	slidingWindowCounterScript *redis.Script
	tokenBucketScript          *redis.Script
	leakyBucketEnqueueScript   *redis.Script
}

// NewRedis creates a RedisStore over an already-configured client,
// pre-compiling every Lua script used by the atomic engines.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,

		slidingWindowLogScript: redis.NewScript(`
			local key = KEYS[1]
			local now = tonumber(ARGV[1])
			local window = tonumber(ARGV[2])
			local limit = tonumber(ARGV[3])
			local member = ARGV[4]

			redis.call("ZREMRANGEBYSCORE", key, "-inf", tostring(now - window))
			local card = redis.call("ZCARD", key)
			if card >= limit then
				return 0
			end
			redis.call("ZADD", key, now, member)
			redis.call("EXPIRE", key, math.ceil(window + 1))
			return 1
		`),

		slidingWindowCounterScript: redis.NewScript(`
			local currKey = KEYS[1]
			local prevKey = KEYS[2]
			local offset = tonumber(ARGV[1])
			local limit = tonumber(ARGV[2])
			local ttl = tonumber(ARGV[3])

			local prevCount = tonumber(redis.call("GET", prevKey)) or 0
			local currCount = tonumber(redis.call("GET", currKey)) or 0

			local estimate = (1 - offset) * prevCount + currCount
			if estimate >= limit then
				return 0
			end

			redis.call("INCR", currKey)
			redis.call("EXPIRE", currKey, ttl)
			return 1
		`),

		tokenBucketScript: redis.NewScript(`
			local key = KEYS[1]
			local now = tonumber(ARGV[1])
			local refillPerSecond = tonumber(ARGV[2])
			local capacity = tonumber(ARGV[3])
			local ttl = tonumber(ARGV[4])

			local entry = redis.call("HGETALL", key)
			local tokens
			local lastRefill
			if #entry == 0 then
				tokens = capacity
				lastRefill = now
			else
				tokens = tonumber(entry[2])
				lastRefill = tonumber(entry[4])
			end

			local elapsed = now - lastRefill
			if elapsed > 0 then
				tokens = tokens + elapsed * refillPerSecond
			end
			if tokens > capacity then
				tokens = capacity
			end

			local allowed = 0
			if tokens >= 1 then
				tokens = tokens - 1
				allowed = 1
			end

			redis.call("HSET", key, "tokens", tostring(tokens), "last_refill", tostring(now))
			redis.call("EXPIRE", key, math.ceil(ttl))

			return {allowed, tostring(tokens)}
		`),

		leakyBucketEnqueueScript: redis.NewScript(`
			local key = KEYS[1]
			local activeSetKey = KEYS[2]
			local identity = ARGV[1]
			local now = ARGV[2]
			local limit = tonumber(ARGV[3])

			redis.call("RPUSH", key, now)
			local length = redis.call("LLEN", key)
			if length > limit then
				redis.call("RPOP", key)
				return 0
			end

			redis.call("SADD", activeSetKey, identity)
			return 1
		`),
	}
}

func (s *RedisStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return s.client.Incr(ctx, key).Result()
	}
	// INCR and the first-increment PEXPIRE run as one script, so the
	// counter can never be left behind without its TTL.
	return s.client.Eval(ctx, `local count = redis.call("INCR", KEYS[1])
		if count == 1 then redis.call("PEXPIRE", KEYS[1], ARGV[1]) end
		return count`, []string{key}, ttl.Milliseconds()).Int64()
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Expire(ctx, key, ttl).Err()
}

func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, false, err
	}
	// go-redis returns -1 for "exists, no TTL" and -2 for "missing key".
	if ttl < 0 {
		return 0, false, nil
	}
	return ttl, true, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, ttl).Result()
}

func (s *RedisStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	return s.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
}

func (s *RedisStore) ZRemRangeByScore(ctx context.Context, key string, max float64) error {
	return s.client.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatFloat(max, 'f', -1, 64)).Err()
}

func (s *RedisStore) ZCard(ctx context.Context, key string) (int64, error) {
	return s.client.ZCard(ctx, key).Result()
}

func (s *RedisStore) RPush(ctx context.Context, key string, value string) error {
	return s.client.RPush(ctx, key, value).Err()
}

func (s *RedisStore) LPop(ctx context.Context, key string, count int64) ([]string, error) {
	vals, err := s.client.LPopCount(ctx, key, int(count)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	return vals, err
}

func (s *RedisStore) LLen(ctx context.Context, key string) (int64, error) {
	return s.client.LLen(ctx, key).Result()
}

func (s *RedisStore) SAdd(ctx context.Context, key string, member string) error {
	return s.client.SAdd(ctx, key, member).Err()
}

func (s *RedisStore) SRem(ctx context.Context, key string, member string) error {
	return s.client.SRem(ctx, key, member).Err()
}

func (s *RedisStore) SMembers(ctx context.Context, key string) ([]string, error) {
	return s.client.SMembers(ctx, key).Result()
}

func (s *RedisStore) SCard(ctx context.Context, key string) (int64, error) {
	return s.client.SCard(ctx, key).Result()
}

func (s *RedisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return s.client.HGetAll(ctx, key).Result()
}

func (s *RedisStore) HSet(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	values := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		values = append(values, k, v)
	}
	if err := s.client.HSet(ctx, key, values...).Err(); err != nil {
		return err
	}
	if ttl > 0 {
		return s.client.Expire(ctx, key, ttl).Err()
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *RedisStore) KeysByPattern(ctx context.Context, pattern string) ([]string, error) {
	var out []string
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val())
	}
	return out, iter.Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) EvalSlidingWindowLog(ctx context.Context, key string, now, window float64, limit int64, member string) (bool, error) {
	res, err := s.slidingWindowLogScript.Run(ctx, s.client, []string{key}, now, window, limit, member).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (s *RedisStore) EvalSlidingWindowCounter(ctx context.Context, currKey, prevKey string, offset float64, limit int64, ttl time.Duration) (bool, error) {
	res, err := s.slidingWindowCounterScript.Run(ctx, s.client, []string{currKey, prevKey}, offset, limit, int64(ttl.Seconds())).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (s *RedisStore) EvalTokenBucket(ctx context.Context, key string, now, refillPerSecond float64, capacity int64, ttl time.Duration) (bool, float64, error) {
	res, err := s.tokenBucketScript.Run(ctx, s.client, []string{key}, now, refillPerSecond, capacity, ttl.Seconds()).Result()
	if err != nil {
		return false, 0, err
	}

	arr, ok := res.([]interface{})
	if !ok || len(arr) < 2 {
		return false, 0, ratelimiter.ErrStoreUnavailable
	}

	allowed := arr[0].(int64) == 1
	tokensStr, _ := arr[1].(string)
	tokens, _ := strconv.ParseFloat(tokensStr, 64)
	return allowed, tokens, nil
}

func (s *RedisStore) EvalLeakyBucketEnqueue(ctx context.Context, key, activeSetKey, identity string, now float64, limit int64) (bool, error) {
	res, err := s.leakyBucketEnqueueScript.Run(ctx, s.client, []string{key, activeSetKey}, identity, strconv.FormatFloat(now, 'f', -1, 64), limit).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

var _ ratelimiter.Store = (*RedisStore)(nil)
