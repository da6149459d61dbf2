// Package store provides the two Store backends the rate limiter
// engines run on: an in-process fake (MemoryStore) and a networked one
// backed by Redis (RedisStore). Both satisfy ratelimiter.Store with
// identical semantics; MemoryStore keeps counters, sorted sets, lists,
// sets, and hashes in a single mutex-guarded set of maps.
package store

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jassus213/ratelimiter-service/ratelimiter"
)

type counterEntry struct {
	value     int64
	expiresAt time.Time
	hasTTL    bool
}

type kvEntry struct {
	value     string
	expiresAt time.Time
	hasTTL    bool
}

type zMember struct {
	score  float64
	member string
}

type hashEntry struct {
	fields    map[string]string
	expiresAt time.Time
	hasTTL    bool
}

// MemoryStore is an in-process implementation of ratelimiter.Store. It
// is suitable for single-instance deployments and for tests; it is not
// shared across processes. A background goroutine periodically evicts
// expired entries.
type MemoryStore struct {
	mu sync.Mutex

	counters map[string]*counterEntry
	kv       map[string]*kvEntry
	zsets    map[string][]zMember
	lists    map[string][]string
	sets     map[string]map[string]struct{}
	hashes   map[string]*hashEntry

	zsetExpiresAt map[string]time.Time
	lastAccess    map[string]time.Time
}

// NewMemory creates a MemoryStore. If cleanupInterval > 0, a background
// goroutine runs until ctx is canceled, evicting entries stale for
// longer than 10x the interval.
func NewMemory(ctx context.Context, cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		counters:      make(map[string]*counterEntry),
		kv:            make(map[string]*kvEntry),
		zsets:         make(map[string][]zMember),
		lists:         make(map[string][]string),
		sets:          make(map[string]map[string]struct{}),
		hashes:        make(map[string]*hashEntry),
		zsetExpiresAt: make(map[string]time.Time),
		lastAccess:    make(map[string]time.Time),
	}

	if cleanupInterval > 0 {
		go s.runCleanup(ctx, cleanupInterval)
	}

	return s
}

func (s *MemoryStore) touch(key string, now time.Time) {
	s.lastAccess[key] = now
}

func (s *MemoryStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	e, found := s.counters[key]
	if found && e.hasTTL && now.After(e.expiresAt) {
		found = false
	}

	if !found {
		e = &counterEntry{value: 1}
		if ttl > 0 {
			e.hasTTL = true
			e.expiresAt = now.Add(ttl)
		}
		s.counters[key] = e
	} else {
		e.value++
	}

	s.touch(key, now)
	return e.value, nil
}

func (s *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.counters[key]; ok {
		e.hasTTL = true
		e.expiresAt = time.Now().Add(ttl)
	}
	if e, ok := s.kv[key]; ok {
		e.hasTTL = true
		e.expiresAt = time.Now().Add(ttl)
	}
	if e, ok := s.hashes[key]; ok {
		e.hasTTL = true
		e.expiresAt = time.Now().Add(ttl)
	}
	return nil
}

// TTL reports the remaining time-to-live tracked for key, checking
// counters, kv, and hashes in turn (the three namespaces Expire can
// set a TTL on).
func (s *MemoryStore) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if e, ok := s.counters[key]; ok && e.hasTTL {
		if now.After(e.expiresAt) {
			return 0, false, nil
		}
		return e.expiresAt.Sub(now), true, nil
	}
	if e, ok := s.kv[key]; ok && e.hasTTL {
		if now.After(e.expiresAt) {
			return 0, false, nil
		}
		return e.expiresAt.Sub(now), true, nil
	}
	if e, ok := s.hashes[key]; ok && e.hasTTL {
		if now.After(e.expiresAt) {
			return 0, false, nil
		}
		return e.expiresAt.Sub(now), true, nil
	}
	return 0, false, nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	if e, found := s.kv[key]; found {
		if e.hasTTL && now.After(e.expiresAt) {
			delete(s.kv, key)
		} else {
			return e.value, true, nil
		}
	}

	// Incr and Get share a single scalar namespace, as they do against
	// a real Redis string key: a counter created by Incr must read
	// back through Get.
	if e, found := s.counters[key]; found {
		if e.hasTTL && now.After(e.expiresAt) {
			delete(s.counters, key)
			return "", false, nil
		}
		return strconv.FormatInt(e.value, 10), true, nil
	}

	return "", false, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &kvEntry{value: value}
	if ttl > 0 {
		e.hasTTL = true
		e.expiresAt = time.Now().Add(ttl)
	}
	s.kv[key] = e
	s.touch(key, time.Now())
	return nil
}

func (s *MemoryStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, found := s.kv[key]; found {
		if !e.hasTTL || !time.Now().After(e.expiresAt) {
			return false, nil
		}
	}

	e := &kvEntry{value: value}
	if ttl > 0 {
		e.hasTTL = true
		e.expiresAt = time.Now().Add(ttl)
	}
	s.kv[key] = e
	return true, nil
}

func (s *MemoryStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zsets[key] = append(s.zsets[key], zMember{score: score, member: member})
	s.touch(key, time.Now())
	return nil
}

func (s *MemoryStore) ZRemRangeByScore(ctx context.Context, key string, max float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zremRangeByScoreLocked(key, max)
	return nil
}

func (s *MemoryStore) zremRangeByScoreLocked(key string, max float64) {
	s.expireZSetLocked(key, time.Now())
	members := s.zsets[key]
	kept := members[:0]
	for _, m := range members {
		if m.score > max {
			kept = append(kept, m)
		}
	}
	s.zsets[key] = kept
}

// expireZSetLocked drops key's sorted set if its tracked TTL (set by
// EvalSlidingWindowLog) has passed. Sorted sets created only through
// the plain ZAdd method carry no TTL and are unaffected.
func (s *MemoryStore) expireZSetLocked(key string, now time.Time) {
	if exp, ok := s.zsetExpiresAt[key]; ok && now.After(exp) {
		delete(s.zsets, key)
		delete(s.zsetExpiresAt, key)
	}
}

func (s *MemoryStore) ZCard(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireZSetLocked(key, time.Now())
	return int64(len(s.zsets[key])), nil
}

func (s *MemoryStore) RPush(ctx context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[key] = append(s.lists[key], value)
	s.touch(key, time.Now())
	return nil
}

func (s *MemoryStore) LPop(ctx context.Context, key string, count int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lpopLocked(key, count), nil
}

func (s *MemoryStore) lpopLocked(key string, count int64) []string {
	list := s.lists[key]
	if count > int64(len(list)) {
		count = int64(len(list))
	}
	if count <= 0 {
		return nil
	}
	popped := append([]string(nil), list[:count]...)
	s.lists[key] = list[count:]
	return popped
}

func (s *MemoryStore) LLen(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.lists[key])), nil
}

func (s *MemoryStore) SAdd(ctx context.Context, key string, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sets[key] == nil {
		s.sets[key] = make(map[string]struct{})
	}
	s.sets[key][member] = struct{}{}
	return nil
}

func (s *MemoryStore) SRem(ctx context.Context, key string, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sets[key], member)
	return nil
}

func (s *MemoryStore) SMembers(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := make([]string, 0, len(s.sets[key]))
	for m := range s.sets[key] {
		members = append(members, m)
	}
	sort.Strings(members)
	return members, nil
}

func (s *MemoryStore) SCard(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.sets[key])), nil
}

func (s *MemoryStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, found := s.hashes[key]
	if !found {
		return map[string]string{}, nil
	}
	if e.hasTTL && time.Now().After(e.expiresAt) {
		delete(s.hashes, key)
		return map[string]string{}, nil
	}

	out := make(map[string]string, len(e.fields))
	for k, v := range e.fields {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) HSet(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, found := s.hashes[key]
	if !found {
		e = &hashEntry{fields: make(map[string]string)}
		s.hashes[key] = e
	}
	for k, v := range fields {
		e.fields[k] = v
	}
	if ttl > 0 {
		e.hasTTL = true
		e.expiresAt = time.Now().Add(ttl)
	}
	s.touch(key, time.Now())
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.counters, key)
		delete(s.kv, key)
		delete(s.zsets, key)
		delete(s.zsetExpiresAt, key)
		delete(s.lists, key)
		delete(s.sets, key)
		delete(s.hashes, key)
		delete(s.lastAccess, key)
	}
	return nil
}

func (s *MemoryStore) KeysByPattern(ctx context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	for k := range s.counters {
		seen[k] = struct{}{}
	}
	for k := range s.kv {
		seen[k] = struct{}{}
	}
	for k := range s.zsets {
		seen[k] = struct{}{}
	}
	for k := range s.lists {
		seen[k] = struct{}{}
	}
	for k := range s.sets {
		seen[k] = struct{}{}
	}
	for k := range s.hashes {
		seen[k] = struct{}{}
	}

	var out []string
	for k := range seen {
		if globMatch(pattern, k) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// globMatch supports the single "*" wildcard forms this service's
// reset/monitor code actually uses: "prefix*" and an exact literal.
func globMatch(pattern, key string) bool {
	if pattern == key {
		return true
	}
	if len(pattern) > 0 && pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return len(key) >= len(prefix) && key[:len(prefix)] == prefix
	}
	return false
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// EvalSlidingWindowLog performs steps (1)-(4) under the single
// store-wide lock, satisfying the "atomic unit" requirement in-process.
func (s *MemoryStore) EvalSlidingWindowLog(ctx context.Context, key string, now, window float64, limit int64, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.zremRangeByScoreLocked(key, now-window)

	if int64(len(s.zsets[key])) >= limit {
		return false, nil
	}

	s.zsets[key] = append(s.zsets[key], zMember{score: now, member: member})

	// Refresh TTL to window+1s on every successful add, matching
	// RedisStore's EXPIRE call in the equivalent Lua script.
	wallNow := time.Now()
	s.zsetExpiresAt[key] = wallNow.Add(time.Duration((window + 1) * float64(time.Second)))
	s.touch(key, wallNow)

	return true, nil
}

// EvalSlidingWindowCounter reads the previous and current slice
// counters (missing = 0), computes the weighted estimate, and
// conditionally increments the current slice counter.
func (s *MemoryStore) EvalSlidingWindowCounter(ctx context.Context, currKey, prevKey string, offset float64, limit int64, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	prevCount := s.counterValueLocked(prevKey, now)
	currCount := s.counterValueLocked(currKey, now)

	estimate := (1-offset)*float64(prevCount) + float64(currCount)
	if estimate >= float64(limit) {
		return false, nil
	}

	e, found := s.counters[currKey]
	if !found || (e.hasTTL && now.After(e.expiresAt)) {
		e = &counterEntry{value: 0}
		s.counters[currKey] = e
	}
	e.value++
	e.hasTTL = true
	e.expiresAt = now.Add(ttl)

	return true, nil
}

func (s *MemoryStore) counterValueLocked(key string, now time.Time) int64 {
	e, found := s.counters[key]
	if !found {
		return 0
	}
	if e.hasTTL && now.After(e.expiresAt) {
		return 0
	}
	return e.value
}

// EvalTokenBucket performs the token bucket read-refill-decrement-write
// sequence under the store-wide lock.
func (s *MemoryStore) EvalTokenBucket(ctx context.Context, key string, now, refillPerSecond float64, capacity int64, ttl time.Duration) (bool, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, found := s.hashes[key]
	wallNow := time.Now()
	var tokens, lastRefill float64
	if found && (!e.hasTTL || !wallNow.After(e.expiresAt)) {
		tokens, _ = strconv.ParseFloat(e.fields["tokens"], 64)
		lastRefill, _ = strconv.ParseFloat(e.fields["last_refill"], 64)
	} else {
		tokens = float64(capacity)
		lastRefill = now
	}

	elapsed := now - lastRefill
	if elapsed > 0 {
		tokens += elapsed * refillPerSecond
	}
	if tokens > float64(capacity) {
		tokens = float64(capacity)
	}

	allowed := tokens >= 1
	if allowed {
		tokens--
	}

	s.hashes[key] = &hashEntry{
		fields: map[string]string{
			"tokens":      strconv.FormatFloat(tokens, 'f', -1, 64),
			"last_refill": strconv.FormatFloat(now, 'f', -1, 64),
		},
		hasTTL:    true,
		expiresAt: wallNow.Add(ttl),
	}

	return allowed, tokens, nil
}

// EvalLeakyBucketEnqueue pushes, measures, and conditionally pops back
// off the per-identity queue.
func (s *MemoryStore) EvalLeakyBucketEnqueue(ctx context.Context, key, activeSetKey, identity string, now float64, limit int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lists[key] = append(s.lists[key], strconv.FormatFloat(now, 'f', -1, 64))

	if int64(len(s.lists[key])) > limit {
		s.lists[key] = s.lists[key][:len(s.lists[key])-1]
		return false, nil
	}

	if s.sets[activeSetKey] == nil {
		s.sets[activeSetKey] = make(map[string]struct{})
	}
	s.sets[activeSetKey][identity] = struct{}{}
	return true, nil
}

func (s *MemoryStore) runCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	staleThreshold := interval * 10

	for {
		select {
		case <-ticker.C:
			s.sweep(staleThreshold)
		case <-ctx.Done():
			return
		}
	}
}

func (s *MemoryStore) sweep(staleThreshold time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.counters {
		if e.hasTTL && now.After(e.expiresAt) {
			delete(s.counters, key)
		}
	}
	for key, e := range s.kv {
		if e.hasTTL && now.After(e.expiresAt) {
			delete(s.kv, key)
		}
	}
	for key, e := range s.hashes {
		if e.hasTTL && now.After(e.expiresAt) {
			delete(s.hashes, key)
		}
	}
	for key, exp := range s.zsetExpiresAt {
		if now.After(exp) {
			delete(s.zsets, key)
			delete(s.zsetExpiresAt, key)
		}
	}
	for key, last := range s.lastAccess {
		if now.Sub(last) > staleThreshold {
			delete(s.zsets, key)
			delete(s.lists, key)
			delete(s.lastAccess, key)
		}
	}
}

var _ ratelimiter.Store = (*MemoryStore)(nil)
