// Package absence tracks per-user consecutive-distraction streaks and
// decides when the warning threshold is crossed.
package absence

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	"focusmon/internal/faults"
)

// DefaultThreshold tolerates one miss; the second consecutive miss fires
// a warning ("two strikes").
const DefaultThreshold = 1

// CounterStore applies the streak transition for one evaluated event.
// Transition must be atomic per username: a focused evaluation resets the
// counter; an unfocused one increments it, or resets it and reports a
// warning once the threshold is reached. The stored value stays in
// [0, threshold].
type CounterStore interface {
	Transition(ctx context.Context, username string, focused bool, threshold int) (warning bool, err error)
}

// transition is executed server-side so the read-modify-write cannot race
// between concurrent evaluations of the same user.
var transition = redis.NewScript(`
if ARGV[1] == "1" then
  redis.call("SET", KEYS[1], 0)
  return 0
end
local c = tonumber(redis.call("GET", KEYS[1]) or "0")
if c >= tonumber(ARGV[2]) then
  redis.call("SET", KEYS[1], 0)
  return 1
end
redis.call("SET", KEYS[1], c + 1)
return 0
`)

// RedisCounters keeps streak counters in Redis, one key per username.
type RedisCounters struct {
	client *redis.Client
	prefix string
}

// NewRedisCounters creates a store with the given key prefix.
func NewRedisCounters(client *redis.Client, prefix string) *RedisCounters {
	if prefix == "" {
		prefix = "focusmon:absence"
	}
	return &RedisCounters{client: client, prefix: prefix}
}

// Transition runs the streak transition atomically via a Lua script.
func (s *RedisCounters) Transition(ctx context.Context, username string, focused bool, threshold int) (bool, error) {
	f := "0"
	if focused {
		f = "1"
	}
	res, err := transition.Run(ctx, s.client, []string{s.prefix + ":" + username}, f, threshold).Int()
	if err != nil {
		return false, faults.Dependency("absence store", err)
	}
	return res == 1, nil
}

// MemoryCounters is a mutex-guarded in-process store for dev/testing.
type MemoryCounters struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMemoryCounters creates an empty in-memory store.
func NewMemoryCounters() *MemoryCounters {
	return &MemoryCounters{counts: make(map[string]int)}
}

// Transition applies the same streak transition as the Redis backend.
func (s *MemoryCounters) Transition(_ context.Context, username string, focused bool, threshold int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if focused {
		s.counts[username] = 0
		return false, nil
	}
	c := s.counts[username]
	if c >= threshold {
		s.counts[username] = 0
		return true, nil
	}
	s.counts[username] = c + 1
	return false, nil
}

// Count returns the current streak for username. Test helper.
func (s *MemoryCounters) Count(username string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[username]
}
