// Package ratelimit bounds write throughput per caller identity with a
// Redis-backed fixed window, so one identity cannot saturate the store.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// WriteLimiter limits write operations per subject in a fixed time window.
// The window state lives in Redis so every instance shares one budget.
type WriteLimiter struct {
	limit  int
	window time.Duration

	client *redis.Client
	prefix string
}

// NewWriteLimiter creates a Redis-backed limiter.
func NewWriteLimiter(addr, password string, limit int, window time.Duration) (*WriteLimiter, error) {
	if limit <= 0 || window <= 0 {
		return nil, errors.New("write limiter requires positive limit and window")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("write limiter redis addr is required")
	}
	return &WriteLimiter{
		limit:  limit,
		window: window,
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		prefix: "snapfeed:ratelimit",
	}, nil
}

// Allow returns true when the subject is within its write quota.
// On Redis failures it fails closed and returns false.
func (l *WriteLimiter) Allow(subjectID string) bool {
	if l == nil {
		return false
	}
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		subjectID = "anonymous"
	}
	windowMs := l.window.Milliseconds()
	if windowMs <= 0 {
		return true
	}
	windowSlot := time.Now().UTC().UnixMilli() / windowMs
	key := fmt.Sprintf("%s:%s:%d", l.prefix, subjectID, windowSlot)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := fixedWindowScript.Run(ctx, l.client, []string{key}, windowMs).Int64()
	if err != nil {
		return false
	}
	return res <= int64(l.limit)
}
