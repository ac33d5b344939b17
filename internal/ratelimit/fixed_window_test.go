package ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestWriteLimiter(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := NewWriteLimiter(redis.Addr(), "", 2, time.Second)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	if !limiter.Allow("user-1") {
		t.Fatalf("first write should pass")
	}
	if !limiter.Allow("user-1") {
		t.Fatalf("second write should pass")
	}
	if limiter.Allow("user-1") {
		t.Fatalf("third write should be blocked")
	}
	if !limiter.Allow("user-2") {
		t.Fatalf("another subject has its own budget")
	}
}

func TestWriteLimiterFailsClosed(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := NewWriteLimiter(redis.Addr(), "", 1, time.Second)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	redis.Close()
	if limiter.Allow("user-1") {
		t.Fatalf("limiter should fail closed on redis errors")
	}
}

func TestWriteLimiterRequiresRedisAddr(t *testing.T) {
	limiter, err := NewWriteLimiter("", "", 1, time.Second)
	if err == nil || limiter != nil {
		t.Fatalf("expected constructor error for empty redis addr")
	}
}
