package ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestFixedWindowLimiterEnforcesLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(mr.Addr(), "", "test:ratelimit", 2, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}

	if !limiter.Allow("key-a") || !limiter.Allow("key-a") {
		t.Fatalf("expected first two requests to be allowed")
	}
	if limiter.Allow("key-a") {
		t.Fatalf("expected third request to be rejected")
	}
	// Other keys have their own quota.
	if !limiter.Allow("key-b") {
		t.Fatalf("expected fresh key to be allowed")
	}
}

func TestFixedWindowLimiterResetsAfterWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(mr.Addr(), "", "test:ratelimit", 1, time.Second)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}

	if !limiter.Allow("key") {
		t.Fatalf("expected first request to be allowed")
	}
	if limiter.Allow("key") {
		t.Fatalf("expected second request in window to be rejected")
	}

	// The window key is time-sliced; waiting out the window admits again.
	time.Sleep(1100 * time.Millisecond)
	mr.FastForward(2 * time.Second)
	if !limiter.Allow("key") {
		t.Fatalf("expected request in next window to be allowed")
	}
}

func TestFixedWindowLimiterFailsClosedWithoutRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(mr.Addr(), "", "", 5, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	mr.Close()
	if limiter.Allow("key") {
		t.Fatalf("expected limiter to fail closed when redis is down")
	}
}

func TestNewRedisFixedWindowLimiterValidatesInput(t *testing.T) {
	if _, err := NewRedisFixedWindowLimiter("localhost:6379", "", "", 0, time.Minute); err == nil {
		t.Fatalf("expected zero limit to be rejected")
	}
	if _, err := NewRedisFixedWindowLimiter("", "", "", 5, time.Minute); err == nil {
		t.Fatalf("expected empty addr to be rejected")
	}
}
