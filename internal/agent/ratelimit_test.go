package agent

import (
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestRateLimiterPerSessionBurst(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rl := NewRateLimiter(1, 2, time.Hour)
	defer rl.Stop()

	now := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("burst of 2 should be allowed")
	}
	if rl.Allow("a") {
		t.Fatal("third request within the same instant should be limited")
	}
	if !rl.Allow("b") {
		t.Fatal("sessions must not share a bucket")
	}

	now = now.Add(time.Second)
	if !rl.Allow("a") {
		t.Fatal("bucket should refill after one second")
	}
}

func TestRateLimiterForgetAndEvict(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rl := NewRateLimiter(1, 1, time.Minute)
	defer rl.Stop()

	now := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(50 * time.Second)
	rl.Allow("new")
	rl.Allow("gone")
	rl.Forget("gone")
	if rl.Len() != 2 {
		t.Fatalf("Len = %d, want 2", rl.Len())
	}

	now = now.Add(20 * time.Second)
	if n := rl.evictIdle(); n != 1 {
		t.Fatalf("evicted %d, want 1", n)
	}
	if rl.Len() != 1 {
		t.Fatalf("Len = %d after eviction, want 1", rl.Len())
	}
}

func TestRateLimiterStopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rl := NewRateLimiter(1, 1, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	rl.Stop()
	rl.Stop()
}
