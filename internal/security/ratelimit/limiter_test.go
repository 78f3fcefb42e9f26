package ratelimit

import (
	"runtime"
	"testing"
	"time"
)

func TestAllowSlidingWindow(t *testing.T) {
	l := NewLimiter(2, 50*time.Millisecond)
	defer l.Stop()

	if !l.Allow("alice") || !l.Allow("alice") {
		t.Fatal("requests under the limit should pass")
	}
	if l.Allow("alice") {
		t.Fatal("request over the limit should be denied")
	}

	// A different key has its own budget.
	if !l.Allow("bob") {
		t.Fatal("other keys must not share the bucket")
	}

	// The empty key is never limited.
	for i := 0; i < 10; i++ {
		if !l.Allow("") {
			t.Fatal("empty key must always pass")
		}
	}

	time.Sleep(60 * time.Millisecond)
	if !l.Allow("alice") {
		t.Fatal("window expiry should free the budget")
	}
}

func TestStopEndsCleanupGoroutine(t *testing.T) {
	baseline := runtime.NumGoroutine()

	l := NewLimiter(10, time.Minute)
	l.Stop()
	l.Stop() // second call must be a no-op

	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > baseline {
		if time.Now().After(deadline) {
			t.Fatalf("cleanup goroutine still running after Stop: %d > %d",
				runtime.NumGoroutine(), baseline)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
