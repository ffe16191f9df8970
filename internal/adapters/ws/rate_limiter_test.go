package ws

import (
	"testing"
	"time"
)

func TestRateLimiterCapsWithinWindow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("alice") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if rl.Allow("alice") {
		t.Fatal("fourth attempt within window should be blocked")
	}
	if !rl.Allow("bob") {
		t.Fatal("limits are per-user")
	}
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl := NewRateLimiter(1, 20*time.Millisecond)

	if !rl.Allow("alice") {
		t.Fatal("first attempt should be allowed")
	}
	if rl.Allow("alice") {
		t.Fatal("second immediate attempt should be blocked")
	}
	time.Sleep(30 * time.Millisecond)
	if !rl.Allow("alice") {
		t.Fatal("attempt after window should be allowed")
	}
}
