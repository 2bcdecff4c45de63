package middleware

import (
	"fmt"
	"testing"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewPerMinuteRateLimiter(3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("wallet-a") {
			t.Fatalf("request %d within burst must pass", i)
		}
	}
	if rl.Allow("wallet-a") {
		t.Error("request over burst must be refused")
	}

	// Keys are independent.
	if !rl.Allow("wallet-b") {
		t.Error("fresh key must have its own allowance")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewPerMinuteRateLimiter(1)
	for i := 0; i < 20000; i++ {
		rl.Allow(fmt.Sprintf("wallet-%d", i))
	}
	rl.Cleanup()
	if !rl.Allow("wallet-a") {
		t.Error("limiter must keep working after cleanup")
	}
}
