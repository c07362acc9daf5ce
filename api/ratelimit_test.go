package api

import (
	"testing"
	"time"
)

func TestRateLimiter_RefillsAndSweeps(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(time.Minute, 3)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow("10.0.0.1"); !ok {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	ok, retry := l.Allow("10.0.0.1")
	if ok || retry <= 0 || retry > 21*time.Second {
		t.Fatalf("expected denial with retry within one refill interval, got ok=%v retry=%v", ok, retry)
	}
	if ok, _ := l.Allow("10.0.0.2"); !ok {
		t.Fatalf("other clients have their own budget")
	}

	now = now.Add(21 * time.Second)
	if ok, _ := l.Allow("10.0.0.1"); !ok {
		t.Fatalf("one token should have been refilled")
	}

	now = now.Add(2 * time.Minute)
	l.Allow("10.0.0.3")
	l.mu.Lock()
	n := len(l.clients)
	l.mu.Unlock()
	if n != 1 {
		t.Fatalf("idle clients should be swept, have %d", n)
	}
}
