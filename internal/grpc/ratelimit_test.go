package grpcserver

import (
	"testing"
	"time"
)

func TestCodeAttemptLimiter(t *testing.T) {
	if NewCodeAttemptLimiter(0, time.Minute) != nil {
		t.Fatalf("zero attempts should disable the limiter")
	}
	l := NewCodeAttemptLimiter(3, time.Hour)
	defer l.Stop()
	for i := 0; i < 3; i++ {
		if !l.Allow("partner:ravi") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if l.Allow("partner:ravi") {
		t.Fatalf("fourth attempt should be limited")
	}
	if !l.Allow("partner:anil") {
		t.Fatalf("callers are limited independently")
	}

	l.cleanup(time.Now().Add(3 * time.Hour))
	if len(l.limiters) != 0 {
		t.Fatalf("idle callers not dropped: %d", len(l.limiters))
	}
	l.Stop()
}
