package utils

import (
	"context"
	"testing"
	"time"
)

func TestCapScriptsInitialized(t *testing.T) {
	if capAcquireScript == nil || capReleaseScript == nil {
		t.Fatalf("expected scripts to be initialized")
	}
}

func TestInflightCap_DefaultsAndKey(t *testing.T) {
	c := NewInflightCap(nil, "booking:inflight", 0, 0)
	if c.limit != 1 || c.ttl != 30*time.Second {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if got := c.key("u1"); got != "booking:inflight:u1" {
		t.Fatalf("unexpected key %q", got)
	}
	if _, err := c.Acquire(context.Background(), "u1"); err == nil {
		t.Fatalf("expected error without redis client")
	}
}
