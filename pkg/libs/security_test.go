package libs

import (
	"testing"
	"time"
)

func TestSecurityManagerAllow(t *testing.T) {
	sm := NewSecurityManager(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !sm.Allow("1.2.3.4:/api/auth/register") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if sm.Allow("1.2.3.4:/api/auth/register") {
		t.Error("request over budget should be blocked")
	}
	if !sm.Allow("5.6.7.8:/api/auth/register") {
		t.Error("a different identifier has its own budget")
	}
}

func TestSecurityManagerWindowExpiry(t *testing.T) {
	sm := NewSecurityManager(1, 50*time.Millisecond)

	if !sm.Allow("client") {
		t.Fatal("first request should pass")
	}
	if sm.Allow("client") {
		t.Fatal("second request should be blocked")
	}

	time.Sleep(120 * time.Millisecond)
	if !sm.Allow("client") {
		t.Error("budget should reset after the window expires")
	}
}
